// Package logging builds the process-wide slog logger: a console handler for
// terminals and plain log files, a JSON handler for machine consumption, and
// helpers for component loggers and context-derived fields.
package logging
