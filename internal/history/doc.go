// Package history keeps a diagnostics log of download attempts in SQLite.
package history
