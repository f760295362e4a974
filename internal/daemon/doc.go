// Package daemon combines the workflow loop, ingest adapter, and HTTP API
// into a single lifecycle with flock-based locking to prevent multiple
// instances from fighting over the same library.
package daemon
