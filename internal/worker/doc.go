// Package worker runs the workflow loop that turns queued catalog items
// into downloaded extras.
package worker
