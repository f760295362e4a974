// Package queue holds the in-memory work queue feeding the workflow loop.
package queue
