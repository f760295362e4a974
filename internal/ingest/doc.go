// Package ingest maps library catalog events onto the work queue.
package ingest
