// Package services holds cross-cutting service plumbing: the sentinel error
// taxonomy used to classify failures at component boundaries, and context
// carriers for item/request correlation data consumed by logging.
package services
