// Package extras resolves supplementary-video candidates for catalog items
// and plans which of them to download.
package extras
