// Package potserver supervises the proof-of-origin token provider that
// yt-dlp consults for YouTube downloads.
package potserver
