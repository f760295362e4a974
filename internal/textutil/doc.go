// Package textutil provides filename sanitization and fuzzy-match tokens for
// output placement.
package textutil
