// Package deps verifies the external binaries the daemon shells out to.
package deps
