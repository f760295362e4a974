// Package config loads, normalizes, and validates the TOML configuration.
// Components receive the values they need at construction; nothing reads
// configuration through ambient globals.
package config
