// Package dirsync holds the generators for the files committed next to the
// code: the config schema and the command reference.
package dirsync

//go:generate go run ./cmd/genschema dirsync-config.schema.json
//go:generate go run ./cmd/gendocs markdown
