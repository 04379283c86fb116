//go:build !sqlite_cgo
// +build !sqlite_cgo

package storage

// This file is compiled by default. It uses a pure Go SQLite implementation.
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// The pure Go implementation provides:
//   - No C compiler required
//   - Cross-platform compilation
//   - Suitable for development and single-node deployments
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// SQLiteDriverName is the SQLite driver to use
	SQLiteDriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
