//go:build sqlite_cgo
// +build sqlite_cgo

package storage

// This file is compiled when building with CGO and the sqlite_cgo tag.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
//
// The cgo driver provides:
//   - The reference C SQLite library
//   - Faster statement execution under write-heavy load
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// SQLiteDriverName is the SQLite driver to use
	SQLiteDriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
