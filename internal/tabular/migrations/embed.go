// Package migrations contains the embedded SQL schema of the SQLite table store.
package migrations

import "embed"

// Files exposes the compiled-in migration SQL files.
//
//go:embed *.sql
var Files embed.FS
