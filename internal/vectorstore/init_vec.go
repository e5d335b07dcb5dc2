//go:build sqlite_vec && cgo

package vectorstore

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers the sqlite-vec extension as auto-loadable for the
	// mattn/go-sqlite3 driver. Nothing in this package uses it: SQLStore
	// (sqlite.go) opens the modernc driver and builds no ANN index.
	vec.Auto()
}
