//go:build cgo_sqlite

// CGO SQLite driver using mattn/go-sqlite3.
//
// Build with: go build -tags cgo_sqlite
// Requires: CGO_ENABLED=1
package sqlite

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3" // CGO SQLite driver
)

const (
	driverName    = "sqlite3"
	driverType    = "cgo"
	driverPackage = "github.com/mattn/go-sqlite3"
)

func dsn(path string, readOnly bool) string {
	s := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d", path, BusyTimeoutMillis)
	if readOnly {
		s += "&mode=ro"
	}
	return s
}
