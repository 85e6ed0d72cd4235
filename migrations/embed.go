package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

// Files stores forward-only SQL migrations embedded into the binary, one
// directory per database dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var Files embed.FS

// ForDialect returns the migrations directory for a gorm dialector name.
func ForDialect(name string) (fs.FS, error) {
	switch name {
	case "sqlite", "postgres":
		return fs.Sub(Files, name)
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", name)
	}
}
