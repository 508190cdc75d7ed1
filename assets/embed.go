// assets/embed.go
//
// Files compiled into the binary:
//   - modes.yaml: default difficulty tiers.
//   - sql/*.sql:  SQLite migrations, applied in lexical order.

package assets

import (
	"embed"
	"io/fs"
)

//go:embed modes.yaml sql/*.sql
var FS embed.FS

// Modes returns the embedded tier definitions.
func Modes() ([]byte, error) {
	return FS.ReadFile("modes.yaml")
}

// Migrations returns the embedded sql directory as its own filesystem.
func Migrations() (fs.FS, error) {
	return fs.Sub(FS, "sql")
}
