package migrations

import (
	"embed"
	"fmt"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Dir returns the embedded migrations directory and goose dialect for a
// database/sql driver name.
func Dir(driver string) (dir, dialect string, err error) {
	switch driver {
	case "postgres":
		return "postgres", "postgres", nil
	case "sqlite3":
		return "sqlite", "sqlite3", nil
	default:
		return "", "", fmt.Errorf("no migrations for driver %q", driver)
	}
}
