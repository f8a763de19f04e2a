// Package migrations embeds the run audit schema for each supported driver.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed postgres/*.sql
var postgresMigrations embed.FS

// ForDriver returns the migration files for a database/sql driver name,
// rooted so that the .sql files sit at the top level.
func ForDriver(driver string) (fs.FS, error) {
	switch driver {
	case "sqlite3":
		return fs.Sub(sqliteMigrations, "sqlite")
	case "postgres":
		return fs.Sub(postgresMigrations, "postgres")
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
