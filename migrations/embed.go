// Package migrations embeds the node table schema into the binary.
//
// Importing this package for its side effect registers the migrations
// with the database package; every gateway persistence file is migrated
// with the same set.
package migrations

import (
	"embed"

	"github.com/nerrad567/domintell-bridge/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
