// Package migrations embeds the delivery history database's SQL
// migration files into the binary so warnbridge can run migrations
// without the SQL files present on disk.
package migrations

import (
	"embed"

	"github.com/nerrad/warnbridge/internal/history"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	history.MigrationsFS = migrationsFS
	history.MigrationsDir = "." // files are at the root of the embedded FS
}
