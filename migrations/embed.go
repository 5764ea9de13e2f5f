// Package migrations embeds the SQL schema for the sensor registry.
package migrations

import "embed"

// FS holds every migration file at its root, ready for database.Migrate.
//
//go:embed *.sql
var FS embed.FS
