// Package db embeds the SQL migrations for production builds.
//
// Builds tagged embed_migrations compile the migrations into the binary;
// development builds read them from db/migrations on disk.
package db

import "embed"

//go:embed migrations
var Migrations embed.FS
