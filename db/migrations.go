package db

import "embed"

// Migrations holds the SQL schema applied by golang-migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
