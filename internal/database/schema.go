package database

import _ "embed"

// Schema is the schema produced by running every migration, for tests that
// want a ready database without going through golang-migrate.
//
//go:embed sqlc/schema.sql
var Schema string
