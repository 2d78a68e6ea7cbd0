// Command generate_schema applies every catalog migration to an in-memory
// SQLite database and writes the resulting schema for sqlc to read.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	"evidence-vault/internal/database"
	"evidence-vault/internal/database/migrations"
)

const schemaHeader = `-- Generated from internal/database/migrations/files/*.sql.
-- Do not edit. Regenerate with: go generate ./internal/database

`

// schemaQuery lists tables, then indexes, then triggers, skipping SQLite
// internals and golang-migrate's bookkeeping table.
const schemaQuery = `
	SELECT sql FROM sqlite_master
	WHERE sql IS NOT NULL
	  AND name NOT LIKE 'sqlite_%'
	  AND tbl_name != 'schema_migrations'
	ORDER BY CASE type WHEN 'table' THEN 1 WHEN 'index' THEN 2 ELSE 3 END, name`

func main() {
	out := flag.String("o", "internal/database/sqlc/schema.sql", "output file")
	flag.Parse()

	if err := run(*out); err != nil {
		fmt.Fprintf(os.Stderr, "generate_schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}

func run(out string) error {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}

	schema, err := dumpSchema(db)
	if err != nil {
		return err
	}
	return os.WriteFile(out, []byte(schema), 0o644)
}

func dumpSchema(db *sql.DB) (string, error) {
	rows, err := db.Query(schemaQuery)
	if err != nil {
		return "", fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString(schemaHeader)
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return "", fmt.Errorf("reading sqlite_master: %w", err)
		}
		b.WriteString(stmt)
		b.WriteString(";\n\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading sqlite_master: %w", err)
	}
	return b.String(), nil
}
