// Package migrations keeps the local notifyctl inbox schema current.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
)

//go:embed sql/*.sql
var embedded embed.FS

const createHistory = `
CREATE TABLE IF NOT EXISTS migrations_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// Apply brings the local inbox database up to date. Each migration runs in a
// transaction with its history row.
func Apply(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	files, err := Load(sub)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, createHistory); err != nil {
		return fmt.Errorf("creating migrations history table: %w", err)
	}
	applied, err := appliedNames(ctx, db)
	if err != nil {
		return err
	}

	for _, f := range Pending(files, applied) {
		if err := apply(ctx, db, f); err != nil {
			return err
		}
	}
	return nil
}

func appliedNames(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM migrations_history")
	if err != nil {
		return nil, fmt.Errorf("listing applied migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning applied migration: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing applied migrations: %w", err)
	}
	return applied, nil
}

func apply(ctx context.Context, db *sql.DB, f File) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration %s: %w", f.Name, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range f.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", f.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO migrations_history (name) VALUES (?)", f.Name); err != nil {
		return fmt.Errorf("recording migration %s: %w", f.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %s: %w", f.Name, err)
	}
	return nil
}
