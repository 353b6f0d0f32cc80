// Package postgres keeps the server's notification schema current.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garrettladley/chirp/internal/migrations"
)

//go:embed sql/*.sql
var embedded embed.FS

const createHistory = `
CREATE TABLE IF NOT EXISTS migrations_history (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	applied_at TIMESTAMPTZ DEFAULT NOW()
)`

// migrationLockID serialises Apply across server instances starting together.
const migrationLockID = 0x63686972 // "chir"

// Apply runs every embedded migration that has not been recorded yet. Each
// file runs in its own transaction together with its history row.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	files, err := migrations.Load(sub)
	if err != nil {
		return err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("taking migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	if _, err := conn.Exec(ctx, createHistory); err != nil {
		return fmt.Errorf("creating migrations history table: %w", err)
	}

	rows, err := conn.Query(ctx, "SELECT name FROM migrations_history")
	if err != nil {
		return fmt.Errorf("listing applied migrations: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("listing applied migrations: %w", err)
	}
	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}

	for _, f := range migrations.Pending(files, applied) {
		err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			for _, stmt := range f.Statements {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("failed to execute migration %s: %w", f.Name, err)
				}
			}
			if _, err := tx.Exec(ctx, "INSERT INTO migrations_history (name) VALUES ($1)", f.Name); err != nil {
				return fmt.Errorf("recording migration %s: %w", f.Name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
