package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

const _migrationsTable = "schema_migrations"

// Migrate applies every *.sql file of fsys not yet recorded, in lexical order.
// Each file runs in its own transaction together with its bookkeeping row.
func (p *Postgres) Migrate(ctx context.Context, fsys fs.FS) ([]string, error) {
	_, err := p.Pool.Exec(ctx, "CREATE TABLE IF NOT EXISTS "+_migrationsTable+
		" (name TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())")
	if err != nil {
		return nil, fmt.Errorf("Postgres - Migrate - create %s: %w", _migrationsTable, err)
	}

	names, err := migrationNames(fsys)
	if err != nil {
		return nil, fmt.Errorf("Postgres - Migrate - migrationNames: %w", err)
	}

	applied := make([]string, 0, len(names))
	for _, name := range names {
		ok, err := p.applyMigration(ctx, fsys, name)
		if err != nil {
			return applied, fmt.Errorf("Postgres - Migrate - %s: %w", name, err)
		}
		if ok {
			applied = append(applied, name)
		}
	}

	return applied, nil
}

func (p *Postgres) applyMigration(ctx context.Context, fsys fs.FS, name string) (bool, error) {
	body, err := fs.ReadFile(fsys, name)
	if err != nil {
		return false, fmt.Errorf("fs.ReadFile: %w", err)
	}

	applied := false
	err = pgx.BeginFunc(ctx, p.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "INSERT INTO "+_migrationsTable+" (name) VALUES ($1) ON CONFLICT DO NOTHING", name)
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		if _, err = tx.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("exec: %w", err)
		}
		applied = true

		return nil
	})

	return applied, err
}

func migrationNames(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	return names, nil
}
