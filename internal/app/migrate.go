package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/andreyxaxa/Spectra/config"
	"github.com/andreyxaxa/Spectra/migrations"
	"github.com/andreyxaxa/Spectra/pkg/postgres"
)

// RunMigrate applies the embedded schema and returns the names of newly applied files.
func RunMigrate(ctx context.Context, cfg *config.Config) ([]string, error) {
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(1))
	if err != nil {
		return nil, fmt.Errorf("app - RunMigrate - postgres.New: %w", err)
	}
	defer pg.Close()

	applied, err := pg.Migrate(ctx, migrations.FS)
	if err != nil {
		return applied, fmt.Errorf("app - RunMigrate - pg.Migrate: %w", err)
	}

	return applied, nil
}

// MigrateSummary renders the result of RunMigrate for the CLI.
func MigrateSummary(applied []string) string {
	if len(applied) == 0 {
		return "schema is up to date"
	}

	return fmt.Sprintf("applied %d migration(s): %s", len(applied), strings.Join(applied, ", "))
}
