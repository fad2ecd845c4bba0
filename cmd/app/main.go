package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/andreyxaxa/Spectra/config"
	"github.com/andreyxaxa/Spectra/internal/app"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const annotationPostgres = "postgres"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spectra",
		Short:         "Image ingestion pipeline",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		processCmd("gateway", "Serve the upload and read API", true, app.RunGateway),
		processCmd("worker", "Generate thumbnails for received images", false, app.RunWorker),
		processCmd("reconciler", "Record generated thumbnails in the metadata store", true, app.RunReconciler),
		migrateCmd(),
	)

	return root
}

// processCmd runs one long-lived process. usesPostgres marks processes that open the metadata store.
func processCmd(use, short string, usesPostgres bool, run func(*config.Config)) *cobra.Command {
	return &cobra.Command{
		Use:         use,
		Short:       short,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationPostgres: strconv.FormatBool(usesPostgres)},
		Run: func(*cobra.Command, []string) {
			run(loadConfig(usesPostgres))
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "migrate",
		Short:       "Apply the metadata store schema",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationPostgres: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			applied, err := app.RunMigrate(cmd.Context(), loadConfig(true))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), app.MigrateSummary(applied))

			return nil
		},
	}
}

func loadConfig(usesPostgres bool) *config.Config {
	// Config
	if _, err := os.Stat(".env"); err == nil {
		err = godotenv.Load()
		if err != nil {
			log.Fatalf("config error: %s", err)
		}
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Config error: %s", err)
	}

	if usesPostgres {
		if err = cfg.RequirePostgres(); err != nil {
			log.Fatalf("Config error: %s", err)
		}
	}

	return cfg
}
