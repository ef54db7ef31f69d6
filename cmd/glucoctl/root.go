package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"glucolog/internal/config"
	"glucolog/internal/db"
	"glucolog/internal/logger"
)

// app holds what every subcommand shares once the root has initialized.
type app struct {
	cfg         *config.Config
	log         *zap.Logger
	databaseURL string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "glucoctl",
		Short: "Operator tool for the glucose readings service",
		Long: `glucoctl manages the readings database outside the API process.

  $ glucoctl migrate status          # Show every schema revision and which is current
  $ glucoctl migrate up              # Apply all pending revisions
  $ glucoctl migrate down            # Revert the current revision
  $ glucoctl migrate down base       # Revert everything
  $ glucoctl backup                  # Upload the sqlite file to S3 once

Configuration comes from the environment (and a .env file when present):
DATABASE_URL, DATABASE_FILE_PATH, S3_BUCKET_NAME, LOG_LEVEL, LOG_FORMAT.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.LoadTool()
			if err != nil {
				return err
			}
			overrideDatabaseURL(cfg, a.databaseURL)
			log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.log != nil {
				_ = a.log.Sync()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.databaseURL, "database-url", "", "database URL (overrides DATABASE_URL)")

	root.AddCommand(newMigrateCmd(a), newBackupCmd(a))
	return root
}

// overrideDatabaseURL points cfg at url. The backup file follows the URL unless
// DATABASE_FILE_PATH names it explicitly.
func overrideDatabaseURL(cfg *config.Config, url string) {
	if url == "" {
		return
	}
	cfg.DatabaseURL = url
	if os.Getenv("DATABASE_FILE_PATH") == "" {
		cfg.DatabaseFile = db.SQLitePath(url)
	}
}
