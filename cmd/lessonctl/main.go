package main

import (
	"database/sql"
	"errors"
	"os"

	"lessonchat/config"
	"lessonchat/db"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "lessonctl",
	Short:         "Operate the lesson chat database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		cfg.SetupLogging()
	},
}

var cfg *config.Config

func init() {
	rootCmd.AddCommand(migrateCmd, importLessonsCmd, transcriptsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func openDatabase() (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DB_URL environment variable is required")
	}
	return db.OpenPostgres(cfg.DatabaseURL)
}
