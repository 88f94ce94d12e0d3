package main

import (
	"fmt"

	"lessonchat/db"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.Migrate(cmd.Context(), database); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}

		log.Info("Schema is up to date")
		return nil
	},
}
