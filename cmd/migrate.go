package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-mastery/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, cfg, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		cfg.AutoMigrate = true
		svc, err := app.OpenDB(log, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()
		log.Info("schema migrated", "driver", cfg.DB.Driver)
		return nil
	},
}
