package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"debateai/internal/logging"
	"debateai/internal/models"
	"debateai/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logging.Setup(cfg.Log.Level, cfg.Log.Format)

		db, err := storage.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.AutoMigrate(models.All()...); err != nil {
			return err
		}
		slog.Info("database migrated", "driver", cfg.DB.Driver)
		return nil
	},
}
