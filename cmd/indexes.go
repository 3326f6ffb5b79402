package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carlink/market/internal/db"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the MongoDB indexes the application relies on",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup("indexes")
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		client, database, err := db.ConnectDB(ctx, cfg.MongoURI, cfg.MongoDbName, log)
		if err != nil {
			return err
		}
		defer func() { _ = db.DisconnectDB(client, log) }()

		if err := db.EnsureIndexes(ctx, database, log); err != nil {
			return err
		}
		log.Info("indexes ensured", zap.String("database", cfg.MongoDbName))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexesCmd)
}
