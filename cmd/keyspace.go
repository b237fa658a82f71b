package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	config "github.com/graphsense/eth-ingest/configs"
	"github.com/graphsense/eth-ingest/db"
	"github.com/graphsense/eth-ingest/internal/storage"
)

var createKeyspaceCmd = &cobra.Command{
	Use:   "create-keyspace",
	Short: "Create the raw keyspace and its tables",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if config.Cfg.Cassandra.Keyspace == "" {
			log.Fatal().Msg("No keyspace configured")
		}
		err := storage.CreateKeyspace(ctx, &config.Cfg.Cassandra, db.Schema, db.KeyspacePlaceholder)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create keyspace")
		}
		log.Info().Msgf("Created keyspace %s", config.Cfg.Cassandra.Keyspace)
	},
}
