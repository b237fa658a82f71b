package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	config "github.com/graphsense/eth-ingest/configs"
	"github.com/graphsense/eth-ingest/internal/rpc"
	"github.com/graphsense/eth-ingest/internal/storage"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the ingest state of the keyspace",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := storage.NewCassandraStore(&config.Cfg.Cassandra)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to the store")
		}
		defer store.Close()

		if cfg, ok, err := store.ReadConfiguration(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to read the keyspace configuration")
		} else if ok {
			log.Info().Msgf("Keyspace %s is partitioned with %s", config.Cfg.Cassandra.Keyspace, cfg)
		} else {
			log.Info().Msgf("Keyspace %s has no recorded configuration", config.Cfg.Cassandra.Keyspace)
		}

		checkpoint, ok, err := store.LastIngestedBlock(ctx, storage.TableBlock)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve the checkpoint")
		}
		if !ok {
			log.Info().Msg("No blocks ingested yet")
		} else {
			log.Info().Msgf("Last ingested block: %d", checkpoint)
		}

		extraction, err := rpc.Initialize()
		if err != nil {
			log.Warn().Err(err).Msg("Cannot reach the chain client")
			return
		}
		defer extraction.Close()

		latest, err := extraction.GetLatestBlockNumber(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Cannot fetch the latest block number")
			return
		}
		log.Info().Msgf("Last synced block: %d", latest)
		if ok {
			log.Info().Msgf("Blocks behind: %d", latest-checkpoint)
		}
	},
}
