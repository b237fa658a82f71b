package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	config "github.com/graphsense/eth-ingest/configs"
	"github.com/graphsense/eth-ingest/internal/orchestrator"
	"github.com/graphsense/eth-ingest/internal/rpc"
	"github.com/graphsense/eth-ingest/internal/storage"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a block range into the raw keyspace",
	Run:   RunIngest,
}

func init() {
	ingestCmd.Flags().Int("write-concurrency", 100, "max concurrent row writes")
	ingestCmd.Flags().Int("max-retries", 10, "consecutive write failures tolerated before giving up")
	ingestCmd.Flags().BoolP("continue", "c", false, "resume from the highest ingested block")
	ingestCmd.Flags().Bool("dry-run", false, "extract and transform but write nothing")
	viper.BindPFlag("ingest.writeConcurrency", ingestCmd.Flags().Lookup("write-concurrency"))
	viper.BindPFlag("ingest.maxRetries", ingestCmd.Flags().Lookup("max-retries"))
	viper.BindPFlag("ingest.resume", ingestCmd.Flags().Lookup("continue"))
	viper.BindPFlag("ingest.dryRun", ingestCmd.Flags().Lookup("dry-run"))
}

func RunIngest(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	extraction, err := rpc.Initialize()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize RPC")
	}
	defer extraction.Close()

	store, err := storage.NewCassandraStore(&config.Cfg.Cassandra)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the store")
	}
	defer store.Close()

	scheduler, err := orchestrator.NewScheduler(extraction, store, orchestrator.OptionsFromConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	startBlock, endBlock, err := scheduler.ResolveRange(ctx,
		config.Cfg.Ingest.StartBlock, config.Cfg.Ingest.EndBlock, config.Cfg.Ingest.Resume)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve block range")
	}

	if err := scheduler.Run(ctx, startBlock, endBlock); err != nil {
		log.Fatal().Err(err).Msg("Ingest failed")
	}
}
