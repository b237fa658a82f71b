package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	config "github.com/graphsense/eth-ingest/configs"
	"github.com/graphsense/eth-ingest/internal/export"
	"github.com/graphsense/eth-ingest/internal/rpc"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a block range to partitioned CSV or parquet files",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		extraction, err := rpc.Initialize()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize RPC")
		}
		defer extraction.Close()

		exporter, err := export.NewExporter(extraction, export.OptionsFromConfig())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create exporter")
		}

		startBlock, endBlock, err := exporter.ResolveRange(ctx,
			config.Cfg.Ingest.StartBlock, config.Cfg.Ingest.EndBlock, config.Cfg.Export.Continue)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve block range")
		}

		if err := exporter.Run(ctx, startBlock, endBlock); err != nil {
			log.Fatal().Err(err).Msg("Export failed")
		}
	},
}

func init() {
	// -d is taken by the persistent db-nodes flag
	exportCmd.Flags().String("directory", "", "base output directory")
	exportCmd.Flags().String("format", "csv", "output format, csv or parquet")
	exportCmd.Flags().Int64("file-batch-size", 1000, "number of blocks per output file")
	exportCmd.Flags().Int64("partition-batch-size", 1_000_000, "number of blocks per partition directory")
	exportCmd.Flags().BoolP("continue", "c", false, "continue after the last exported file")
	viper.BindPFlag("export.directory", exportCmd.Flags().Lookup("directory"))
	viper.BindPFlag("export.format", exportCmd.Flags().Lookup("format"))
	viper.BindPFlag("export.fileBatchSize", exportCmd.Flags().Lookup("file-batch-size"))
	viper.BindPFlag("export.partitionBatchSize", exportCmd.Flags().Lookup("partition-batch-size"))
	viper.BindPFlag("export.continue", exportCmd.Flags().Lookup("continue"))
}
