package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configs "github.com/graphsense/eth-ingest/configs"
	customLogger "github.com/graphsense/eth-ingest/internal/log"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "eth-ingest",
		Short: "Ingest Ethereum blocks, transactions, traces and logs into a raw keyspace",
		Long: "eth-ingest exports blocks, transactions, traces and logs from an " +
			"Ethereum client and writes them into a partitioned raw keyspace, " +
			"or into CSV/parquet file batches.",
		Run: RunIngest,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yml)")
	// flag defaults mirror setDefaults in configs/config.go, bound flags
	// shadow viper defaults
	rootCmd.PersistentFlags().StringP("provider-uri", "w", "", "JSON-RPC endpoint of the Ethereum client")
	rootCmd.PersistentFlags().Int("timeout", 180, "JSON-RPC timeout in seconds")
	rootCmd.PersistentFlags().StringSliceP("db-nodes", "d", []string{"localhost"}, "Cassandra node addresses")
	rootCmd.PersistentFlags().StringP("keyspace", "k", "", "target keyspace")
	rootCmd.PersistentFlags().Int64P("start-block", "s", 0, "first block of the range")
	rootCmd.PersistentFlags().Int64P("end-block", "e", -1, "last block of the range (default: latest block)")
	rootCmd.PersistentFlags().Int64("batch-size", 10, "number of blocks per extraction window")
	rootCmd.PersistentFlags().String("log-level", "", "log level")
	rootCmd.PersistentFlags().Bool("log-prettify", false, "prettify the log output")
	viper.BindPFlag("rpc.url", rootCmd.PersistentFlags().Lookup("provider-uri"))
	viper.BindPFlag("rpc.timeoutSeconds", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("cassandra.hosts", rootCmd.PersistentFlags().Lookup("db-nodes"))
	viper.BindPFlag("cassandra.keyspace", rootCmd.PersistentFlags().Lookup("keyspace"))
	viper.BindPFlag("ingest.startBlock", rootCmd.PersistentFlags().Lookup("start-block"))
	viper.BindPFlag("ingest.endBlock", rootCmd.PersistentFlags().Lookup("end-block"))
	viper.BindPFlag("ingest.batchSize", rootCmd.PersistentFlags().Lookup("batch-size"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.prettify", rootCmd.PersistentFlags().Lookup("log-prettify"))

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(createKeyspaceCmd)
	rootCmd.AddCommand(infoCmd)
}

func initConfig() {
	configs.LoadConfig(cfgFile)
	customLogger.InitLogger()
}
