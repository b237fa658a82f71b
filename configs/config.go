package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Prettify bool   `mapstructure:"prettify"`
}

type RPCConfig struct {
	URL                string `mapstructure:"url"`
	TimeoutSeconds     int    `mapstructure:"timeoutSeconds"`
	BlocksPerRequest   int    `mapstructure:"blocksPerRequest"`
	ReceiptsPerRequest int    `mapstructure:"receiptsPerRequest"`
	TracesPerRequest   int    `mapstructure:"tracesPerRequest"`
}

type CassandraConfig struct {
	Hosts          []string `mapstructure:"hosts"`
	Keyspace       string   `mapstructure:"keyspace"`
	TimeoutSeconds int      `mapstructure:"timeoutSeconds"`
}

type TracesConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IncludeGenesis  bool `mapstructure:"includeGenesis"`
	IncludeDaoFork  bool `mapstructure:"includeDaoFork"`
	OnlySuccessful  bool `mapstructure:"onlySuccessful"`
	ExcludeDelegate bool `mapstructure:"excludeDelegate"`
}

type IngestConfig struct {
	StartBlock       int64 `mapstructure:"startBlock"`
	EndBlock         int64 `mapstructure:"endBlock"`
	BatchSize        int64 `mapstructure:"batchSize"`
	WriteConcurrency int   `mapstructure:"writeConcurrency"`
	MaxRetries       int   `mapstructure:"maxRetries"`
	RetryBackoffMs   int   `mapstructure:"retryBackoffMs"`
	Resume           bool  `mapstructure:"resume"`
	DryRun           bool  `mapstructure:"dryRun"`
}

type PartitionConfig struct {
	BlockBucketSize int64 `mapstructure:"blockBucketSize"`
	TxHashPrefixLen int   `mapstructure:"txHashPrefixLen"`
}

type ExportConfig struct {
	Directory          string `mapstructure:"directory"`
	Format             string `mapstructure:"format"`
	FileBatchSize      int64  `mapstructure:"fileBatchSize"`
	PartitionBatchSize int64  `mapstructure:"partitionBatchSize"`
	Continue           bool   `mapstructure:"continue"`
}

type Config struct {
	RPC       RPCConfig       `mapstructure:"rpc"`
	Log       LogConfig       `mapstructure:"log"`
	Cassandra CassandraConfig `mapstructure:"cassandra"`
	Traces    TracesConfig    `mapstructure:"traces"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Partition PartitionConfig `mapstructure:"partition"`
	Export    ExportConfig    `mapstructure:"export"`
}

var Cfg Config

func LoadConfig(cfgFile string) error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file, %s", err)
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./configs")
		// config file is optional, flags and env vars may carry everything
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading config file, %s", err)
			}
		}
	}

	// sets e.g. CASSANDRA_KEYSPACE to cassandra.keyspace
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv()

	err := viper.Unmarshal(&Cfg)
	if err != nil {
		return fmt.Errorf("error unmarshalling config: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("rpc.timeoutSeconds", 180)
	viper.SetDefault("rpc.blocksPerRequest", 50)
	viper.SetDefault("rpc.receiptsPerRequest", 190)
	viper.SetDefault("rpc.tracesPerRequest", 10)
	viper.SetDefault("cassandra.hosts", []string{"localhost"})
	viper.SetDefault("cassandra.timeoutSeconds", 60)
	viper.SetDefault("traces.enabled", true)
	viper.SetDefault("ingest.batchSize", 10)
	viper.SetDefault("ingest.writeConcurrency", 100)
	viper.SetDefault("ingest.maxRetries", 10)
	viper.SetDefault("ingest.retryBackoffMs", 1000)
	viper.SetDefault("ingest.endBlock", -1)
	viper.SetDefault("partition.blockBucketSize", 100_000)
	viper.SetDefault("partition.txHashPrefixLen", 4)
	viper.SetDefault("export.format", "csv")
	viper.SetDefault("export.fileBatchSize", 1000)
	viper.SetDefault("export.partitionBatchSize", 1_000_000)
}
