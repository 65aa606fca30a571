package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"S3Joiner/internal/config"
)

var (
	configPathFlag string
	logLevelFlag   string
	logFormatFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "s3joiner",
	Short: "Join date-partitioned shard files in S3 into one daily object",
	Long: "S3joiner lists the shard files under a dated prefix (e.g. kinesis-output/20211212), " +
		"orders them by their part/split numbers and streams them into a single object " +
		"(e.g. lambda-output/20211213.csv) without buffering the whole day in memory.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPathFlag != "" {
			return os.Setenv(config.EnvConfigPath, configPathFlag)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "Config file (default $"+config.EnvConfigPath+" or "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: console or json (overrides log.format)")
}

func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}
