package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/tweetloader/internal/config"
)

var (
	envName    string
	configPath string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tweetloader",
	Short: "Load keyword search results into a document store",
	Long: `tweetloader pages through a keyword search, normalizes every eligible
tweet into a canonical document and writes it idempotently to the configured store.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "Config environment (config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Explicit config file, overrides --env")
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(envName)
}
