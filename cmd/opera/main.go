// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the opera CLI, a collaborative OSINT
// research pipeline: project items feed generated search queries, search
// results are scraped and mined for entities and locations, and novel
// findings queue up for human review.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meshintel/opera/internal/secrets"
	"github.com/meshintel/opera/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, else the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the opera CLI.
var rootCmd = &cobra.Command{
	Use:   "opera",
	Short: "Automated OSINT research pipeline",
	Long: `opera runs automated research cycles over a project's items of interest:
it generates search queries from the items, fans them out to web search
providers, scrapes and mines the results for people, organizations, and
locations, cross-references the findings against what the project already
knows, and queues the novel ones for human review.

Approving a finding promotes it into the project and may trigger a
background scrape of its source page, feeding further findings back into
the review queue.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./opera.yaml or ~/.config/opera/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("opera")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "opera"))
		}
	}

	viper.SetEnvPrefix("OPERA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective configuration: built-in defaults,
// overridden by the config file and environment, with provider API keys
// falling back to .secrets/ files.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Search.BingAPIKey = secretDefault("bing-api-key", cfg.Search.BingAPIKey)
	cfg.Search.GoogleAPIKey = secretDefault("google-api-key", cfg.Search.GoogleAPIKey)
	cfg.Search.GoogleCX = secretDefault("google-cx", cfg.Search.GoogleCX)
	return cfg, nil
}

// newLogger builds the CLI logger. Debug level with --verbose.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
