// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the smartlic CLI, a client for the
// SmartLic procurement search backend. Subcommands cover search execution,
// sector listing, saved searches, backend status, the local progress relay,
// and account access.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tjsasakifln/PNCP-poc-sub006/internal/secrets"
	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API tokens loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the named secret.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the smartlic CLI.
var rootCmd = &cobra.Command{
	Use:   "smartlic",
	Short: "Procurement opportunity search for Brazilian public tenders",
	Long: `smartlic searches Brazilian public procurement sources (PNCP and state
portals) for opportunities matching a sector, keyword, and date range. The
backend performs the search and classification; this CLI drives it, renders
live progress, and keeps local state such as saved searches.

Searches degrade gracefully: transient backend failures retry automatically
with a visible countdown, and results carry a reliability score derived from
source coverage and data freshness.`,
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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./smartlic.yaml or ~/.config/smartlic/config.yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().String("token", "", "API token (overrides the smartlic-api-token secret)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("smartlic")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "smartlic"))
		}
	}

	viper.SetEnvPrefix("SMARTLIC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// clientConfig assembles the typed configuration: defaults, then the config
// file and environment, then command-line overrides.
func clientConfig(cmd *cobra.Command) types.ClientConfig {
	cfg := types.DefaultClientConfig()

	if v := viper.GetString("base_url"); v != "" {
		cfg.Busca.BaseURL = v
		cfg.Setores.BaseURL = v
		cfg.Session.BaseURL = v
		cfg.Relay.Upstream = v
		cfg.Health.URL = v + "/health"
	}
	if v := viper.GetDuration("busca.timeout"); v > 0 {
		cfg.Busca.Timeout = v
	}
	if v := viper.GetInt("busca.retry_countdown"); v > 0 {
		cfg.Busca.RetryCountdown = v
	}
	if v := viper.GetDuration("setores.ttl"); v > 0 {
		cfg.Setores.TTL = v
	}
	if v := viper.GetString("setores.cache_path"); v != "" {
		cfg.Setores.CachePath = v
	}
	if v := viper.GetDuration("health.poll_interval"); v > 0 {
		cfg.Health.PollInterval = v
	}
	if v := viper.GetString("relay.listen"); v != "" {
		cfg.Relay.Listen = v
	}
	if v := viper.GetString("salvas.path"); v != "" {
		cfg.Salvas.Path = v
	}
	if viper.IsSet("track.enabled") {
		cfg.Track.Enabled = viper.GetBool("track.enabled")
	}
	if v := viper.GetString("track.endpoint"); v != "" {
		cfg.Track.Endpoint = v
	}
	cfg.Track.Token = secretDefault("mixpanel-token", cfg.Track.Token)

	if flag, _ := cmd.Flags().GetString("base-url"); flag != "" {
		cfg.Busca.BaseURL = flag
		cfg.Setores.BaseURL = flag
		cfg.Session.BaseURL = flag
		cfg.Relay.Upstream = flag
		cfg.Health.URL = flag + "/health"
	}
	return cfg
}

// apiToken resolves the backend token: flag first, then secrets, then env.
func apiToken(cmd *cobra.Command) string {
	flag, _ := cmd.Flags().GetString("token")
	if tok := secretDefault("smartlic-api-token", flag); tok != "" {
		return tok
	}
	return viper.GetString("api_token")
}

// newLogger builds the process logger. Debug output goes to stderr only
// when --verbose is set; otherwise logging is silent so the rendered
// progress output stays clean.
func newLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// searchEstimate is the client-side duration estimate used only for the
// reassurance copy tiers. Scales with the number of states searched.
func searchEstimate(ufs int) time.Duration {
	if ufs <= 0 {
		ufs = 27
	}
	return 15*time.Second + time.Duration(ufs)*2*time.Second
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
