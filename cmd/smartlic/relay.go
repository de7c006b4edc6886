// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tjsasakifln/PNCP-poc-sub006/internal/relay"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the local progress relay server",
	Long: `Relay runs a local HTTP server that proxies the backend's search
progress stream. Browser-based consumers that cannot reach the backend
directly point their EventSource at the relay instead; upstream failures
are mapped to conventional gateway status codes.`,
	RunE: runRelay,
}

func init() {
	relayCmd.Flags().String("listen", "", "listen address (default 127.0.0.1:8787)")

	rootCmd.AddCommand(relayCmd)
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg := clientConfig(cmd)
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Relay.Listen = listen
	}
	if cfg.Relay.Upstream == "" {
		return fmt.Errorf("no upstream configured: set --base-url or relay.upstream")
	}

	srv := relay.NewServer(cfg.Relay, nil, newLogger(cmd))
	return srv.ListenAndServe(cmd.Context())
}
