// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tjsasakifln/PNCP-poc-sub006/internal/setores"
)

var setoresCmd = &cobra.Command{
	Use:   "setores",
	Short: "List the sectors available for search",
	Long: `Setores prints the sector reference list. The list is fetched from the
backend with retries and cached locally; when the backend is unreachable a
previously cached list is served (marked stale when past its freshness
window), and failing that a built-in fallback list.`,
	RunE: runSetores,
}

func init() {
	setoresCmd.Flags().Bool("json", false, "output the sector list as JSON")
	setoresCmd.Flags().Bool("refresh", false, "ignore the cached list and fetch")

	rootCmd.AddCommand(setoresCmd)
}

func runSetores(cmd *cobra.Command, args []string) error {
	cfg := clientConfig(cmd)
	logger := newLogger(cmd)

	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		os.Remove(cfg.Setores.CachePath)
	}

	cache := setores.New(cfg.Setores, nil, nil, logger)
	cache.Load(cmd.Context())
	defer cache.Stop()

	state := cache.Snapshot()

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state.Sectors)
	}

	for _, s := range state.Sectors {
		fmt.Printf("%-24s  %s\n", s.ID, s.Nome)
	}

	switch {
	case state.UsingFallback:
		fmt.Fprintln(os.Stderr, "\nAviso: backend indisponível, exibindo a lista interna de setores.")
	case state.UsingStaleCache:
		age := 0
		if state.StaleCacheAge != nil {
			age = *state.StaleCacheAge
		}
		fmt.Fprintf(os.Stderr, "\nAviso: backend indisponível, exibindo lista em cache de %d minuto(s) atrás.\n", age)
	}
	return nil
}
