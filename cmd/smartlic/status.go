// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tjsasakifln/PNCP-poc-sub006/internal/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check backend connectivity",
	Long: `Status probes the backend health endpoint and reports whether searches
can be expected to work. With --watch the probe repeats on the configured
interval and prints transitions until interrupted.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("watch", false, "keep polling and print status transitions")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := clientConfig(cmd)
	logger := newLogger(cmd)
	ctx := cmd.Context()

	monitor := health.NewMonitor(cfg.Health, nil, logger)
	monitor.Start(ctx)
	defer monitor.Stop()

	// The first poll runs immediately; give it a moment to land.
	time.Sleep(100 * time.Millisecond)

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		st := monitor.Status()
		printStatus(st)
		if st == health.StatusOffline {
			return fmt.Errorf("backend offline")
		}
		return nil
	}

	last := health.Status("")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st := monitor.Status()
			if st != last {
				fmt.Fprintf(os.Stderr, "%s  ", time.Now().Format("15:04:05"))
				printStatus(st)
				last = st
			}
		}
	}
}

func printStatus(st health.Status) {
	switch st {
	case health.StatusOnline:
		fmt.Println("online: o backend está respondendo normalmente.")
	case health.StatusRecovering:
		fmt.Println("recuperando: o backend voltou a responder há instantes.")
	default:
		fmt.Println("offline: o backend não está respondendo.")
	}
}
