// updrift aggregates job listings from several job-board APIs behind one
// search endpoint.
//
//	updrift serve               HTTP API, gRPC health, maintenance cron
//	updrift search <query>      one search from the terminal
//	updrift quota               quota table from a running server
//	updrift suggest <text>      location autocomplete
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ChristinaDay/updrift-sub001/internal/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "updrift",
	Short:         "Multi-provider job search aggregator",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, searchCmd, quotaCmd, suggestCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig is shared by every subcommand.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
