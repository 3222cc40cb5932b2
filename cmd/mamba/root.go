package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "mamba",
	Short: "Mamba - rotating proxy for Cloudflare AI Gateway",
	Long: `Mamba is a reverse proxy for OpenAI-compatible API traffic.

It forwards requests to a Cloudflare AI Gateway, providing:
  - Round-robin rotation across gateway credentials
  - Per-provider API key rotation
  - Synthesized SSE streams from buffered gateway responses
  - Request auditing and Prometheus metrics

For more information, visit: https://github.com/mamba-hq/mamba`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
