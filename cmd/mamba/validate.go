package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mamba-hq/mamba/pkg/cli"
	"mamba-hq/mamba/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load and validate the configuration file without starting the server.

All validation errors are reported at once, each with the dotted path of
the offending field, so a broken config can be fixed in one pass.

Examples:
  # Validate the default config
  mamba validate

  # Validate a specific file
  mamba validate --config /etc/mamba/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("Configuration invalid: %s\n\n", cfgFile)
			for _, fe := range verr.Errors {
				fmt.Printf("  ✗ %s: %s\n", fe.Field, fe.Message)
			}
			fmt.Printf("\n%d error(s) found\n", len(verr.Errors))
			return cli.NewCommandError("validate", fmt.Errorf("%d validation error(s)", len(verr.Errors)))
		}
		return cli.NewConfigError("", err.Error())
	}

	fmt.Printf("Configuration valid: %s\n\n", cfgFile)
	fmt.Printf("  Listen address:  %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  Gateways:        %d\n", len(cfg.Gateways))
	for _, g := range cfg.Gateways {
		fmt.Printf("    - %s/%s (token %s)\n", g.AccountID, g.GatewayID, cli.MaskCredential(g.Token))
	}
	fmt.Printf("  Providers:       %d\n", len(cfg.Providers))
	for name, p := range cfg.Providers {
		fmt.Printf("    - %s: %d key(s)", name, len(p.APIKeys))
		if p.TestModel != "" {
			fmt.Printf(", test model %s", p.TestModel)
		}
		fmt.Println()
	}
	fmt.Printf("  Audit log:       %v\n", cfg.Audit.Enabled)
	fmt.Printf("  Metrics:         %v\n", cfg.Telemetry.Metrics.Enabled)
	fmt.Printf("  Hot reload:      %v\n", cfg.Reload.Watch)

	return nil
}
