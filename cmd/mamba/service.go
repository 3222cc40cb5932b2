package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"mamba-hq/mamba/pkg/cli"
	"mamba-hq/mamba/pkg/config"
	"mamba-hq/mamba/pkg/service"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the systemd service",
	Long: `Install or remove the systemd unit that runs the proxy at boot.

Both subcommands require root.

Examples:
  # Install and start the service
  sudo mamba service install --config /etc/mamba/config.yaml

  # Stop and remove the service
  sudo mamba service uninstall`,
}

var serviceInstallCmd = &cobra.Command{
	Use:     "install",
	Aliases: []string{"start"},
	Short:   "Install, enable, and start the systemd service",
	RunE:    installService,
}

var serviceUninstallCmd = &cobra.Command{
	Use:     "uninstall",
	Aliases: []string{"stop"},
	Short:   "Stop, disable, and remove the systemd service",
	RunE:    uninstallService,
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)
}

func installService(cmd *cobra.Command, args []string) error {
	// The unit references the config by absolute path; validate it now so
	// the service does not crash-loop on a broken file.
	configPath, err := filepath.Abs(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to resolve config path: %v", err))
	}
	if _, err := config.LoadWithEnvOverrides(configPath); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("refusing to install with invalid config: %v", err))
	}

	if err := service.Install(configPath); err != nil {
		return cli.NewCommandError("service install", err)
	}

	fmt.Printf("Installed %s\n", service.UnitPath)
	fmt.Println("Service enabled and started")
	fmt.Println("  systemctl status " + service.UnitName)
	return nil
}

func uninstallService(cmd *cobra.Command, args []string) error {
	if err := service.Uninstall(); err != nil {
		return cli.NewCommandError("service uninstall", err)
	}

	fmt.Println("Service stopped and removed")
	return nil
}
