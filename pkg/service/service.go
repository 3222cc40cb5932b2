// Package service installs and removes the systemd unit for the proxy.
package service

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

const (
	// UnitName is the systemd unit name.
	UnitName = "mamba.service"

	// UnitPath is where the unit file is installed.
	UnitPath = "/etc/systemd/system/mamba.service"
)

// unitTemplate is the installed unit file. User=root is required to bind
// privileged ports such as 443.
const unitTemplate = `[Unit]
Description=Mamba - AI gateway proxy
After=network.target

[Service]
Type=simple
User=root
WorkingDirectory=%s
ExecStart=%s run --config %s
Restart=always
RestartSec=5
StandardOutput=journal
StandardError=journal

[Install]
WantedBy=multi-user.target
`

// Install writes the unit file, reloads systemd, and enables and starts the
// service. configPath is passed to the run command so the service uses the
// same configuration the operator installed with.
func Install(configPath string) error {
	logger := slog.Default().With("component", "service")

	if os.Geteuid() != 0 {
		return fmt.Errorf("installing the service requires root; run with sudo")
	}

	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving binary path: %w", err)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	fmt.Println("Service configuration:")
	fmt.Printf("  binary:            %s\n", binaryPath)
	fmt.Printf("  working directory: %s\n", workingDir)
	fmt.Printf("  config:            %s\n", configPath)
	fmt.Printf("  unit file:         %s\n", UnitPath)

	unit := fmt.Sprintf(unitTemplate, workingDir, binaryPath, configPath)
	if err := os.WriteFile(UnitPath, []byte(unit), 0o644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}
	logger.Info("unit file written", "path", UnitPath)

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", UnitName},
		{"start", UnitName},
	} {
		if err := runSystemctl(args...); err != nil {
			return err
		}
	}

	fmt.Println("Service installed and started.")
	fmt.Println("Useful commands:")
	fmt.Printf("  sudo systemctl status %s\n", UnitName)
	fmt.Printf("  sudo journalctl -u %s -f\n", UnitName)
	return nil
}

// Uninstall stops and disables the service and removes the unit file.
// A missing unit file is not an error.
func Uninstall() error {
	logger := slog.Default().With("component", "service")

	if os.Geteuid() != 0 {
		return fmt.Errorf("removing the service requires root; run with sudo")
	}

	if _, err := os.Stat(UnitPath); os.IsNotExist(err) {
		fmt.Printf("Unit file not found: %s (already removed?)\n", UnitPath)
		return nil
	}

	// Stop and disable are best-effort; the unit may already be inactive.
	if err := runSystemctl("stop", UnitName); err != nil {
		logger.Warn("stopping service", "error", err)
	}
	if err := runSystemctl("disable", UnitName); err != nil {
		logger.Warn("disabling service", "error", err)
	}

	if err := os.Remove(UnitPath); err != nil {
		return fmt.Errorf("removing unit file: %w", err)
	}
	logger.Info("unit file removed", "path", UnitPath)

	if err := runSystemctl("daemon-reload"); err != nil {
		logger.Warn("reloading systemd", "error", err)
	}

	fmt.Println("Service stopped and uninstalled.")
	return nil
}

// IsActive reports whether the service unit is currently running.
func IsActive() bool {
	err := exec.Command("systemctl", "is-active", "--quiet", UnitName).Run()
	return err == nil
}

// Restart restarts the service unit.
func Restart() error {
	return runSystemctl("restart", UnitName)
}

// UnitInstalled reports whether the unit file exists.
func UnitInstalled() bool {
	_, err := os.Stat(UnitPath)
	return err == nil
}

func runSystemctl(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %v: %w: %s", args, err, out)
	}
	return nil
}
