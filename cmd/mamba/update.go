package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mamba-hq/mamba/pkg/cli"
	"mamba-hq/mamba/pkg/selfupdate"
	"mamba-hq/mamba/pkg/service"
)

var updateFlags struct {
	yes       bool
	token     string
	repoOwner string
	repoName  string
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update to the latest release",
	Long: `Check GitHub for a newer release and replace the running binary.

When the systemd service is installed and active, it is restarted after
a successful update so the new binary takes over.

Examples:
  # Interactive update
  mamba update

  # Non-interactive (for scripts)
  mamba update --yes

  # Private repository
  mamba update --token $GITHUB_TOKEN`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolVarP(&updateFlags.yes, "yes", "y", false, "skip confirmation prompt")
	updateCmd.Flags().StringVar(&updateFlags.token, "token", "", "GitHub API token (defaults to GITHUB_TOKEN)")
	updateCmd.Flags().StringVar(&updateFlags.repoOwner, "repo-owner", "mamba-hq", "GitHub repository owner")
	updateCmd.Flags().StringVar(&updateFlags.repoName, "repo-name", "mamba", "GitHub repository name")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	updater := selfupdate.New(selfupdate.Options{
		RepoOwner:      updateFlags.repoOwner,
		RepoName:       updateFlags.repoName,
		CurrentVersion: Version,
		Token:          updateFlags.token,
	})

	fmt.Printf("Current version: %s\n", Version)
	fmt.Println("Checking for updates...")

	release, err := updater.LatestRelease(ctx)
	if err != nil {
		return cli.NewCommandError("update", fmt.Errorf("failed to check latest release: %w", err))
	}

	latest := release.Version()
	if !updater.NeedsUpdate(latest) {
		fmt.Printf("Already up to date (latest: %s)\n", latest)
		return nil
	}

	fmt.Printf("New version available: %s\n", latest)

	if !updateFlags.yes {
		fmt.Print("Update now? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return cli.NewCommandError("update", fmt.Errorf("failed to read confirmation: %w", err))
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Update cancelled")
			return nil
		}
	}

	fmt.Printf("Downloading %s...\n", latest)
	if err := updater.Apply(ctx, release); err != nil {
		return cli.NewCommandError("update", fmt.Errorf("update failed: %w", err))
	}
	fmt.Printf("Updated to %s\n", latest)

	// Restart the service so the new binary takes over. Failures here are
	// warnings: the update itself already succeeded.
	if service.UnitInstalled() && service.IsActive() {
		fmt.Println("Restarting service...")
		if err := service.Restart(); err != nil {
			slog.Warn("failed to restart service after update", "error", err)
			fmt.Println("Warning: service restart failed; restart it manually:")
			fmt.Println("  sudo systemctl restart " + service.UnitName)
			return nil
		}
		fmt.Println("Service restarted")
	}

	return nil
}
