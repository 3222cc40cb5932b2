package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mamba-hq/mamba/pkg/audit"
	"mamba-hq/mamba/pkg/config"
	"mamba-hq/mamba/pkg/probe"
	"mamba-hq/mamba/pkg/proxy"
	"mamba-hq/mamba/pkg/rotation"
	"mamba-hq/mamba/pkg/server"
	"mamba-hq/mamba/pkg/telemetry/logging"
	"mamba-hq/mamba/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the proxy server",
	Long: `Start the proxy server with the specified configuration.

The server forwards every request to the configured AI gateway, rotating
gateway credentials and provider API keys round-robin across requests.

Examples:
  # Start with default config
  mamba run

  # Start with custom config
  mamba run --config /etc/mamba/config.yaml

  # Override listen address
  mamba run --listen 0.0.0.0:8080

  # Validate config without starting the server
  mamba run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if _, err := logging.Setup(&cfg.Telemetry.Logging); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("Configuration valid")
		return nil
	}

	fmt.Printf("Mamba v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	state, err := buildRotation(cfg)
	if err != nil {
		return err
	}
	holder := rotation.NewHolder(state)
	fmt.Printf("Rotation initialized (%d gateways, %d provider pools)\n",
		state.GatewayCount(), len(cfg.Providers))

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Audit recording, if enabled.
	var recorder *audit.Recorder
	if cfg.Audit.Enabled {
		storeCfg := audit.DefaultStoreConfig()
		storeCfg.Path = cfg.Audit.SQLitePath
		store, err := audit.NewStore(storeCfg)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer store.Close()

		recorder = audit.NewRecorder(store, cfg.Audit.BufferSize, collector)
		defer recorder.Close()

		pruner := audit.NewPruner(store, &audit.PrunerConfig{
			RetentionDays: cfg.Audit.RetentionDays,
			Schedule:      cfg.Audit.PruneSchedule,
		})
		if err := pruner.Start(ctx); err != nil {
			slog.Warn("failed to start audit pruner", "error", err)
		} else {
			defer pruner.Stop()
		}

		fmt.Printf("Audit log enabled (%s)\n", cfg.Audit.SQLitePath)
	}

	// Reachability probes: one at startup, then on schedule if configured.
	prober := probe.New(cfg.Upstream.ProbeURL, cfg.Upstream.ProbeSchedule, collector)
	if err := prober.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reachability prober: %w", err)
	}

	forwarder := proxy.NewForwarder(holder, cfg.Upstream, collector, recorder, slog.Default())
	srv := server.NewServer(&cfg.Server, &cfg.Security, &cfg.Telemetry.Metrics, forwarder, collector)

	// Hot reload swaps the rotation state in place; in-flight requests
	// finish against the state they loaded.
	if cfg.Reload.Watch {
		watcher, err := config.NewWatcher(cfgFile, cfg.Reload.Debounce, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		go func() {
			err := watcher.Watch(ctx, func() error {
				newCfg, err := config.LoadWithEnvOverrides(cfgFile)
				if err != nil {
					return err
				}
				newState, err := buildRotation(newCfg)
				if err != nil {
					return err
				}
				holder.Swap(newState)
				slog.Info("rotation state reloaded",
					"gateways", newState.GatewayCount(),
					"providers", len(newCfg.Providers),
				)
				return nil
			})
			if err != nil {
				slog.Error("config watcher exited", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	fmt.Printf("Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Println("Press Ctrl+C to stop")

	// Start blocks until a signal, context cancellation, or server error.
	return srv.Start(ctx)
}

// buildRotation converts configuration entries into rotation state.
func buildRotation(cfg *config.Config) (*rotation.State, error) {
	gateways := make([]rotation.Credential, len(cfg.Gateways))
	for i, g := range cfg.Gateways {
		gateways[i] = rotation.Credential{
			AccountID: g.AccountID,
			GatewayID: g.GatewayID,
			Token:     g.Token,
		}
	}

	providerKeys := make(map[string][]string, len(cfg.Providers))
	for name, p := range cfg.Providers {
		providerKeys[name] = p.APIKeys
	}

	state, err := rotation.New(gateways, providerKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to build rotation state: %w", err)
	}
	return state, nil
}
