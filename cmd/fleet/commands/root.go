package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openfleet/openfleet/pkg/config"
	"github.com/openfleet/openfleet/pkg/fleet"
	"github.com/openfleet/openfleet/pkg/fly"
	"github.com/openfleet/openfleet/pkg/telemetry"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fleet",
		Short: "OpenFleet - Fly.io fleet orchestration",
		Long: `OpenFleet drives app, machine, volume, address, and secret state
on the Fly.io Machines API.

Features:
  - Idempotent create and delete for every resource
  - Convergence waits on machine state with bounded backoff
  - Classified errors (not_found, conflict, transient, timeout)
  - Secret reconciliation that never logs or stores values
  - A secret intake webhook for push-style updates`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newAppsCommand())
	rootCmd.AddCommand(newMachinesCommand())
	rootCmd.AddCommand(newVolumesCommand())
	rootCmd.AddCommand(newIPsCommand())
	rootCmd.AddCommand(newSecretsCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}

// runtime bundles the configured dependencies a command needs.
type runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	ops     *fleet.Operations
}

// newRuntime loads configuration and wires the operations facade.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := telemetry.NewLogger(cfg.Telemetry.Logging)
	if err != nil {
		return nil, err
	}
	metrics := telemetry.NewMetrics(cfg.Telemetry.Metrics)
	tracer, err := telemetry.NewTracer(cfg.Telemetry.Tracing,
		cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Telemetry.Environment)
	if err != nil {
		return nil, err
	}

	var transportOpts []fly.HTTPTransportOption
	if cfg.BaseURL != "" {
		transportOpts = append(transportOpts, fly.WithBaseURL(cfg.BaseURL))
	}
	transport, err := fly.NewHTTPTransport(cfg.APIToken, transportOpts...)
	if err != nil {
		return nil, err
	}

	ops := fleet.NewOperations(fly.NewClient(transport),
		fleet.WithLogger(logger),
		fleet.WithMetrics(metrics),
		fleet.WithTracer(tracer),
		fleet.WithRetryPolicy(fleet.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay.Std(),
			MaxDelay:    cfg.Retry.MaxDelay.Std(),
		}),
		fleet.WithWaitPolicy(fleet.WaitPolicy{
			InitialDelay: cfg.Wait.InitialDelay.Std(),
			Multiplier:   cfg.Wait.Multiplier,
			MaxDelay:     cfg.Wait.MaxDelay.Std(),
			Deadline:     cfg.Wait.Deadline.Std(),
		}),
	)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		ops:     ops,
	}, nil
}

func (r *runtime) close(ctx context.Context) {
	if err := r.tracer.Shutdown(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("tracer shutdown failed")
	}
}

// appName resolves the app an operation targets: the flag wins, the
// configured default fills in.
func (r *runtime) appName(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if r.cfg.AppName != "" {
		return r.cfg.AppName, nil
	}
	return "", fmt.Errorf("no app specified: pass --app or set FLY_APP_NAME")
}

// printResult writes a command result to stdout, as indented JSON when
// --json is set and as a one-value-per-line summary otherwise.
func printResult(v any) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	switch val := v.(type) {
	case string:
		fmt.Println(val)
		return nil
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
}
