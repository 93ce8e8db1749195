// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

// Package main is the jellarr command.
//
// jellarr reads a declarative manifest of a Jellyfin server's configuration
// (system settings, encoding, branding, libraries, users, plugins and the
// startup wizard), waits for the server, optionally bootstraps an API key,
// converges the server to the manifest and verifies the result.
//
// # Modes
//
// One-shot (default, or --once): one run, a human summary on stdout and an
// exit code:
//
//	0  converged and compliant
//	1  a domain failed or the server does not match the manifest
//	2  the server never became ready
//	3  credential bootstrap failed
//	4  invalid agent config or manifest
//
// Daemon (--interval > 0): runs on every interval under a supervisor tree
// and, with --metrics-addr, serves /metrics, /healthz and /report.
//
// # Configuration
//
// Agent settings come from built-in defaults, an optional YAML file
// (--agent-config or JELLARR_AGENT_CONFIG), JELLARR_* environment variables
// and finally the flags below.
//
//	JELLARR_API_KEY=... jellarr --config /etc/jellarr/config.yml
//	jellarr --config config.yml --dry-run
//	jellarr --config config.yml --interval 10m --metrics-addr :9464
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/venkyr77/jellarr/internal/agent"
	"github.com/venkyr77/jellarr/internal/api"
	"github.com/venkyr77/jellarr/internal/config"
	"github.com/venkyr77/jellarr/internal/logging"
	"github.com/venkyr77/jellarr/internal/supervisor"
	"github.com/venkyr77/jellarr/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// cliOptions are the parsed command line.
type cliOptions struct {
	agentConfig string
	overrides   map[string]interface{}
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	fs := pflag.NewFlagSet("jellarr", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	manifestPath := fs.String("config", config.DefaultManifestPath, "path of the manifest describing the desired server configuration")
	agentConfig := fs.String("agent-config", "", "path of the agent settings file (default $"+config.ConfigPathEnvVar+")")
	once := fs.Bool("once", false, "run once and exit even if an interval is configured")
	interval := fs.Duration("interval", 0, "reconcile every interval and keep running")
	dryRun := fs.Bool("dry-run", false, "plan and report changes without applying them")
	logLevel := fs.String("log-level", "", "log level: trace, debug, info, warn, error")
	metricsAddr := fs.String("metrics-addr", "", "listen address for /metrics, /healthz and /report in daemon mode")
	showVersion := fs.Bool("version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	// Only flags the user set override the file and environment.
	overrides := map[string]interface{}{}
	if fs.Changed("config") {
		overrides["manifest.path"] = *manifestPath
	}
	if fs.Changed("interval") {
		overrides["daemon.interval"] = *interval
	}
	if *once {
		overrides["daemon.interval"] = time.Duration(0)
	}
	if fs.Changed("dry-run") {
		overrides["dry_run"] = *dryRun
	}
	if fs.Changed("log-level") {
		overrides["logging.level"] = *logLevel
	}
	if fs.Changed("metrics-addr") {
		overrides["daemon.metrics_addr"] = *metricsAddr
	}

	return cliOptions{agentConfig: *agentConfig, overrides: overrides, showVersion: *showVersion}, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return agent.ExitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return agent.ExitInvalidInput
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, "jellarr", version)
		return agent.ExitOK
	}

	cfg, err := config.Load(config.LoadOptions{Path: opts.agentConfig, Overrides: opts.overrides})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return agent.ExitInvalidInput
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    stderr,
		Fields:    map[string]string{"version": version},
	})

	a := agent.New(agent.Options{Config: cfg, Version: version})

	if !cfg.IsDaemon() {
		return runOnce(ctx, a, stdout)
	}
	if err := runDaemon(ctx, cfg, a); err != nil {
		logging.Error().Err(err).Msg("Daemon stopped with error")
		return agent.ExitFailed
	}
	return agent.ExitOK
}

func runOnce(ctx context.Context, a *agent.Agent, stdout io.Writer) int {
	logging.Info().Str("version", version).Msg("Starting jellarr")
	report, _ := a.Run(ctx)
	if err := report.WriteSummary(stdout); err != nil {
		logging.Error().Err(err).Msg("Failed to write summary")
	}
	return report.ExitCode
}

func runDaemon(ctx context.Context, cfg *config.Config, a *agent.Agent) error {
	logging.Info().
		Str("version", version).
		Dur("interval", cfg.Daemon.Interval).
		Str("metrics_addr", cfg.Daemon.MetricsAddr).
		Msg("Starting jellarr daemon")

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddReconcileService(services.NewReconcileService(a, cfg.Daemon.Interval))

	if cfg.Daemon.MetricsAddr != "" {
		opts := api.DefaultOptions(a)
		opts.CORSOrigins = cfg.Daemon.CORSOrigins
		server := &http.Server{
			Addr:              cfg.Daemon.MetricsAddr,
			Handler:           api.NewRouter(opts),
			ReadHeaderTimeout: 5 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, 5*time.Second))
	}

	err = tree.Serve(ctx)

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("jellarr stopped")
	return nil
}
