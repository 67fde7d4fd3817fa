// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/tollgate/internal/api"
	"github.com/tomtom215/tollgate/internal/auth"
	"github.com/tomtom215/tollgate/internal/config"
	"github.com/tomtom215/tollgate/internal/guard"
	"github.com/tomtom215/tollgate/internal/logging"
	"github.com/tomtom215/tollgate/internal/supervisor"
	"github.com/tomtom215/tollgate/internal/supervisor/services"
	"github.com/tomtom215/tollgate/internal/vpn"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.LoggingOptions())

	if len(os.Args) > 1 && os.Args[1] == "operator-token" {
		os.Exit(issueOperatorToken(cfg, os.Args[2:]))
	}

	logging.Info().Str("config", cfg.String()).Msg("Starting Tollgate with supervisor tree")

	if cfg.HasWildcardCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*)")
	}

	os.Exit(run(cfg))
}

// run wires the engine, supervisor tree and HTTP server, and blocks until a
// shutdown signal. It returns the process exit code.
func run(cfg *config.Config) int {
	// Optional VPN lookup used as an extra trigger of vpn_proxy_detected
	var vpnService *vpn.Service
	engineOpts := []guard.Option{}
	if cfg.VPN.Enabled {
		vpnService = vpn.NewService(cfg.VPN)
		vpnService.Initialize()
		engineOpts = append(engineOpts, guard.WithVPNChecker(vpnService))
	} else {
		logging.Info().Msg("VPN lookup disabled (VPN_ENABLED=false)")
	}

	engine, err := guard.New(cfg.Engine(), engineOpts...)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create guard engine")
		return 1
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing device registry")
		}
	}()
	logging.Info().Str("registry", cfg.Risk.Backend).Msg("Guard engine initialized")

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg.Tree())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return 1
	}

	// Maintenance layer: expiry sweeps and the VPN data refresher
	tree.AddMaintenanceService(services.NewSweepService(engine.Limiter(), cfg.Limiter.SweepInterval))
	tree.AddMaintenanceService(services.NewSweepService(engine.Challenges(), cfg.Challenge.SweepInterval))
	tree.AddMaintenanceService(services.NewSweepService(engine.Risk(), cfg.Risk.SweepInterval))
	if vpnService != nil && cfg.VPN.AutoUpdate {
		updater := vpn.NewUpdater(vpnService, cfg.VPN)
		tree.AddMaintenanceService(services.NewRunnerService("vpn-updater", updater))
		logging.Info().
			Str("source", cfg.VPN.SourceURL).
			Dur("interval", cfg.VPN.UpdateInterval).
			Msg("VPN auto-update enabled")
	}

	// API layer
	handlerOpts := []api.HandlerOption{}
	if vpnService != nil {
		handlerOpts = append(handlerOpts, api.WithVPNStatus(vpnService))
	}
	handler := api.NewHandler(engine, handlerOpts...)
	chiMw := api.NewChiMiddlewareFromServer(
		cfg.Server.CORSOrigins,
		cfg.Server.RateLimitReqs,
		cfg.Server.RateLimitWindow,
		cfg.Server.RateLimitDisabled,
	)
	if cfg.Server.OperatorAuthEnabled() {
		manager, err := auth.NewJWTManager(cfg.Server.OperatorJWTSecret, cfg.Server.OperatorTokenTTL)
		if err != nil {
			logging.Error().Err(err).Msg("Failed to create operator token manager")
			return 1
		}
		chiMw.WithOperatorAuth(manager)
	} else {
		logging.Warn().Msg("Operator routes are unauthenticated (OPERATOR_JWT_SECRET not set)")
	}
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, chiMw).SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server registered")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
		stop()
	}

	exitCode := 0
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
		exitCode = 1
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Tollgate stopped gracefully")
	return exitCode
}

// issueOperatorToken prints a signed operator token for args[0].
func issueOperatorToken(cfg *config.Config, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tollgate operator-token <name>")
		return 2
	}
	manager, err := auth.NewJWTManager(cfg.Server.OperatorJWTSecret, cfg.Server.OperatorTokenTTL)
	if err != nil {
		logging.Error().Err(err).Msg("OPERATOR_JWT_SECRET must be set to issue tokens")
		return 1
	}
	token, err := manager.GenerateToken(args[0])
	if err != nil {
		logging.Error().Err(err).Msg("Failed to issue operator token")
		return 1
	}
	fmt.Println(token)
	return 0
}
