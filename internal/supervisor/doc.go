// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package supervisor provides process supervision for Tollgate using suture v4.

# Overview

Long-running work is organized into two layers:

	RootSupervisor ("tollgate")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── SweepService (limiter)
	│   ├── SweepService (challenges)
	│   ├── SweepService (devices)
	│   └── RunnerService (vpn-updater, if VPN_AUTO_UPDATE)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each layer counts failures independently, so a sweeper in backoff does not
restart the HTTP server.

# Logging

Supervisor events (service panics, terminations, backoff) are reported
through sutureslog. main.go passes a *slog.Logger backed by zerolog via
logging.NewSlogLogger, so these events land in the same JSON stream as the
rest of the application.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg.Tree())
	if err != nil {
	    return err
	}
	tree.AddMaintenanceService(services.NewSweepService(engine.Limiter(), cfg.Limiter.SweepInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

See the services subpackage for the service wrappers.
*/
package supervisor
