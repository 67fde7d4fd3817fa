// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package services

import (
	"context"
)

// BackgroundRunner runs until its context is canceled.
//
// Satisfied by *vpn.Updater from internal/vpn/updater.go.
type BackgroundRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService wraps a BackgroundRunner as a supervised service.
//
// Example usage:
//
//	updater := vpn.NewUpdater(vpnService, cfg.VPN)
//	tree.AddMaintenanceService(services.NewRunnerService("vpn-updater", updater))
type RunnerService struct {
	runner BackgroundRunner
	name   string
}

// NewRunnerService creates a new runner wrapper with the given log name.
func NewRunnerService(name string, runner BackgroundRunner) *RunnerService {
	return &RunnerService{
		runner: runner,
		name:   name,
	}
}

// Serve implements suture.Service by delegating to RunWithContext.
func (r *RunnerService) Serve(ctx context.Context) error {
	return r.runner.RunWithContext(ctx)
}

// String implements fmt.Stringer; suture uses it in log messages.
func (r *RunnerService) String() string {
	return r.name
}
