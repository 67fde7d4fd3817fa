// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package vpn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/tollgate/internal/logging"
)

// ErrUpdateInProgress is returned when an update is already running.
var ErrUpdateInProgress = errors.New("VPN update already in progress")

// UpdateStatus describes the updater's last runs.
type UpdateStatus struct {
	LastAttempt time.Time     `json:"last_attempt"`
	LastSuccess time.Time     `json:"last_success"`
	LastError   string        `json:"last_error,omitempty"`
	DataHash    string        `json:"data_hash,omitempty"`
	LastImport  *ImportResult `json:"last_import,omitempty"`
	Updating    bool          `json:"updating"`
}

// Updater periodically fetches servers.json and swaps it into a Service.
type Updater struct {
	cfg     Config
	service *Service
	client  *http.Client

	mu     sync.Mutex
	status UpdateStatus
}

// NewUpdater creates an updater for service using cfg's source settings.
func NewUpdater(service *Service, cfg Config) *Updater {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 24 * time.Hour
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	return &Updater{
		cfg:     cfg,
		service: service,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// RunWithContext updates once, then every UpdateInterval until ctx is done.
// Failed updates are logged and retried on the next tick.
func (u *Updater) RunWithContext(ctx context.Context) error {
	logging.Info().Dur("interval", u.cfg.UpdateInterval).Str("url", u.cfg.SourceURL).Msg("VPN updater started")

	if err := u.UpdateNow(ctx); err != nil && ctx.Err() == nil {
		logging.Warn().Err(err).Msg("Initial VPN update failed")
	}

	ticker := time.NewTicker(u.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := u.UpdateNow(ctx); err != nil && ctx.Err() == nil {
				logging.Warn().Err(err).Msg("Scheduled VPN update failed")
			}
		}
	}
}

// UpdateNow fetches the configured source and imports it when it changed.
func (u *Updater) UpdateNow(ctx context.Context) error {
	u.mu.Lock()
	if u.status.Updating {
		u.mu.Unlock()
		return ErrUpdateInProgress
	}
	u.status.Updating = true
	u.status.LastAttempt = time.Now()
	previous := u.status.DataHash
	u.mu.Unlock()

	hash, res, err := u.update(ctx, previous)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.status.Updating = false
	if err != nil {
		u.status.LastError = err.Error()
		return err
	}
	u.status.LastError = ""
	u.status.LastSuccess = time.Now()
	u.status.DataHash = hash
	if res != nil {
		u.status.LastImport = res
	}
	return nil
}

// update returns the new data hash and, when the data changed, the import result.
func (u *Updater) update(ctx context.Context, previousHash string) (string, *ImportResult, error) {
	data, err := u.fetchWithRetry(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch VPN data: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if hash == previousHash {
		logging.Debug().Str("hash", hash[:16]).Msg("VPN data unchanged")
		return hash, nil, nil
	}

	res, err := u.service.ImportFromBytes(data)
	if err != nil {
		return "", nil, fmt.Errorf("failed to import VPN data: %w", err)
	}
	return hash, &res, nil
}

// fetchWithRetry fetches the source, doubling the delay between attempts.
func (u *Updater) fetchWithRetry(ctx context.Context) ([]byte, error) {
	var lastErr error
	delay := u.cfg.RetryDelay

	for attempt := 0; attempt <= u.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		data, err := u.fetch(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err
		logging.Warn().Err(err).Int("attempt", attempt+1).Msg("VPN fetch attempt failed")
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", u.cfg.RetryAttempts+1, lastErr)
}

func (u *Updater) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.cfg.SourceURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Tollgate-VPN-Updater/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return readDocument(resp.Body)
}

// Status returns a copy of the update status.
func (u *Updater) Status() UpdateStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}
