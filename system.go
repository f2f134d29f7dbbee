package maelstrom

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// --- Function Type Definitions for Dependencies ---

// These named types create a clear, maintainable contract for the system's dependencies.

// ListPoolsFunc pulls the complete current pool list from the ledger.
type ListPoolsFunc func(ctx context.Context) ([]RowPool, error)

type ErrorHandlerFunc func(err error)

// Config holds all the dependencies and settings for the PoolSystem.
// Using a configuration struct makes initialization cleaner and more extensible.
type Config struct {
	SystemName       string
	PrometheusReg    prometheus.Registerer
	ListPools        ListPoolsFunc
	ErrorHandler     ErrorHandlerFunc
	RefreshFrequency time.Duration
	Logger           Logger
}

// validate checks that all essential fields in the Config are provided.
func (c *Config) validate() error {
	if c.SystemName == "" {
		return errors.New("system name is required")
	}
	if c.ListPools == nil {
		return errors.New("list pools function is required")
	}
	if c.ErrorHandler == nil {
		return errors.New("error handler function is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// PoolSystem keeps a registry of pool rows in sync with the ledger by
// periodically re-reading the full pool list, and publishes a lock-free
// cached view for consumers. It is the long-lived counterpart to the
// on-demand reader: callers that render lists poll View() instead of
// hammering the ledger.
type PoolSystem struct {
	systemName      string
	listPools       ListPoolsFunc
	errorHandler    ErrorHandlerFunc
	refreshFreq     time.Duration
	cachedView      atomic.Pointer[[]RowPool]
	lastRefreshedAt atomic.Int64
	mu              sync.RWMutex
	registry        *PoolRegistry
	metrics         *Metrics
	logger          Logger
}

// NewPoolSystem constructs and returns a new, fully initialized system.
// It starts the background refresher, making it a self-contained, "live"
// service upon creation. A non-positive RefreshFrequency disables the
// background loop; Refresh may still be driven manually.
func NewPoolSystem(ctx context.Context, cfg *Config) (*PoolSystem, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid maelstrom system configuration: %w", err)
	}

	metrics := NewMetrics(cfg.PrometheusReg, cfg.SystemName)

	system := &PoolSystem{
		systemName: cfg.SystemName,
		listPools:  cfg.ListPools,
		errorHandler: func(err error) {
			errorType := determineErrorType(err)
			cfg.Logger.Error("PoolSystem internal error", "system", cfg.SystemName, "type", errorType, "error", err)
			metrics.ErrorsTotal.WithLabelValues(errorType).Inc()
			cfg.ErrorHandler(err)
		},
		refreshFreq: cfg.RefreshFrequency,
		registry:    NewPoolRegistry(),
		metrics:     metrics,
		logger:      cfg.Logger,
	}

	system.cachedView.Store(&[]RowPool{})
	system.logger.Info("PoolSystem started", "system", system.systemName)
	go system.startRefresher(ctx)

	return system, nil
}

// View returns a copy of the latest registry view. This operation is lock-free.
func (s *PoolSystem) View() []RowPool {
	viewPtr := s.cachedView.Load()
	if viewPtr == nil {
		return nil
	}
	view := *viewPtr
	viewCopy := make([]RowPool, len(view))
	copy(viewCopy, view)
	return viewCopy
}

// LastRefreshedAt returns the unix-millisecond time of the last successful refresh.
func (s *PoolSystem) LastRefreshedAt() int64 {
	return s.lastRefreshedAt.Load()
}

// PoolByToken returns the tracked row for a token, or ErrPoolNotFound.
func (s *PoolSystem) PoolByToken(tokenAddr common.Address) (RowPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPoolByToken(tokenAddr, s.registry)
}

// updateCachedView generates a fresh view from the registry and atomically updates the pointer.
// This method MUST be called from within a write lock (s.mu.Lock).
func (s *PoolSystem) updateCachedView() {
	newView := viewRegistry(s.registry)
	s.cachedView.Store(&newView)
	s.metrics.PoolsInRegistry.WithLabelValues().Set(float64(len(newView)))
}

// startRefresher is the background loop driving periodic refreshes.
func (s *PoolSystem) startRefresher(ctx context.Context) {
	if s.refreshFreq <= 0 {
		return
	}
	ticker := time.NewTicker(s.refreshFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.errorHandler(err)
			}
		case <-ctx.Done():
			s.logger.Info("PoolSystem stopping due to context cancellation.")
			return
		}
	}
}

// Refresh performs one full pull of the pool list and reconciles the registry
// against it: new pools are added, tracked pools are overwritten with fresh
// values, and pools the ledger no longer lists are removed. An upstream
// failure leaves the previous view untouched.
func (s *PoolSystem) Refresh(ctx context.Context) error {
	timer := prometheus.NewTimer(s.metrics.RefreshDuration.WithLabelValues())
	defer timer.ObserveDuration()

	start := time.Now()
	rows, err := s.listPools(ctx)
	if err != nil {
		s.metrics.RefreshesTotal.WithLabelValues("error").Inc()
		return &RefreshError{Err: err}
	}

	seen := make(map[common.Address]struct{}, len(rows))
	for _, row := range rows {
		seen[row.Token.Address] = struct{}{}
	}

	var removed int
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		for _, row := range rows {
			upsertPool(row, s.registry)
		}

		// Sweep pools that disappeared from the ledger's listing.
		for _, tracked := range viewRegistry(s.registry) {
			if _, ok := seen[tracked.Token.Address]; ok {
				continue
			}
			if err := deletePool(tracked.Token.Address, s.registry); err != nil {
				s.errorHandler(err)
				continue
			}
			removed++
		}

		s.updateCachedView()
	}()

	s.lastRefreshedAt.Store(time.Now().UnixMilli())
	s.metrics.LastRefreshUnix.WithLabelValues().Set(float64(time.Now().Unix()))
	s.metrics.RefreshesTotal.WithLabelValues("success").Inc()
	s.logger.Info("Refreshed pool list",
		"system", s.systemName,
		"pools", len(rows),
		"removed", removed,
		"duration", time.Since(start),
	)
	return nil
}

// DeletePool removes a pool from the PoolSystem's internal registry.
//
// @note This is a low-level method; a removed pool reappears on the next
// refresh cycle if the ledger still lists it.
func (s *PoolSystem) DeletePool(tokenAddr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := deletePool(tokenAddr, s.registry); err != nil {
		return err
	}

	// After any modification to the registry, the cached view must be updated.
	s.updateCachedView()
	return nil
}
