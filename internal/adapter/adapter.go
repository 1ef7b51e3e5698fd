package adapter

import (
	"context"
	"time"

	"routescope/internal/domain"
)

// AdapterType defines how an adapter is driven by the registry
type AdapterType string

const (
	// AdapterTypePolling - adapter runs on a schedule
	AdapterTypePolling AdapterType = "polling"
	// AdapterTypeOneShot - manual trigger only
	AdapterTypeOneShot AdapterType = "oneshot"
)

// AdapterConfig holds configuration for an adapter instance
type AdapterConfig struct {
	// Enabled determines if the adapter should run
	Enabled bool `json:"enabled"`
	// PollInterval for polling adapters
	PollInterval time.Duration `json:"poll_interval,omitempty"`
}

// Adapter is a source of topology snapshots
type Adapter interface {
	// Name returns the unique identifier for this adapter
	Name() string

	// Type returns how this adapter is driven
	Type() AdapterType

	// Start initializes the adapter (called once on startup)
	Start(ctx context.Context) error

	// Stop gracefully shuts down the adapter
	Stop() error

	// Sync produces a topology snapshot. A non-nil topology may come with an
	// error describing the parts that could not be discovered.
	Sync(ctx context.Context) (*domain.Topology, error)
}
