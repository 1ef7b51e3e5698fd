package discovery

import (
	"context"
	"net/netip"
	"sync"

	"routescope/internal/adapter"
	"routescope/internal/domain"
)

// Adapter runs a discovery from a fixed seed each time the registry syncs it
type Adapter struct {
	coordinator *Coordinator
	kind        adapter.AdapterType

	mu   sync.RWMutex
	seed netip.Addr
}

// NewAdapter creates a polling adapter around coordinator
func NewAdapter(coordinator *Coordinator, seed netip.Addr) *Adapter {
	return &Adapter{
		coordinator: coordinator,
		seed:        seed,
		kind:        adapter.AdapterTypePolling,
	}
}

// NewOneShotAdapter creates an adapter that only runs when triggered
func NewOneShotAdapter(coordinator *Coordinator, seed netip.Addr) *Adapter {
	a := NewAdapter(coordinator, seed)
	a.kind = adapter.AdapterTypeOneShot
	return a
}

// Name returns the adapter identifier
func (a *Adapter) Name() string {
	return "discovery"
}

// Type returns the adapter type
func (a *Adapter) Type() adapter.AdapterType {
	return a.kind
}

// Start is a no-op; every sync starts from scratch
func (a *Adapter) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op
func (a *Adapter) Stop() error {
	return nil
}

// Seed returns the address runs start from
func (a *Adapter) Seed() netip.Addr {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.seed
}

// SetSeed changes the address later runs start from
func (a *Adapter) SetSeed(seed netip.Addr) {
	a.mu.Lock()
	a.seed = seed
	a.mu.Unlock()
}

// Sync runs one discovery from the seed
func (a *Adapter) Sync(ctx context.Context) (*domain.Topology, error) {
	return a.coordinator.Discover(ctx, a.Seed())
}

var _ adapter.Adapter = (*Adapter)(nil)
