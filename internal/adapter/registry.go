package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"routescope/internal/domain"
	"routescope/internal/hlog"
)

// PublishFunc receives every topology an adapter produces
type PublishFunc func(ctx context.Context, source string, topo *domain.Topology) error

// Registry manages all registered adapters and their lifecycle
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	configs  map[string]AdapterConfig
	status   map[string]syncStatus
	publish  PublishFunc
	log      logr.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewRegistry creates a new adapter registry
func NewRegistry(publish PublishFunc, log logr.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		configs:  make(map[string]AdapterConfig),
		status:   make(map[string]syncStatus),
		publish:  publish,
		log:      log.WithName("registry"),
	}
}

// Register adds an adapter to the registry
func (r *Registry) Register(adapter Adapter, config AdapterConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := adapter.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter %s already registered", name)
	}

	r.adapters[name] = adapter
	r.configs[name] = config
	r.log.Info("Registered adapter", "name", name, "type", adapter.Type(),
		"enabled", config.Enabled, "interval", config.PollInterval)

	return nil
}

// Start initializes all enabled adapters and begins their sync cycles
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctx, r.cancel = context.WithCancel(ctx)

	for name, adapter := range r.adapters {
		config := r.configs[name]
		if !config.Enabled {
			r.log.Info("Adapter is disabled, skipping", "name", name)
			continue
		}

		if err := adapter.Start(r.ctx); err != nil {
			r.log.Error(err, "Failed to start adapter", "name", name)
			continue
		}

		if adapter.Type() == AdapterTypePolling {
			r.startPollingLoop(name, adapter, config)
		}
	}

	return nil
}

// Stop gracefully shuts down all adapters
func (r *Registry) Stop() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	// Wait for all polling loops to finish
	r.wg.Wait()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for name, adapter := range r.adapters {
		if err := adapter.Stop(); err != nil {
			r.log.Error(err, "Error stopping adapter", "name", name)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// TriggerSync manually triggers a sync for a specific adapter
func (r *Registry) TriggerSync(ctx context.Context, name string) error {
	r.mu.RLock()
	adapter, exists := r.adapters[name]
	config := r.configs[name]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("adapter %s not found", name)
	}

	if !config.Enabled {
		return fmt.Errorf("adapter %s is disabled", name)
	}

	return r.runSync(ctx, name, adapter)
}

// ListAdapters returns information about registered adapters
func (r *Registry) ListAdapters() []AdapterInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]AdapterInfo, 0, len(r.adapters))
	for name, adapter := range r.adapters {
		config := r.configs[name]
		info := AdapterInfo{
			Name:         name,
			Type:         adapter.Type(),
			Enabled:      config.Enabled,
			PollInterval: config.PollInterval,
		}
		if st, ok := r.status[name]; ok {
			at := st.at
			info.LastSync = &at
			if st.err != nil {
				info.LastError = st.err.Error()
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// AdapterInfo provides read-only information about an adapter
type AdapterInfo struct {
	Name         string        `json:"name"`
	Type         AdapterType   `json:"type"`
	Enabled      bool          `json:"enabled"`
	PollInterval time.Duration `json:"poll_interval,omitempty"`
	LastSync     *time.Time    `json:"last_sync,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
}

type syncStatus struct {
	at  time.Time
	err error
}

// startPollingLoop starts a goroutine that polls the adapter on schedule
func (r *Registry) startPollingLoop(name string, adapter Adapter, config AdapterConfig) {
	interval := config.PollInterval
	if interval <= 0 {
		r.log.Info("Invalid poll interval, using 1m default", "name", name, "interval", interval)
		interval = time.Minute
	}

	ctx := r.ctx
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		// Run initial sync
		hlog.ErrorIfNotCanceled(r.log, r.runSync(ctx, name, adapter), "Initial sync failed", "name", name)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.log.Info("Stopping polling loop", "name", name)
				return
			case <-ticker.C:
				hlog.ErrorIfNotCanceled(r.log, r.runSync(ctx, name, adapter), "Sync failed", "name", name)
			}
		}
	}()

	r.log.Info("Started polling loop", "name", name, "interval", interval)
}

// runSync executes a sync operation and publishes the result. A partial
// topology is still published before its error is returned.
func (r *Registry) runSync(ctx context.Context, name string, adapter Adapter) (err error) {
	r.log.V(1).Info("Running sync", "name", name)
	defer func() {
		r.mu.Lock()
		r.status[name] = syncStatus{at: time.Now(), err: err}
		r.mu.Unlock()
	}()

	topo, syncErr := adapter.Sync(ctx)
	if topo == nil {
		if syncErr == nil {
			r.log.Info("Adapter returned no topology", "name", name)
			return nil
		}
		return fmt.Errorf("sync failed: %w", syncErr)
	}

	if r.publish != nil {
		if err := r.publish(ctx, name, topo); err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}
	}

	routers, hosts, links := topo.Stats()
	r.log.Info("Sync complete", "name", name, "routers", routers, "hosts", hosts, "links", links)

	if syncErr != nil {
		return fmt.Errorf("partial sync: %w", syncErr)
	}
	return nil
}
