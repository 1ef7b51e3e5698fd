package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"routescope/internal/adapter"
	"routescope/internal/codec"
	"routescope/internal/domain"
	"routescope/internal/hlog"
)

// DiscoveryTrigger allows triggering discovery from the handler
type DiscoveryTrigger interface {
	TriggerSync(ctx context.Context, name string) error
	ListAdapters() []adapter.AdapterInfo
}

// snapshot is one published topology
type snapshot struct {
	source string
	at     time.Time
	topo   *domain.Topology
}

// TopologyHandler serves the most recent topology and lets clients start a run
type TopologyHandler struct {
	ctx       context.Context
	log       logr.Logger
	discovery DiscoveryTrigger
	adapter   string

	mu     sync.RWMutex
	latest *snapshot
}

// NewTopologyHandler creates a handler. Runs started over HTTP use ctx, so
// they stop when it is cancelled.
func NewTopologyHandler(ctx context.Context, log logr.Logger) *TopologyHandler {
	return &TopologyHandler{
		ctx: ctx,
		log: log.WithName("handler"),
	}
}

// SetDiscoveryTrigger sets the registry and the adapter name POST /api/discover syncs
func (h *TopologyHandler) SetDiscoveryTrigger(d DiscoveryTrigger, name string) {
	h.discovery = d
	h.adapter = name
}

// Publish records topo as the latest; it has the adapter.PublishFunc signature
func (h *TopologyHandler) Publish(ctx context.Context, source string, topo *domain.Topology) error {
	h.mu.Lock()
	h.latest = &snapshot{source: source, at: time.Now(), topo: topo}
	h.mu.Unlock()
	return nil
}

// Register adds the API routes to mux
func (h *TopologyHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/topology", h.GetTopology)
	mux.HandleFunc("GET /api/adapters", h.ListAdapters)
	mux.HandleFunc("POST /api/discover", h.TriggerDiscovery)
}

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GetTopology writes the latest topology in the requested format
func (h *TopologyHandler) GetTopology(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()

	if latest == nil {
		h.writeError(w, "No topology yet", "the first discovery run has not finished", http.StatusServiceUnavailable)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	exporter, err := codec.ForFormat(format)
	if err != nil {
		h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", contentType(exporter.Format()))
	w.Header().Set("Last-Modified", latest.at.UTC().Format(http.TimeFormat))
	w.Header().Set("X-Topology-Source", latest.source)
	if err := exporter.Export(latest.topo, w); err != nil {
		// Can't write error response as we may have written part of the body
		h.log.Error(err, "Failed to export topology", "format", format)
	}
}

// ListAdapters returns the registered adapters
func (h *TopologyHandler) ListAdapters(w http.ResponseWriter, r *http.Request) {
	if h.discovery == nil {
		h.writeJSON(w, []adapter.AdapterInfo{}, http.StatusOK)
		return
	}
	h.writeJSON(w, h.discovery.ListAdapters(), http.StatusOK)
}

// TriggerDiscovery starts a discovery run in the background
func (h *TopologyHandler) TriggerDiscovery(w http.ResponseWriter, r *http.Request) {
	if h.discovery == nil {
		h.writeError(w, "Discovery not configured", "No discovery adapters are registered", http.StatusServiceUnavailable)
		return
	}

	go func() {
		err := h.discovery.TriggerSync(h.ctx, h.adapter)
		hlog.ErrorIfNotCanceled(h.log, err, "Triggered discovery incomplete", "adapter", h.adapter)
	}()

	h.writeJSON(w, map[string]string{"status": "discovery_triggered"}, http.StatusAccepted)
}

// Recover turns a panicking handler into a 500 response
func Recover(log logr.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Info("Recovered from panic", "path", r.URL.Path, "panic", rec)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Logger logs every request at V(1)
func Logger(log logr.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.V(1).Info("HTTP request", "method", r.Method, "path", r.URL.Path,
				"remote", r.RemoteAddr, "elapsed", time.Since(start))
		})
	}
}

// Chain wraps h with middleware; the first one listed runs outermost
func Chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

func contentType(format string) string {
	switch format {
	case "json":
		return "application/json"
	case "yaml":
		return "application/x-yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Helper methods

func (h *TopologyHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error(err, "Failed to encode JSON")
	}
}

func (h *TopologyHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
