// Package daemon runs periodic discovery as a background service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/kardianos/service"
)

// ServiceName is the name registered with the service manager
const ServiceName = "routescope"

// Lifecycle is what the program starts and stops; *adapter.Registry satisfies it
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
}

// Program implements service.Interface. Start returns once the registry and
// the optional HTTP listener are running.
type Program struct {
	ctx      context.Context
	registry Lifecycle
	log      logr.Logger

	httpAddr string
	metrics  http.Handler
	routes   []func(*http.ServeMux)
	wrap     func(http.Handler) http.Handler

	mu     sync.Mutex
	cancel context.CancelFunc
	server *http.Server
	addr   net.Addr
}

// Option configures a Program
type Option func(*Program)

// WithMetrics serves h at /metrics on addr; an empty addr disables the
// HTTP listener altogether
func WithMetrics(addr string, h http.Handler) Option {
	return func(p *Program) {
		p.httpAddr = addr
		p.metrics = h
	}
}

// WithRoutes lets register add more handlers next to /metrics
func WithRoutes(register func(mux *http.ServeMux)) Option {
	return func(p *Program) {
		p.routes = append(p.routes, register)
	}
}

// WithMiddleware wraps the HTTP handler, e.g. with logging and recovery
func WithMiddleware(wrap func(http.Handler) http.Handler) Option {
	return func(p *Program) {
		p.wrap = wrap
	}
}

// WithLogger sets the logger
func WithLogger(log logr.Logger) Option {
	return func(p *Program) {
		p.log = log.WithName("daemon")
	}
}

// NewProgram creates a program that runs registry under ctx
func NewProgram(ctx context.Context, registry Lifecycle, opts ...Option) *Program {
	p := &Program{
		ctx:      ctx,
		registry: registry,
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start implements service.Interface
func (p *Program) Start(s service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithCancel(p.ctx)
	p.cancel = cancel

	if p.httpAddr != "" {
		ln, err := net.Listen("tcp", p.httpAddr)
		if err != nil {
			cancel()
			return fmt.Errorf("listen %s: %w", p.httpAddr, err)
		}
		mux := http.NewServeMux()
		if p.metrics != nil {
			mux.Handle("GET /metrics", p.metrics)
		}
		for _, register := range p.routes {
			register(mux)
		}
		var h http.Handler = mux
		if p.wrap != nil {
			h = p.wrap(h)
		}
		p.server = &http.Server{
			Handler:      h,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		p.addr = ln.Addr()
		go func(server *http.Server) {
			p.log.Info("Serving HTTP", "addr", ln.Addr().String())
			if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				p.log.Error(err, "HTTP server failed")
			}
		}(p.server)
	}

	if err := p.registry.Start(ctx); err != nil {
		cancel()
		if p.server != nil {
			p.server.Close()
			p.server, p.addr = nil, nil
		}
		return fmt.Errorf("start registry: %w", err)
	}
	p.log.Info("Started")
	return nil
}

// Stop implements service.Interface
func (p *Program) Stop(s service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	var errs []error
	if err := p.registry.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop registry: %w", err))
	}
	if p.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown HTTP server: %w", err))
		}
		p.server, p.addr = nil, nil
	}
	p.log.Info("Stopped")
	return errors.Join(errs...)
}

// Addr returns the address the HTTP listener is bound to, or nil
func (p *Program) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

// Config describes the service to the platform service manager. args are
// passed to the binary when the manager launches it.
func Config(args []string) *service.Config {
	return &service.Config{
		Name:        ServiceName,
		DisplayName: "RouteScope",
		Description: "Periodic L3 topology discovery over SNMP",
		Arguments:   args,
	}
}

// New wraps program for the platform service manager
func New(program service.Interface, args []string) (service.Service, error) {
	s, err := service.New(program, Config(args))
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return s, nil
}

// Control runs a service manager action such as install or uninstall
func Control(s service.Service, action string) error {
	if !slices.Contains(service.ControlAction[:], action) {
		return fmt.Errorf("unknown service action %q, want one of %v", action, service.ControlAction)
	}
	return service.Control(s, action)
}

// Interactive reports whether the process runs from a terminal rather than
// under a service manager
func Interactive() bool {
	return service.Interactive()
}
