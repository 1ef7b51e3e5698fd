package discovery

import (
	"context"
	"errors"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"

	"routescope/internal/domain"
)

// DefaultMaxConcurrent bounds simultaneous router assemblies
const DefaultMaxConcurrent = 16

// ErrNilAssembler is returned when a Coordinator is created without an Assembler
var ErrNilAssembler = errors.New("discovery: nil assembler")

// Assembler builds the Router reachable at one address
type Assembler interface {
	Build(ctx context.Context, addr netip.Addr) (*domain.Router, error)
}

// HostVerifier probes the hosts of a finished topology before it is sealed
type HostVerifier interface {
	Verify(ctx context.Context, topo *domain.Topology) error
}

// Coordinator drives discovery runs
type Coordinator struct {
	assembler     Assembler
	recorder      Recorder
	verifier      HostVerifier
	maxConcurrent int
	log           logr.Logger
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the coordinator logger
func WithLogger(log logr.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// WithRecorder reports outcomes to r
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithHostVerifier probes discovered hosts at the end of each run
func WithHostVerifier(v HostVerifier) Option {
	return func(c *Coordinator) {
		c.verifier = v
	}
}

// WithMaxConcurrent bounds simultaneous router assemblies. Values below 1 are ignored.
func WithMaxConcurrent(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// NewCoordinator creates a coordinator over assembler
func NewCoordinator(assembler Assembler, opts ...Option) (*Coordinator, error) {
	if assembler == nil {
		return nil, ErrNilAssembler
	}
	c := &Coordinator{
		assembler:     assembler,
		recorder:      nopRecorder{},
		maxConcurrent: DefaultMaxConcurrent,
		log:           logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// visit tracks one router address. done closes once assembly has finished
// and router/outcome are set; expansion of next hops happens afterwards.
type visit struct {
	done    chan struct{}
	router  *domain.Router
	outcome Outcome
}

// run is the state of one Discover call
type run struct {
	c    *Coordinator
	topo *domain.Topology
	sem  chan struct{}

	mu     sync.Mutex
	visits map[netip.Addr]*visit
	errs   []*HopError
}

// Discover walks the network from seed and returns the sealed topology. The
// topology is returned even when routers failed; the error then holds one
// *HopError per failed address.
func (c *Coordinator) Discover(ctx context.Context, seed netip.Addr) (*domain.Topology, error) {
	start := time.Now()
	r := &run{
		c:      c,
		topo:   domain.NewTopology(),
		sem:    make(chan struct{}, c.maxConcurrent),
		visits: make(map[netip.Addr]*visit),
	}

	c.log.Info("Discovery started", "seed", seed, "max_concurrent", c.maxConcurrent)
	r.discover(ctx, seed.Unmap(), netip.Addr{})

	if c.verifier != nil {
		if err := c.verifier.Verify(ctx, r.topo); err != nil {
			c.log.Error(err, "Host verification failed")
		}
	}
	r.topo.Seal()

	routers, hosts, links := r.topo.Stats()
	elapsed := time.Since(start)
	c.recorder.DiscoveryCompleted(elapsed, routers, hosts, links)
	c.log.Info("Discovery finished", "seed", seed, "routers", routers, "hosts", hosts,
		"links", links, "failed", len(r.errs), "elapsed", elapsed)

	return r.topo, r.err()
}

// discover runs the state machine for one address and returns the canonical
// router it resolved to, or nil when it failed
func (r *run) discover(ctx context.Context, addr, parent netip.Addr) *domain.Router {
	r.mu.Lock()
	if v, seen := r.visits[addr]; seen {
		r.mu.Unlock()
		// Assembly never waits on other branches, so this cannot deadlock
		select {
		case <-v.done:
		case <-ctx.Done():
			return nil
		}
		r.c.log.V(1).Info("Address already visited", "address", addr, "outcome", v.outcome)
		return v.router
	}
	v := &visit{done: make(chan struct{})}
	r.visits[addr] = v
	r.mu.Unlock()

	router, outcome := r.resolve(ctx, addr, parent)
	v.router, v.outcome = router, outcome
	close(v.done)

	r.c.recorder.RouterDiscovered(outcome)
	if outcome != OutcomeAdded {
		return router
	}

	r.addHosts(router)
	r.expand(ctx, addr, router)
	return router
}

// resolve assembles the router and inserts it into the topology
func (r *run) resolve(ctx context.Context, addr, parent netip.Addr) (*domain.Router, Outcome) {
	log := r.c.log.WithValues("address", addr)

	built, err := r.assemble(ctx, addr)
	if err != nil {
		r.fail(addr, parent, err)
		return nil, OutcomeFailed
	}

	canonical, added, err := r.topo.AddRouter(built)
	if err != nil {
		r.fail(addr, parent, err)
		return nil, OutcomeFailed
	}
	if !added {
		log.V(1).Info("Router already known", "router", canonical.Label())
		return canonical, OutcomeDuplicate
	}

	log.Info("Router added", "router", canonical.Label(),
		"interfaces", len(canonical.Interfaces()), "next_hops", len(canonical.NextHops()))
	return canonical, OutcomeAdded
}

// assemble calls the assembler while holding a concurrency slot. Only the
// call itself is bounded; waiting for child branches never holds a slot.
func (r *run) assemble(ctx context.Context, addr netip.Addr) (*domain.Router, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-r.sem }()

	return r.c.assembler.Build(ctx, addr)
}

// addHosts turns the router's filtered ARP records into hosts linked to it
func (r *run) addHosts(router *domain.Router) {
	for _, rec := range router.ArpRecords() {
		host, added, err := r.topo.AddHost(domain.NewPCHost(rec.MAC, rec.IP))
		if err != nil {
			r.c.log.Error(err, "Failed to add host", "mac", rec.MAC, "ip", rec.IP)
			continue
		}
		if added {
			r.c.recorder.HostAdded()
		}
		r.link(router, host)
	}
}

// expand discovers every next hop concurrently, waits for all of them and
// links the router to each hop that produced a router
func (r *run) expand(ctx context.Context, addr netip.Addr, router *domain.Router) {
	var hops []netip.Addr
	for _, hop := range router.NextHops() {
		if router.HasAddress(hop) {
			continue
		}
		hops = append(hops, hop)
	}
	if len(hops) == 0 {
		return
	}

	results := make([]*domain.Router, len(hops))
	var wg sync.WaitGroup
	for i, hop := range hops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.discover(ctx, hop, addr)
		}()
	}
	wg.Wait()

	for _, child := range results {
		if child == nil {
			continue
		}
		r.link(router, child)
	}
}

func (r *run) link(a, b domain.Node) {
	_, added, err := r.topo.AddLink(a, b)
	if err != nil {
		r.c.log.Error(err, "Failed to add link", "from", a.Label(), "to", b.Label())
		return
	}
	if added {
		r.c.recorder.LinkAdded()
	}
}

func (r *run) fail(addr, parent netip.Addr, err error) {
	hopErr := &HopError{Address: addr, Parent: parent, Err: err}
	kv := []any{"address", addr}
	if parent.IsValid() {
		kv = append(kv, "parent", parent)
	}
	r.c.log.Error(err, "Router discovery failed", kv...)

	r.mu.Lock()
	r.errs = append(r.errs, hopErr)
	r.mu.Unlock()
}

// err aggregates the failures in address order
func (r *run) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.errs) == 0 {
		return nil
	}
	sort.Slice(r.errs, func(i, j int) bool {
		return r.errs[i].Address.Less(r.errs[j].Address)
	})

	var result *multierror.Error
	for _, e := range r.errs {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}
