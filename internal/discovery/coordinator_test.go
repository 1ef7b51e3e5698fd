package discovery

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"

	"routescope/internal/domain"
)

// device describes what the fake network answers for one address
type device struct {
	name  string
	macs  []domain.MAC
	ip    string
	hops  []string
	arp   []domain.ArpRecord
	err   error
	delay time.Duration
}

// fakeNetwork builds a fresh Router per call, like a real assembler would
type fakeNetwork struct {
	devices map[string]device

	mu     sync.Mutex
	builds map[string]int

	active atomic.Int32
	peak   atomic.Int32
}

func newFakeNetwork(devices map[string]device) *fakeNetwork {
	return &fakeNetwork{devices: devices, builds: make(map[string]int)}
}

func (n *fakeNetwork) Build(ctx context.Context, addr netip.Addr) (*domain.Router, error) {
	cur := n.active.Add(1)
	defer n.active.Add(-1)
	for {
		peak := n.peak.Load()
		if cur <= peak || n.peak.CompareAndSwap(peak, cur) {
			break
		}
	}

	n.mu.Lock()
	n.builds[addr.String()]++
	n.mu.Unlock()

	d, ok := n.devices[addr.String()]
	if !ok {
		return nil, errors.New("request timeout")
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.err != nil {
		return nil, d.err
	}

	r := domain.NewRouter(d.name)
	for i, mac := range d.macs {
		iface := domain.IpInterface{Index: i + 1, MAC: mac}
		if i == 0 {
			ip := d.ip
			if ip == "" {
				ip = addr.String()
			}
			iface.IP = netip.MustParseAddr(ip)
			iface.Mask = netip.MustParseAddr("255.255.255.0")
		}
		r.AddInterface(iface)
	}
	for _, hop := range d.hops {
		r.AddNextHop(netip.MustParseAddr(hop))
	}
	for _, rec := range d.arp {
		r.AddArp(rec)
	}
	return r, nil
}

func (n *fakeNetwork) buildCount(addr string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.builds[addr]
}

// countingRecorder tallies recorder callbacks
type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[Outcome]int
	hosts    int
	links    int
	runs     int
}

func (c *countingRecorder) RouterDiscovered(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = make(map[Outcome]int)
	}
	c.outcomes[o]++
}

func (c *countingRecorder) HostAdded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hosts++
}

func (c *countingRecorder) LinkAdded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links++
}

func (c *countingRecorder) DiscoveryCompleted(elapsed time.Duration, routers, hosts, links int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
}

func seed(s string) netip.Addr {
	return netip.MustParseAddr(s)
}

func mustCoordinator(t *testing.T, a Assembler, opts ...Option) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(a, opts...)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	return c
}

func TestNewCoordinator(t *testing.T) {
	if _, err := NewCoordinator(nil); !errors.Is(err, ErrNilAssembler) {
		t.Errorf("expected ErrNilAssembler, got %v", err)
	}
}

func TestDiscoverCycle(t *testing.T) {
	net := newFakeNetwork(map[string]device{
		"10.0.0.1": {name: "A", macs: []domain.MAC{0xa1, 0xa2}, hops: []string{"10.0.0.2"}},
		"10.0.0.2": {name: "B", macs: []domain.MAC{0xb1}, hops: []string{"10.0.0.1", "10.0.0.3"}},
		"10.0.0.3": {name: "A", macs: []domain.MAC{0xa2, 0xa1}, ip: "10.0.0.3", hops: []string{"10.0.0.2"}},
	})
	c := mustCoordinator(t, net)

	done := make(chan struct{})
	var topo *domain.Topology
	var err error
	go func() {
		topo, err = c.Discover(context.Background(), seed("10.0.0.1"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("discovery did not terminate on a routing loop")
	}

	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	routers, _, links := topo.Stats()
	if routers != 2 {
		t.Errorf("expected routers {A,B}, got %d", routers)
	}
	if links != 1 {
		t.Errorf("expected link (A,B) once, got %d", links)
	}
	if got := net.buildCount("10.0.0.1"); got != 1 {
		t.Errorf("expected seed assembled once, got %d", got)
	}
	if !topo.Sealed() {
		t.Error("expected sealed topology")
	}
}

func TestDiscoverFailureIsolation(t *testing.T) {
	net := newFakeNetwork(map[string]device{
		"10.0.0.1": {name: "core", macs: []domain.MAC{0x01}, hops: []string{"10.0.0.2", "10.0.0.3", "10.0.0.4"}},
		"10.0.0.2": {name: "edge", macs: []domain.MAC{0x02}},
		"10.0.0.3": {err: errors.New("request timeout"), delay: 10 * time.Millisecond},
		"10.0.0.4": {err: errors.New("request timeout"), delay: 10 * time.Millisecond},
	})
	rec := &countingRecorder{}
	c := mustCoordinator(t, net, WithRecorder(rec))

	topo, err := c.Discover(context.Background(), seed("10.0.0.1"))

	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("expected multierror, got %v", err)
	}
	if len(merr.Errors) != 2 {
		t.Fatalf("expected 2 failures reported individually, got %d", len(merr.Errors))
	}
	want := []string{"10.0.0.3", "10.0.0.4"}
	for i, e := range merr.Errors {
		var hopErr *HopError
		if !errors.As(e, &hopErr) {
			t.Fatalf("expected HopError, got %T", e)
		}
		if hopErr.Address.String() != want[i] {
			t.Errorf("failure %d address = %s, want %s", i, hopErr.Address, want[i])
		}
		if hopErr.Parent.String() != "10.0.0.1" {
			t.Errorf("failure %d parent = %s", i, hopErr.Parent)
		}
	}

	routers, _, links := topo.Stats()
	if routers != 2 || links != 1 {
		t.Errorf("expected successful branch kept, got %d routers %d links", routers, links)
	}

	if rec.outcomes[OutcomeAdded] != 2 || rec.outcomes[OutcomeFailed] != 2 {
		t.Errorf("unexpected outcomes %v", rec.outcomes)
	}
	if rec.runs != 1 {
		t.Errorf("expected one completed run, got %d", rec.runs)
	}
}

func TestDiscoverSeedFailure(t *testing.T) {
	c := mustCoordinator(t, newFakeNetwork(nil))

	topo, err := c.Discover(context.Background(), seed("10.0.0.1"))
	if topo == nil {
		t.Fatal("expected an empty topology")
	}
	if routers, hosts, links := topo.Stats(); routers+hosts+links != 0 {
		t.Error("expected empty topology")
	}

	var hopErr *HopError
	if !errors.As(err, &hopErr) {
		t.Fatalf("expected HopError, got %v", err)
	}
	if hopErr.Parent.IsValid() {
		t.Error("seed failure has no parent")
	}
}

func TestDiscoverDuplicate(t *testing.T) {
	// B answers on two addresses; the second sighting must link but not expand
	net := newFakeNetwork(map[string]device{
		"10.0.0.1": {name: "A", macs: []domain.MAC{0xa1}, hops: []string{"10.0.0.2", "10.0.1.2"}},
		"10.0.0.2": {name: "B", macs: []domain.MAC{0xb1, 0xb2}, hops: []string{"10.0.2.3"}},
		"10.0.1.2": {name: "B", macs: []domain.MAC{0xb2, 0xb1}, ip: "10.0.1.2", hops: []string{"10.0.2.3"}},
		"10.0.2.3": {name: "C", macs: []domain.MAC{0xc1}},
	})
	rec := &countingRecorder{}
	c := mustCoordinator(t, net, WithRecorder(rec))

	topo, err := c.Discover(context.Background(), seed("10.0.0.1"))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	routers, _, links := topo.Stats()
	if routers != 3 {
		t.Errorf("expected A, B, C, got %d routers", routers)
	}
	if links != 2 {
		t.Errorf("expected links A-B and B-C, got %d", links)
	}
	if rec.outcomes[OutcomeDuplicate] != 1 {
		t.Errorf("expected one duplicate, got %v", rec.outcomes)
	}
	if got := net.buildCount("10.0.2.3"); got != 1 {
		t.Errorf("expected C assembled once, got %d", got)
	}
}

func TestDiscoverHosts(t *testing.T) {
	net := newFakeNetwork(map[string]device{
		"10.0.0.1": {
			name: "A",
			macs: []domain.MAC{0xc80000000001},
			hops: []string{"0.0.0.0", "10.0.0.1", "10.0.0.2"},
			arp: []domain.ArpRecord{
				{MAC: 0x05, IP: seed("10.0.0.5")},
				{MAC: 0x06, IP: seed("10.0.0.6")},
			},
		},
		"10.0.0.2": {
			name: "B",
			macs: []domain.MAC{0xc80000000002},
			arp:  []domain.ArpRecord{{MAC: 0x05, IP: seed("10.0.0.5")}},
		},
	})
	rec := &countingRecorder{}
	c := mustCoordinator(t, net, WithRecorder(rec))

	topo, err := c.Discover(context.Background(), seed("10.0.0.1"))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	routers, hosts, links := topo.Stats()
	if routers != 2 || hosts != 2 {
		t.Errorf("expected 2 routers and 2 hosts, got %d and %d", routers, hosts)
	}
	// A-h5, A-h6, B-h5, A-B
	if links != 4 {
		t.Errorf("expected 4 links, got %d", links)
	}
	if rec.hosts != 2 || rec.links != 4 {
		t.Errorf("recorder saw %d hosts %d links", rec.hosts, rec.links)
	}
	if got := net.buildCount("10.0.0.1"); got != 1 {
		t.Errorf("expected no rediscovery through own address, got %d builds", got)
	}
	for _, h := range topo.Hosts() {
		if h.IP.IsUnspecified() {
			t.Error("zero address must not become a host")
		}
	}
}

func TestDiscoverMaxConcurrent(t *testing.T) {
	devices := map[string]device{
		"10.0.0.1": {name: "hub", macs: []domain.MAC{0x01}},
	}
	hub := devices["10.0.0.1"]
	for i := 2; i <= 12; i++ {
		addr := netip.AddrFrom4([4]byte{10, 0, 0, byte(i)}).String()
		hub.hops = append(hub.hops, addr)
		devices[addr] = device{macs: []domain.MAC{domain.MAC(0x100 + i)}, delay: 20 * time.Millisecond}
	}
	devices["10.0.0.1"] = hub

	net := newFakeNetwork(devices)
	c := mustCoordinator(t, net, WithMaxConcurrent(3))

	topo, err := c.Discover(context.Background(), seed("10.0.0.1"))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if routers, _, _ := topo.Stats(); routers != 12 {
		t.Errorf("expected 12 routers, got %d", routers)
	}
	if peak := net.peak.Load(); peak > 3 {
		t.Errorf("expected at most 3 concurrent assemblies, got %d", peak)
	}
}

type stubVerifier struct {
	called bool
	sealed bool
}

func (s *stubVerifier) Verify(ctx context.Context, topo *domain.Topology) error {
	s.called = true
	s.sealed = topo.Sealed()
	return errors.New("nmap missing")
}

func TestDiscoverVerifiesHostsBeforeSeal(t *testing.T) {
	net := newFakeNetwork(map[string]device{
		"10.0.0.1": {name: "A", macs: []domain.MAC{0x01}},
	})
	v := &stubVerifier{}
	c := mustCoordinator(t, net, WithHostVerifier(v))

	topo, err := c.Discover(context.Background(), seed("10.0.0.1"))
	if err != nil {
		t.Fatalf("verification failure must not fail discovery: %v", err)
	}
	if !v.called || v.sealed {
		t.Errorf("expected verifier called on unsealed topology, called=%v sealed=%v", v.called, v.sealed)
	}
	if !topo.Sealed() {
		t.Error("expected sealed topology")
	}
}

func TestAdapterSync(t *testing.T) {
	net := newFakeNetwork(map[string]device{
		"10.0.0.1": {name: "A", macs: []domain.MAC{0x01}},
	})
	a := NewAdapter(mustCoordinator(t, net), seed("10.0.0.1"))

	if a.Name() != "discovery" {
		t.Errorf("name = %q", a.Name())
	}
	topo, err := a.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if routers, _, _ := topo.Stats(); routers != 1 {
		t.Errorf("expected 1 router, got %d", routers)
	}
}

func TestAdapterSetSeed(t *testing.T) {
	net := newFakeNetwork(map[string]device{
		"10.0.0.1": {name: "A", macs: []domain.MAC{0x01}},
		"10.0.9.1": {name: "B", macs: []domain.MAC{0x02}},
	})
	a := NewOneShotAdapter(mustCoordinator(t, net), seed("10.0.0.1"))
	a.SetSeed(seed("10.0.9.1"))

	if a.Seed() != seed("10.0.9.1") {
		t.Errorf("seed = %s, want 10.0.9.1", a.Seed())
	}
	topo, err := a.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	routers := topo.Routers()
	if len(routers) != 1 || routers[0].Name != "B" {
		t.Errorf("routers = %v, want [B]", routers)
	}
}
