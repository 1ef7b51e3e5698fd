package domain

import (
	"cmp"
	"errors"
	"slices"
	"sync"
)

var (
	// ErrNilNode is returned when a nil router, host or link endpoint is passed
	ErrNilNode = errors.New("topology: nil node")
	// ErrUnknownNode is returned when a link endpoint is not in the topology
	ErrUnknownNode = errors.New("topology: node not present")
	// ErrSealed is returned when mutating a topology after discovery finished
	ErrSealed = errors.New("topology: sealed")
)

// Topology is the result of one discovery run: routers, hosts and the links
// between them. All methods are safe for concurrent use. Each Add is a single
// test-and-insert step under the lock.
type Topology struct {
	mu      sync.RWMutex
	routers map[string]*Router
	hosts   map[string]*PCHost
	links   map[string]*Link
	sealed  bool
}

// NewTopology creates an empty topology
func NewTopology() *Topology {
	return &Topology{
		routers: make(map[string]*Router),
		hosts:   make(map[string]*PCHost),
		links:   make(map[string]*Link),
	}
}

// AddRouter inserts r unless an equal router is already present. It returns
// the canonical instance held by the topology and whether r was inserted.
func (t *Topology) AddRouter(r *Router) (*Router, bool, error) {
	if r == nil {
		return nil, false, ErrNilNode
	}
	key := r.Key()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return nil, false, ErrSealed
	}
	if existing, ok := t.routers[key]; ok {
		return existing, false, nil
	}
	t.routers[key] = r
	return r, true, nil
}

// AddHost inserts h unless a host with the same MAC is present, in which
// case the first sighting wins and is returned unchanged.
func (t *Topology) AddHost(h *PCHost) (*PCHost, bool, error) {
	if h == nil {
		return nil, false, ErrNilNode
	}
	key := h.Key()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return nil, false, ErrSealed
	}
	if existing, ok := t.hosts[key]; ok {
		return existing, false, nil
	}
	t.hosts[key] = h
	return h, true, nil
}

// AddLink joins two nodes that are already part of the topology. The link
// references the canonical instances. A link from a node to itself is ignored.
func (t *Topology) AddLink(a, b Node) (*Link, bool, error) {
	if isNil(a) || isNil(b) {
		return nil, false, ErrNilNode
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return nil, false, ErrSealed
	}
	ca, ok := t.lookup(a)
	if !ok {
		return nil, false, ErrUnknownNode
	}
	cb, ok := t.lookup(b)
	if !ok {
		return nil, false, ErrUnknownNode
	}
	if ca.Key() == cb.Key() {
		return nil, false, nil
	}

	link := NewLink(ca, cb)
	key := link.Key()
	if existing, ok := t.links[key]; ok {
		return existing, false, nil
	}
	t.links[key] = link
	return link, true, nil
}

func (t *Topology) lookup(n Node) (Node, bool) {
	switch v := n.(type) {
	case *Router:
		r, ok := t.routers[v.Key()]
		return r, ok
	case *PCHost:
		h, ok := t.hosts[v.Key()]
		return h, ok
	}
	return nil, false
}

func isNil(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *Router:
		return v == nil
	case *PCHost:
		return v == nil
	}
	return false
}

// SetHostStatus records the probe result for the host with the given MAC
func (t *Topology) SetHostStatus(mac MAC, status HostStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return ErrSealed
	}
	h, ok := t.hosts[(&PCHost{MAC: mac}).Key()]
	if !ok {
		return ErrUnknownNode
	}
	h.Status = status
	return nil
}

// Seal makes the topology read-only
func (t *Topology) Seal() {
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()
}

// Sealed reports whether Seal has been called
func (t *Topology) Sealed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sealed
}

// Routers returns the routers ordered by label
func (t *Topology) Routers() []*Router {
	t.mu.RLock()
	out := make([]*Router, 0, len(t.routers))
	for _, r := range t.routers {
		out = append(out, r)
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Router) int {
		return cmp.Or(cmp.Compare(a.Label(), b.Label()), cmp.Compare(a.Key(), b.Key()))
	})
	return out
}

// Hosts returns the hosts ordered by IP then MAC
func (t *Topology) Hosts() []*PCHost {
	t.mu.RLock()
	out := make([]*PCHost, 0, len(t.hosts))
	for _, h := range t.hosts {
		out = append(out, h)
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b *PCHost) int {
		return cmp.Or(a.IP.Compare(b.IP), cmp.Compare(a.MAC, b.MAC))
	})
	return out
}

// Links returns the links with router-to-router links first, then by labels
func (t *Topology) Links() []*Link {
	t.mu.RLock()
	out := make([]*Link, 0, len(t.links))
	for _, l := range t.links {
		out = append(out, l)
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Link) int {
		return cmp.Or(
			cmp.Compare(linkRank(a), linkRank(b)),
			cmp.Compare(a.A.Label(), b.A.Label()),
			cmp.Compare(a.B.Label(), b.B.Label()),
			cmp.Compare(a.Key(), b.Key()),
		)
	})
	return out
}

func linkRank(l *Link) int {
	rank := 0
	if l.A.Kind() == NodeKindHost {
		rank++
	}
	if l.B.Kind() == NodeKindHost {
		rank++
	}
	return rank
}

// Stats returns the node and link counts
func (t *Topology) Stats() (routers, hosts, links int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routers), len(t.hosts), len(t.links)
}
