package domain

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"net/netip"
	"slices"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// IpInterface is one interface of a router
type IpInterface struct {
	Index       int
	Description string
	MAC         MAC
	IP          netip.Addr
	Mask        netip.Addr
}

// HasAddress reports whether both IP and mask are known
func (i IpInterface) HasAddress() bool {
	return i.IP.IsValid() && i.Mask.IsValid()
}

// ArpRecord is one neighbor seen in a router's address-resolution cache
type ArpRecord struct {
	MAC MAC
	IP  netip.Addr
}

// routerRefs hands out reference identities for routers without interfaces
var routerRefs atomic.Uint64

// Router is a discovered routing node. Identity is the set of interface MACs.
//
// A Router is built by one goroutine and must not be mutated once it has
// been added to a Topology.
type Router struct {
	Name string

	interfaces map[int]IpInterface
	nextHops   map[netip.Addr]struct{}
	arp        map[ArpRecord]struct{}
	ref        uint64
}

// NewRouter creates an empty router
func NewRouter(name string) *Router {
	return &Router{
		Name:       name,
		interfaces: make(map[int]IpInterface),
		nextHops:   make(map[netip.Addr]struct{}),
		arp:        make(map[ArpRecord]struct{}),
		ref:        routerRefs.Add(1),
	}
}

// AddInterface adds an interface, replacing any existing one with the same index
func (r *Router) AddInterface(iface IpInterface) {
	r.interfaces[iface.Index] = iface
}

// AddInterfaces adds several interfaces with replace-by-index semantics
func (r *Router) AddInterfaces(ifaces []IpInterface) {
	for _, iface := range ifaces {
		r.AddInterface(iface)
	}
}

// AddNextHop records a next-hop address. Invalid and all-zero addresses are
// not real neighbors and are dropped. It reports whether the hop was kept.
func (r *Router) AddNextHop(ip netip.Addr) bool {
	if !ip.IsValid() || ip.IsUnspecified() {
		return false
	}
	r.nextHops[ip.Unmap()] = struct{}{}
	return true
}

// AddNextHops records several next hops
func (r *Router) AddNextHops(ips []netip.Addr) {
	for _, ip := range ips {
		r.AddNextHop(ip)
	}
}

// AddArp records an ARP entry. Adding the same (MAC, IP) pair twice keeps one.
// Entries without a real address are dropped.
func (r *Router) AddArp(rec ArpRecord) {
	if !rec.IP.IsValid() || rec.IP.IsUnspecified() {
		return
	}
	rec.IP = rec.IP.Unmap()
	r.arp[rec] = struct{}{}
}

// Interfaces returns the interfaces ordered by index
func (r *Router) Interfaces() []IpInterface {
	out := make([]IpInterface, 0, len(r.interfaces))
	for _, iface := range r.interfaces {
		out = append(out, iface)
	}
	slices.SortFunc(out, func(a, b IpInterface) int { return a.Index - b.Index })
	return out
}

// NextHops returns the next-hop addresses in ascending order
func (r *Router) NextHops() []netip.Addr {
	out := make([]netip.Addr, 0, len(r.nextHops))
	for ip := range r.nextHops {
		out = append(out, ip)
	}
	slices.SortFunc(out, func(a, b netip.Addr) int { return a.Compare(b) })
	return out
}

// ArpRecords returns the ARP entries ordered by IP then MAC
func (r *Router) ArpRecords() []ArpRecord {
	out := make([]ArpRecord, 0, len(r.arp))
	for rec := range r.arp {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b ArpRecord) int {
		if c := a.IP.Compare(b.IP); c != 0 {
			return c
		}
		return cmp.Compare(a.MAC, b.MAC)
	})
	return out
}

// MACs returns the sorted interface MACs
func (r *Router) MACs() []MAC {
	out := make([]MAC, 0, len(r.interfaces))
	for _, iface := range r.interfaces {
		out = append(out, iface.MAC)
	}
	slices.Sort(out)
	return out
}

// HasAddress reports whether ip is assigned to one of the router's interfaces
func (r *Router) HasAddress(ip netip.Addr) bool {
	ip = ip.Unmap()
	for _, iface := range r.interfaces {
		if iface.IP == ip {
			return true
		}
	}
	return false
}

// Key is the identity key used for deduplication. Routers with interfaces are
// keyed by their sorted MAC set. Routers without interfaces get a key unique
// to the instance so that unknown routers never collapse into one.
func (r *Router) Key() string {
	macs := r.MACs()
	if len(macs) == 0 {
		return fmt.Sprintf("router:ref:%d", r.ref)
	}
	key := make([]byte, 0, len("router:")+len(macs)*13)
	key = append(key, "router:"...)
	for i, m := range macs {
		if i > 0 {
			key = append(key, ',')
		}
		key = fmt.Appendf(key, "%012x", uint64(m))
	}
	return string(key)
}

// Equal reports structural equality over interface MAC sets
func (r *Router) Equal(other *Router) bool {
	if r == other {
		return true
	}
	if r == nil || other == nil {
		return false
	}
	return r.Key() == other.Key()
}

// Hash is an order-independent hash of the interface MAC set
func (r *Router) Hash() uint64 {
	macs := r.MACs()
	if len(macs) == 0 {
		return xxhash.Sum64String(r.Key())
	}
	d := xxhash.New()
	d.WriteString("router")
	var buf [8]byte
	for _, m := range macs {
		binary.BigEndian.PutUint64(buf[:], uint64(m))
		d.Write(buf[:])
	}
	return d.Sum64()
}

// Label is the human-readable name: the system name, else the lowest
// interface address, else the first MAC.
func (r *Router) Label() string {
	if r.Name != "" {
		return r.Name
	}
	var lowest netip.Addr
	for _, iface := range r.interfaces {
		if iface.IP.IsValid() && (!lowest.IsValid() || iface.IP.Less(lowest)) {
			lowest = iface.IP
		}
	}
	if lowest.IsValid() {
		return lowest.String()
	}
	if macs := r.MACs(); len(macs) > 0 {
		return "router " + macs[0].String()
	}
	return fmt.Sprintf("router #%d", r.ref)
}

func (r *Router) String() string {
	return r.Label()
}
