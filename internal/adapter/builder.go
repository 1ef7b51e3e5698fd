package adapter

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"routescope/internal/domain"
)

// ErrNilSource is returned when a RouterBuilder is created without a data source
var ErrNilSource = errors.New("adapter: nil router data source")

// ArpFilter decides whether an ARP record of a router denotes an attached host
type ArpFilter func(rec domain.ArpRecord, ifaces []domain.IpInterface) bool

// PCHostFilter keeps ARP records with a zero top MAC byte whose IP lies in a
// directly attached subnet. The MAC test is a deployment heuristic: router
// interfaces carry a vendor OUI with a nonzero top byte while host NICs seen
// through ARP do not. Use LocalFilter where that does not hold.
func PCHostFilter(rec domain.ArpRecord, ifaces []domain.IpInterface) bool {
	return IsPCMac(rec.MAC) && IsIPLocal(rec.IP, ifaces)
}

// LocalFilter keeps every ARP record whose IP lies in a directly attached subnet
func LocalFilter(rec domain.ArpRecord, ifaces []domain.IpInterface) bool {
	return IsIPLocal(rec.IP, ifaces)
}

// FilterByName returns the ARP filter for a config name
func FilterByName(name string) (ArpFilter, error) {
	switch name {
	case "", "pc-mac":
		return PCHostFilter, nil
	case "any":
		return LocalFilter, nil
	}
	return nil, fmt.Errorf("unknown host filter %q", name)
}

// IsPCMac reports whether the top byte of the MAC is zero
func IsPCMac(mac domain.MAC) bool {
	return mac.TopByte() == 0
}

// IsIPLocal reports whether ip is in the subnet of one of the interfaces.
// Interfaces without an IP or mask never match.
func IsIPLocal(ip netip.Addr, ifaces []domain.IpInterface) bool {
	addr, ok := ipv4Uint32(ip)
	if !ok {
		return false
	}
	for _, iface := range ifaces {
		if !iface.HasAddress() {
			continue
		}
		own, ok := ipv4Uint32(iface.IP)
		if !ok {
			continue
		}
		mask, ok := ipv4Uint32(iface.Mask)
		if !ok {
			continue
		}
		if addr&mask == own&mask {
			return true
		}
	}
	return false
}

func ipv4Uint32(ip netip.Addr) (uint32, bool) {
	ip = ip.Unmap()
	if !ip.Is4() {
		return 0, false
	}
	b := ip.As4()
	return binary.BigEndian.Uint32(b[:]), true
}

// RouterBuilder assembles a Router from the facts of one device
type RouterBuilder struct {
	source RouterDataSource
	filter ArpFilter
	log    logr.Logger
}

// BuilderOption configures a RouterBuilder
type BuilderOption func(*RouterBuilder)

// WithArpFilter replaces the default PCHostFilter
func WithArpFilter(f ArpFilter) BuilderOption {
	return func(b *RouterBuilder) {
		if f != nil {
			b.filter = f
		}
	}
}

// WithBuilderLogger sets the builder logger
func WithBuilderLogger(log logr.Logger) BuilderOption {
	return func(b *RouterBuilder) {
		b.log = log
	}
}

// NewRouterBuilder creates a builder over source
func NewRouterBuilder(source RouterDataSource, opts ...BuilderOption) (*RouterBuilder, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	b := &RouterBuilder{
		source: source,
		filter: PCHostFilter,
		log:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build retrieves name, interfaces, routes and ARP cache of the device at addr
// concurrently and returns the assembled Router. Any retrieval error fails
// the whole build.
func (b *RouterBuilder) Build(ctx context.Context, addr netip.Addr) (*domain.Router, error) {
	var (
		name    string
		ifaces  []domain.IpInterface
		hops    []netip.Addr
		records []domain.ArpRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		name, err = b.source.SystemName(gctx, addr)
		if err != nil {
			return fmt.Errorf("system name: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ifaces, err = b.source.Interfaces(gctx, addr)
		if err != nil {
			return fmt.Errorf("interfaces: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		hops, err = b.source.NextHops(gctx, addr)
		if err != nil {
			return fmt.Errorf("next hops: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = b.source.ArpRecords(gctx, addr)
		if err != nil {
			return fmt.Errorf("arp: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build router %s: %w", addr, err)
	}

	router := domain.NewRouter(name)
	router.AddInterfaces(ifaces)
	router.AddNextHops(hops)

	kept := 0
	for _, rec := range records {
		if !b.filter(rec, ifaces) {
			continue
		}
		router.AddArp(rec)
		kept++
	}

	b.log.V(1).Info("Router assembled", "address", addr, "name", name,
		"interfaces", len(ifaces), "next_hops", len(router.NextHops()),
		"arp", len(records), "arp_kept", kept)
	return router, nil
}
