package adapter

import (
	"context"
	"net/netip"
	"slices"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"routescope/internal/domain"
	"routescope/internal/snmp"
)

// RouterDataSource retrieves the facts of one device
type RouterDataSource interface {
	// SystemName returns the device name, or "" when it has none
	SystemName(ctx context.Context, addr netip.Addr) (string, error)

	// Interfaces returns the device interfaces with addresses merged in
	Interfaces(ctx context.Context, addr netip.Addr) ([]domain.IpInterface, error)

	// NextHops returns the distinct next-hop addresses of the routing table
	NextHops(ctx context.Context, addr netip.Addr) ([]netip.Addr, error)

	// ArpRecords returns the address-resolution cache
	ArpRecords(ctx context.Context, addr netip.Addr) ([]domain.ArpRecord, error)
}

// TableWalker is the subset of snmp.Client used by SNMPSource
type TableWalker interface {
	Get(ctx context.Context, target snmp.Target, oid string) (snmp.Value, bool, error)
	WalkTable(ctx context.Context, target snmp.Target, base string) (snmp.Table, error)
}

// SNMPSource maps MIB-II tables to domain records
type SNMPSource struct {
	client   TableWalker
	template snmp.Target
	log      logr.Logger
}

// NewSNMPSource creates a source that queries devices with the settings of
// template. Only the address differs per call.
func NewSNMPSource(client TableWalker, template snmp.Target, log logr.Logger) *SNMPSource {
	return &SNMPSource{
		client:   client,
		template: template,
		log:      log.WithName("snmp-source"),
	}
}

func (s *SNMPSource) target(addr netip.Addr) snmp.Target {
	return s.template.WithAddress(addr)
}

// SystemName reads sysName.0
func (s *SNMPSource) SystemName(ctx context.Context, addr netip.Addr) (string, error) {
	v, ok, err := s.client.Get(ctx, s.target(addr), snmp.OIDSysName)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(v.String()), nil
}

// Interfaces walks ifTable and ipAddrTable concurrently and merges addresses
// into the interfaces by index. Address rows for unknown indexes are dropped.
func (s *SNMPSource) Interfaces(ctx context.Context, addr netip.Addr) ([]domain.IpInterface, error) {
	var ifTable, addrTable snmp.Table

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ifTable, err = s.client.WalkTable(gctx, s.target(addr), snmp.OIDIfTable)
		return err
	})
	g.Go(func() error {
		var err error
		addrTable, err = s.client.WalkTable(gctx, s.target(addr), snmp.OIDIPAddrTable)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ifaces := parseInterfaceTable(ifTable)
	merged := mergeAddressTable(addrTable, ifaces)

	s.log.V(1).Info("Interfaces retrieved", "address", addr,
		"interfaces", len(ifaces), "addressed", merged)
	return ifaces, nil
}

// NextHops walks ipCidrRouteTable
func (s *SNMPSource) NextHops(ctx context.Context, addr netip.Addr) ([]netip.Addr, error) {
	table, err := s.client.WalkTable(ctx, s.target(addr), snmp.OIDIPCidrRouteTable)
	if err != nil {
		return nil, err
	}

	hops := parseRoutingTable(table)
	s.log.V(1).Info("Routes retrieved", "address", addr, "routes", len(table), "next_hops", len(hops))
	return hops, nil
}

// ArpRecords walks ipNetToMediaTable
func (s *SNMPSource) ArpRecords(ctx context.Context, addr netip.Addr) ([]domain.ArpRecord, error) {
	table, err := s.client.WalkTable(ctx, s.target(addr), snmp.OIDIPNetToMediaTable)
	if err != nil {
		return nil, err
	}

	records := parseArpTable(table)
	s.log.V(1).Info("ARP cache retrieved", "address", addr, "records", len(records))
	return records, nil
}

// parseInterfaceTable converts ifTable rows. Rows without a usable index or
// physical address are skipped.
func parseInterfaceTable(table snmp.Table) []domain.IpInterface {
	var ifaces []domain.IpInterface
	for _, key := range sortedKeys(table) {
		row := table[key]

		index, ok := row[snmp.ColIfIndex].Int()
		if !ok || index <= 0 {
			continue
		}
		mac, ok := valueMAC(row[snmp.ColIfPhysAddress])
		if !ok {
			continue
		}

		ifaces = append(ifaces, domain.IpInterface{
			Index:       int(index),
			Description: strings.TrimSpace(row[snmp.ColIfDescr].String()),
			MAC:         mac,
		})
	}
	return ifaces
}

// mergeAddressTable sets IP and mask on every interface whose index matches an
// ipAddrTable row. It returns the number of interfaces updated.
func mergeAddressTable(table snmp.Table, ifaces []domain.IpInterface) int {
	updated := 0
	for _, key := range sortedKeys(table) {
		row := table[key]

		index, ok := row[snmp.ColIPAdEntIfIndex].Int()
		if !ok {
			continue
		}
		ip, ok := valueAddr(row[snmp.ColIPAdEntAddr])
		if !ok {
			continue
		}
		mask, ok := valueAddr(row[snmp.ColIPAdEntNetMask])
		if !ok {
			continue
		}

		for i := range ifaces {
			if ifaces[i].Index == int(index) {
				ifaces[i].IP = ip
				ifaces[i].Mask = mask
				updated++
			}
		}
	}
	return updated
}

// parseRoutingTable collects distinct next hops in ascending order
func parseRoutingTable(table snmp.Table) []netip.Addr {
	seen := make(map[netip.Addr]struct{})
	var hops []netip.Addr
	for _, row := range table {
		ip, ok := valueAddr(row[snmp.ColIPCidrRouteNextHop])
		if !ok {
			continue
		}
		if _, dup := seen[ip]; dup {
			continue
		}
		seen[ip] = struct{}{}
		hops = append(hops, ip)
	}
	slices.SortFunc(hops, func(a, b netip.Addr) int { return a.Compare(b) })
	return hops
}

// parseArpTable converts ipNetToMediaTable rows, skipping unparseable ones
func parseArpTable(table snmp.Table) []domain.ArpRecord {
	var records []domain.ArpRecord
	for _, key := range sortedKeys(table) {
		row := table[key]

		mac, ok := valueMAC(row[snmp.ColNetToMediaPhysAddress])
		if !ok {
			continue
		}
		ip, ok := valueAddr(row[snmp.ColNetToMediaNetAddress])
		if !ok {
			continue
		}
		records = append(records, domain.ArpRecord{MAC: mac, IP: ip})
	}
	return records
}

// valueMAC reads a physical address from 6 raw octets, or from hex text for
// agents that send it as a display string
func valueMAC(v snmp.Value) (domain.MAC, bool) {
	if b, ok := v.Bytes(); ok {
		if len(b) == 6 {
			return domain.MACFromBytes(b)
		}
		return domain.ParseMAC(string(b))
	}
	return domain.ParseMAC(v.String())
}

// valueAddr reads an IPv4 address from an IpAddress value or 4 raw octets
func valueAddr(v snmp.Value) (netip.Addr, bool) {
	if b, ok := v.Bytes(); ok && len(b) == 4 {
		return netip.AddrFrom4([4]byte(b)), true
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return netip.Addr{}, false
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return ip.Unmap(), true
}

func sortedKeys(table snmp.Table) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
