package domain

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/cespare/xxhash/v2"
)

// HostStatus is the reachability state of a discovered host
type HostStatus string

const (
	HostStatusUnverified HostStatus = "unverified" // Inferred from ARP, not probed
	HostStatusUp         HostStatus = "up"
	HostStatusDown       HostStatus = "down"
)

// PCHost is an end host inferred from a router's ARP cache. Identity is the MAC.
// MAC and IP are not modified once the host is part of a Topology.
type PCHost struct {
	MAC    MAC
	IP     netip.Addr
	Status HostStatus
}

// NewPCHost creates an unverified host
func NewPCHost(mac MAC, ip netip.Addr) *PCHost {
	return &PCHost{
		MAC:    mac,
		IP:     ip,
		Status: HostStatusUnverified,
	}
}

// Key is the identity key used for deduplication
func (h *PCHost) Key() string {
	return fmt.Sprintf("host:%012x", uint64(h.MAC))
}

// Equal reports whether both hosts have the same MAC
func (h *PCHost) Equal(other *PCHost) bool {
	if h == nil || other == nil {
		return h == other
	}
	return h.MAC == other.MAC
}

// Hash is derived from the MAC alone, tagged so it never equals the hash
// of a router with that single MAC
func (h *PCHost) Hash() uint64 {
	d := xxhash.New()
	d.WriteString("host")
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(h.MAC))
	d.Write(buf[:])
	return d.Sum64()
}

// Label is the host IP, or its MAC when the IP is unknown
func (h *PCHost) Label() string {
	if h.IP.IsValid() {
		return h.IP.String()
	}
	return h.MAC.String()
}

func (h *PCHost) String() string {
	if h.IP.IsValid() {
		return fmt.Sprintf("PC Host [%s]", h.IP)
	}
	return "PC Host [Unknown IP]"
}
