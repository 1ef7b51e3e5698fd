package adapter

import (
	"context"
	"errors"
	"net/netip"
	"sync/atomic"
	"testing"

	"routescope/internal/domain"
)

// fakeSource returns fixed facts and counts calls
type fakeSource struct {
	name    string
	ifaces  []domain.IpInterface
	hops    []netip.Addr
	arp     []domain.ArpRecord
	failArp error
	calls   atomic.Int32
}

func (f *fakeSource) SystemName(ctx context.Context, addr netip.Addr) (string, error) {
	f.calls.Add(1)
	return f.name, nil
}

func (f *fakeSource) Interfaces(ctx context.Context, addr netip.Addr) ([]domain.IpInterface, error) {
	f.calls.Add(1)
	return f.ifaces, nil
}

func (f *fakeSource) NextHops(ctx context.Context, addr netip.Addr) ([]netip.Addr, error) {
	f.calls.Add(1)
	return f.hops, nil
}

func (f *fakeSource) ArpRecords(ctx context.Context, addr netip.Addr) ([]domain.ArpRecord, error) {
	f.calls.Add(1)
	if f.failArp != nil {
		return nil, f.failArp
	}
	return f.arp, nil
}

func addr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}

func ifaceOn(index int, mac domain.MAC, ip, mask string) domain.IpInterface {
	return domain.IpInterface{Index: index, MAC: mac, IP: addr(ip), Mask: addr(mask)}
}

func TestNewRouterBuilder(t *testing.T) {
	t.Run("rejects nil source", func(t *testing.T) {
		if _, err := NewRouterBuilder(nil); !errors.Is(err, ErrNilSource) {
			t.Errorf("expected ErrNilSource, got %v", err)
		}
	})

	t.Run("nil filter keeps default", func(t *testing.T) {
		b, err := NewRouterBuilder(&fakeSource{}, WithArpFilter(nil))
		if err != nil {
			t.Fatalf("NewRouterBuilder: %v", err)
		}
		if b.filter == nil {
			t.Error("expected default filter")
		}
	})
}

func TestRouterBuilderBuild(t *testing.T) {
	src := &fakeSource{
		name: "core-1",
		ifaces: []domain.IpInterface{
			ifaceOn(1, 0xc80000000001, "10.0.0.1", "255.255.255.0"),
			{Index: 2, MAC: 0xc80000000002},
		},
		hops: []netip.Addr{addr("10.0.0.2"), addr("0.0.0.0"), addr("10.0.0.3")},
		arp: []domain.ArpRecord{
			{MAC: 0x000000000005, IP: addr("10.0.0.5")},
			{MAC: 0x000000000006, IP: addr("192.168.1.5")},
			{MAC: 0xc80000000007, IP: addr("10.0.0.7")},
			{MAC: 0x000000000008, IP: addr("0.0.0.0")},
		},
	}

	t.Run("default policy", func(t *testing.T) {
		b, _ := NewRouterBuilder(src)
		r, err := b.Build(context.Background(), addr("10.0.0.1"))
		if err != nil {
			t.Fatalf("Build: %v", err)
		}

		if r.Name != "core-1" {
			t.Errorf("name = %q", r.Name)
		}
		if len(r.Interfaces()) != 2 {
			t.Errorf("expected 2 interfaces, got %d", len(r.Interfaces()))
		}

		hops := r.NextHops()
		if len(hops) != 2 {
			t.Fatalf("expected zero hop discarded, got %v", hops)
		}
		for _, h := range hops {
			if h.IsUnspecified() {
				t.Error("zero next hop must not be kept")
			}
		}

		arp := r.ArpRecords()
		if len(arp) != 1 || arp[0].MAC != 0x000000000005 {
			t.Errorf("expected only the local PC entry, got %+v", arp)
		}
	})

	t.Run("local filter keeps router MACs", func(t *testing.T) {
		b, _ := NewRouterBuilder(src, WithArpFilter(LocalFilter))
		r, err := b.Build(context.Background(), addr("10.0.0.1"))
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if got := len(r.ArpRecords()); got != 2 {
			t.Errorf("expected 2 local entries, got %d", got)
		}
	})

	t.Run("any fact error fails the build", func(t *testing.T) {
		failing := &fakeSource{
			ifaces:  src.ifaces,
			failArp: errors.New("request timeout"),
		}
		b, _ := NewRouterBuilder(failing)
		if _, err := b.Build(context.Background(), addr("10.0.0.1")); err == nil {
			t.Fatal("expected error")
		}
		if got := failing.calls.Load(); got != 4 {
			t.Errorf("expected all four facts requested, got %d", got)
		}
	})
}

func TestArpPolicy(t *testing.T) {
	ifaces := []domain.IpInterface{
		ifaceOn(1, 0xc8, "10.0.0.1", "255.255.255.0"),
		{Index: 2, MAC: 0xc9, IP: addr("172.16.0.1")},
	}

	tests := []struct {
		name  string
		rec   domain.ArpRecord
		local bool
		pc    bool
	}{
		{"local host", domain.ArpRecord{MAC: 0x0000aabbccdd, IP: addr("10.0.0.5")}, true, true},
		{"remote host", domain.ArpRecord{MAC: 0x0000aabbccdd, IP: addr("192.168.1.5")}, false, false},
		{"local router MAC", domain.ArpRecord{MAC: 0xc8aabbccddee, IP: addr("10.0.0.6")}, true, false},
		{"interface without mask is skipped", domain.ArpRecord{MAC: 0x01, IP: addr("172.16.0.9")}, false, false},
		{"ipv6 neighbor", domain.ArpRecord{MAC: 0x01, IP: addr("fe80::1")}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsIPLocal(tt.rec.IP, ifaces); got != tt.local {
				t.Errorf("IsIPLocal = %v, want %v", got, tt.local)
			}
			if got := PCHostFilter(tt.rec, ifaces); got != tt.pc {
				t.Errorf("PCHostFilter = %v, want %v", got, tt.pc)
			}
		})
	}
}

func TestFilterByName(t *testing.T) {
	for _, name := range []string{"", "pc-mac", "any"} {
		if _, err := FilterByName(name); err != nil {
			t.Errorf("FilterByName(%q): %v", name, err)
		}
	}
	if _, err := FilterByName("routers"); err == nil {
		t.Error("expected error for unknown filter")
	}
}
