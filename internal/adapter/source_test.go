package adapter

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/go-logr/logr"

	"routescope/internal/snmp"
)

// fakeWalker serves canned tables keyed by base OID
type fakeWalker struct {
	tables  map[string]snmp.Table
	values  map[string]snmp.Value
	errs    map[string]error
	targets []snmp.Target
}

func (f *fakeWalker) Get(ctx context.Context, target snmp.Target, oid string) (snmp.Value, bool, error) {
	f.targets = append(f.targets, target)
	if err := f.errs[oid]; err != nil {
		return snmp.Value{}, false, err
	}
	v, ok := f.values[oid]
	return v, ok, nil
}

func (f *fakeWalker) WalkTable(ctx context.Context, target snmp.Target, base string) (snmp.Table, error) {
	if err := f.errs[base]; err != nil {
		return nil, err
	}
	if t, ok := f.tables[base]; ok {
		return t, nil
	}
	return snmp.Table{}, nil
}

func octets(b ...byte) snmp.Value {
	return snmp.Value{Type: snmp.TypeOctetString, Raw: b}
}

func text(s string) snmp.Value {
	return snmp.Value{Type: snmp.TypeOctetString, Raw: []byte(s)}
}

func integer(n int64) snmp.Value {
	return snmp.Value{Type: snmp.TypeInteger, Raw: n}
}

func ipValue(s string) snmp.Value {
	return snmp.Value{Type: snmp.TypeIPAddress, Raw: s}
}

func testSource(w *fakeWalker) *SNMPSource {
	return NewSNMPSource(w, snmp.DefaultTarget(netip.Addr{}), logr.Discard())
}

var routerAddr = netip.MustParseAddr("10.0.0.1")

func TestSNMPSourceInterfaces(t *testing.T) {
	t.Run("merges addresses by index", func(t *testing.T) {
		w := &fakeWalker{tables: map[string]snmp.Table{
			snmp.OIDIfTable: {
				"1": {1: integer(1), 2: text("eth0"), 6: octets(0xc8, 0, 0, 0, 0, 1)},
				"2": {1: integer(2), 2: text("eth1"), 6: text("C8 00 00 00 00 02")},
				"3": {1: integer(3), 2: text("lo"), 6: octets()},
				"4": {1: text("x"), 2: text("bad"), 6: octets(0, 0, 0, 0, 0, 4)},
			},
			snmp.OIDIPAddrTable: {
				"10.0.0.1":    {1: ipValue("10.0.0.1"), 2: integer(1), 3: ipValue("255.255.255.0")},
				"10.0.1.1":    {1: ipValue("10.0.1.1"), 2: integer(2), 3: ipValue("255.255.255.0")},
				"10.9.9.9":    {1: ipValue("10.9.9.9"), 2: integer(9), 3: ipValue("255.0.0.0")},
				"garbage-row": {1: ipValue("not-an-ip"), 2: integer(1), 3: ipValue("255.0.0.0")},
			},
		}}

		ifaces, err := testSource(w).Interfaces(context.Background(), routerAddr)
		if err != nil {
			t.Fatalf("Interfaces: %v", err)
		}

		if len(ifaces) != 2 {
			t.Fatalf("expected 2 interfaces, got %d: %+v", len(ifaces), ifaces)
		}
		if ifaces[0].Description != "eth0" || ifaces[0].MAC != 0xc80000000001 {
			t.Errorf("unexpected eth0 %+v", ifaces[0])
		}
		if ifaces[0].IP.String() != "10.0.0.1" || ifaces[0].Mask.String() != "255.255.255.0" {
			t.Errorf("expected eth0 addressed, got %+v", ifaces[0])
		}
		if ifaces[1].MAC != 0xc80000000002 {
			t.Errorf("expected MAC parsed from hex text, got %s", ifaces[1].MAC)
		}
		if ifaces[1].IP.String() != "10.0.1.1" {
			t.Errorf("expected eth1 addressed, got %+v", ifaces[1])
		}
	})

	t.Run("empty tables are not errors", func(t *testing.T) {
		ifaces, err := testSource(&fakeWalker{}).Interfaces(context.Background(), routerAddr)
		if err != nil {
			t.Fatalf("Interfaces: %v", err)
		}
		if len(ifaces) != 0 {
			t.Errorf("expected no interfaces, got %d", len(ifaces))
		}
	})

	t.Run("walk error propagates", func(t *testing.T) {
		w := &fakeWalker{errs: map[string]error{snmp.OIDIPAddrTable: errors.New("timeout")}}
		if _, err := testSource(w).Interfaces(context.Background(), routerAddr); err == nil {
			t.Error("expected error")
		}
	})
}

func TestSNMPSourceNextHops(t *testing.T) {
	w := &fakeWalker{tables: map[string]snmp.Table{
		snmp.OIDIPCidrRouteTable: {
			"10.1.0.0.255.255.0.0.0.10.0.0.2":  {4: ipValue("10.0.0.2")},
			"10.2.0.0.255.255.0.0.0.10.0.0.2":  {4: ipValue("10.0.0.2")},
			"10.3.0.0.255.255.0.0.0.10.0.0.3":  {4: octets(10, 0, 0, 3)},
			"10.0.0.0.255.255.255.0.0.0.0.0.0": {4: ipValue("0.0.0.0")},
			"bad":                              {4: text("bogus")},
		},
	}}

	hops, err := testSource(w).NextHops(context.Background(), routerAddr)
	if err != nil {
		t.Fatalf("NextHops: %v", err)
	}

	want := []string{"0.0.0.0", "10.0.0.2", "10.0.0.3"}
	if len(hops) != len(want) {
		t.Fatalf("expected %v, got %v", want, hops)
	}
	for i := range want {
		if hops[i].String() != want[i] {
			t.Errorf("hop %d = %s, want %s", i, hops[i], want[i])
		}
	}
}

func TestSNMPSourceArpRecords(t *testing.T) {
	w := &fakeWalker{tables: map[string]snmp.Table{
		snmp.OIDIPNetToMediaTable: {
			"1.10.0.0.5": {2: octets(0, 0x11, 0x22, 0x33, 0x44, 0x55), 3: ipValue("10.0.0.5")},
			"1.10.0.0.6": {2: octets(1, 2), 3: ipValue("10.0.0.6")},
			"1.10.0.0.7": {2: octets(0, 0x11, 0x22, 0x33, 0x44, 0x77)},
		},
	}}

	records, err := testSource(w).ArpRecords(context.Background(), routerAddr)
	if err != nil {
		t.Fatalf("ArpRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %+v", records)
	}
	if records[0].MAC != 0x001122334455 || records[0].IP.String() != "10.0.0.5" {
		t.Errorf("unexpected record %+v", records[0])
	}
}

func TestSNMPSourceSystemName(t *testing.T) {
	t.Run("uses template with device address", func(t *testing.T) {
		w := &fakeWalker{values: map[string]snmp.Value{snmp.OIDSysName: text("core-1 ")}}
		name, err := testSource(w).SystemName(context.Background(), routerAddr)
		if err != nil {
			t.Fatalf("SystemName: %v", err)
		}
		if name != "core-1" {
			t.Errorf("name = %q", name)
		}
		if w.targets[0].Address != routerAddr || w.targets[0].Community != "public" {
			t.Errorf("unexpected target %+v", w.targets[0])
		}
	})

	t.Run("missing object is empty name", func(t *testing.T) {
		name, err := testSource(&fakeWalker{}).SystemName(context.Background(), routerAddr)
		if err != nil || name != "" {
			t.Errorf("got %q, %v", name, err)
		}
	})
}
