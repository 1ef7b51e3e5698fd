package codec

import (
	"bytes"
	"encoding/json"
	"net/netip"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"routescope/internal/domain"
)

func sampleTopology(t *testing.T) *domain.Topology {
	t.Helper()
	topo := domain.NewTopology()

	core := domain.NewRouter("core-1")
	core.AddInterface(domain.IpInterface{
		Index: 1,
		MAC:   0xc80000000001,
		IP:    netip.MustParseAddr("10.0.0.1"),
		Mask:  netip.MustParseAddr("255.255.255.0"),
	})
	edge := domain.NewRouter("edge-1")
	edge.AddInterface(domain.IpInterface{Index: 1, MAC: 0xc80000000002})
	host := domain.NewPCHost(0x001122334455, netip.MustParseAddr("10.0.0.5"))

	for _, r := range []*domain.Router{core, edge} {
		if _, _, err := topo.AddRouter(r); err != nil {
			t.Fatalf("AddRouter: %v", err)
		}
	}
	if _, _, err := topo.AddHost(host); err != nil {
		t.Fatalf("AddHost: %v", err)
	}
	topo.AddLink(core, host)
	topo.AddLink(edge, core)
	topo.Seal()
	return topo
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "text", false},
		{"text", "text", false},
		{"json", "json", false},
		{"yaml", "yaml", false},
		{"yml", "yaml", false},
		{"ansible", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ForFormat(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ForFormat(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err == nil && e.Format() != tt.want {
				t.Errorf("Format() = %s, want %s", e.Format(), tt.want)
			}
		})
	}
}

func TestTextExport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextCodec().Export(sampleTopology(t), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	want := `Routers (2):
  core-1
  edge-1

Hosts (1):
  10.0.0.5

Links (2):
  core-1 connected to edge-1
  core-1 connected to 10.0.0.5
`
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestTextExportHostStatus(t *testing.T) {
	topo := domain.NewTopology()
	h := domain.NewPCHost(0x01, netip.MustParseAddr("10.0.0.9"))
	topo.AddHost(h)
	topo.SetHostStatus(h.MAC, domain.HostStatusDown)

	var buf bytes.Buffer
	if err := NewTextCodec().Export(topo, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(buf.String(), "10.0.0.9 (down)") {
		t.Errorf("expected status in output, got:\n%s", buf.String())
	}
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONCodec().Export(sampleTopology(t), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var graph domain.Graph
	if err := json.Unmarshal(buf.Bytes(), &graph); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(graph.Routers) != 2 || len(graph.Hosts) != 1 || len(graph.Links) != 2 {
		t.Errorf("unexpected graph %+v", graph)
	}
	if graph.Routers[0].Interfaces[0].IP != "10.0.0.1" {
		t.Errorf("unexpected interface %+v", graph.Routers[0].Interfaces[0])
	}
}

func TestYAMLExport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewYAMLCodec().Export(sampleTopology(t), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var graph domain.Graph
	if err := yaml.Unmarshal(buf.Bytes(), &graph); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if len(graph.Routers) != 2 || len(graph.Hosts) != 1 || len(graph.Links) != 2 {
		t.Errorf("unexpected graph %+v", graph)
	}
	if graph.Hosts[0].Status != domain.HostStatusUnverified {
		t.Errorf("status = %s", graph.Hosts[0].Status)
	}
}
