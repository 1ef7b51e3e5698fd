package domain

import (
	"fmt"
	"net/netip"
)

// Graph is the derived, serializable view of a Topology used by exporters
type Graph struct {
	Routers []GraphRouter `json:"routers" yaml:"routers"`
	Hosts   []GraphHost   `json:"hosts" yaml:"hosts"`
	Links   []GraphLink   `json:"links" yaml:"links"`
}

// GraphRouter is a router in the exported view
type GraphRouter struct {
	ID         string           `json:"id" yaml:"id"`
	Label      string           `json:"label" yaml:"label"`
	Name       string           `json:"name,omitempty" yaml:"name,omitempty"`
	Interfaces []GraphInterface `json:"interfaces" yaml:"interfaces"`
	NextHops   []string         `json:"next_hops,omitempty" yaml:"next_hops,omitempty"`
}

// GraphInterface is one router interface in the exported view
type GraphInterface struct {
	Index       int    `json:"index" yaml:"index"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	MAC         string `json:"mac" yaml:"mac"`
	IP          string `json:"ip,omitempty" yaml:"ip,omitempty"`
	Mask        string `json:"mask,omitempty" yaml:"mask,omitempty"`
}

// GraphHost is an end host in the exported view
type GraphHost struct {
	ID     string     `json:"id" yaml:"id"`
	Label  string     `json:"label" yaml:"label"`
	MAC    string     `json:"mac" yaml:"mac"`
	IP     string     `json:"ip,omitempty" yaml:"ip,omitempty"`
	Status HostStatus `json:"status" yaml:"status"`
}

// GraphLink is a link in the exported view
type GraphLink struct {
	ID   string `json:"id" yaml:"id"`
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// NodeID is the short stable ID of a node in exported views
func NodeID(n Node) string {
	return fmt.Sprintf("%016x", n.Hash())
}

// DeriveGraph converts a Topology to its exported view
func DeriveGraph(t *Topology) *Graph {
	routers := t.Routers()
	hosts := t.Hosts()
	links := t.Links()

	graph := &Graph{
		Routers: make([]GraphRouter, 0, len(routers)),
		Hosts:   make([]GraphHost, 0, len(hosts)),
		Links:   make([]GraphLink, 0, len(links)),
	}

	for _, r := range routers {
		node := GraphRouter{
			ID:         NodeID(r),
			Label:      r.Label(),
			Name:       r.Name,
			Interfaces: make([]GraphInterface, 0, len(r.interfaces)),
		}
		for _, iface := range r.Interfaces() {
			node.Interfaces = append(node.Interfaces, GraphInterface{
				Index:       iface.Index,
				Description: iface.Description,
				MAC:         iface.MAC.String(),
				IP:          addrString(iface.IP),
				Mask:        addrString(iface.Mask),
			})
		}
		for _, hop := range r.NextHops() {
			node.NextHops = append(node.NextHops, hop.String())
		}
		graph.Routers = append(graph.Routers, node)
	}

	for _, h := range hosts {
		graph.Hosts = append(graph.Hosts, GraphHost{
			ID:     NodeID(h),
			Label:  h.Label(),
			MAC:    h.MAC.String(),
			IP:     addrString(h.IP),
			Status: h.Status,
		})
	}

	for _, l := range links {
		graph.Links = append(graph.Links, GraphLink{
			ID:   l.ID(),
			From: NodeID(l.A),
			To:   NodeID(l.B),
		})
	}

	return graph
}

func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.String()
}
