// Package domain defines the topology model produced by discovery.
//
// # Nodes
//
// Router is a routing node assembled from one device's facts: its
// interfaces, next-hop addresses and ARP neighbors. Two routers are the same
// node when their sets of interface MAC addresses are equal, regardless of
// which address they were reached through. Routers with no interfaces are
// only ever equal to themselves.
//
// PCHost is an end host inferred from a router's ARP cache. Hosts are
// identified by MAC alone.
//
// Node is the closed set {*Router, *PCHost}.
//
// # Links and Topology
//
// Link joins two nodes without direction. Topology owns the node and link
// sets for one discovery run; insertion is an atomic test-and-insert so
// concurrent discovery branches never add the same router twice. Once the
// run completes the topology is sealed and becomes read-only.
//
// Graph is the flattened, serializable view used by exporters.
package domain
