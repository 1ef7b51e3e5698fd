// Package discovery builds a Topology by walking routers outward from a seed
// address.
//
// Each address moves through Unvisited, InProgress and one terminal state:
// Added, Duplicate or Failed. An Added router contributes its ARP neighbors
// as hosts and has every next hop discovered concurrently; the branch is
// done once all of those finish and the router is linked to each one that
// produced a router. A Duplicate router (equal to one already present) is
// linked but never expanded, which bounds the recursion on routing loops.
// Failed branches are logged, reported individually in the returned error
// and leave the rest of the run untouched.
package discovery
