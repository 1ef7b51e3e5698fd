// Package snmp implements the device query layer used by routescope.
//
// The package has two halves. The transport half (Transport, Session,
// GoSNMPTransport) moves request and response PDUs to and from a device.
// The client half (Client) builds on that contract to retrieve a single
// value or walk a whole conceptual table with paginated GetBulk requests,
// reassembling the flat binding stream into rows keyed by instance.
//
// # Tables
//
// A table walk starts from a base OID such as 1.3.6.1.2.1.2.2 (ifTable).
// The entry suffix .1 is appended, and every binding below that root is
// split into a column id (first child component) and a row key (the rest,
// dotted). The walk stops as soon as a binding falls outside the root.
//
// # Sessions
//
// Every Get and WalkTable call opens its own Session and closes it before
// returning, on success and on every error path. Calls share no mutable
// state and are safe to run concurrently.
package snmp
