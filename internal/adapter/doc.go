// Package adapter turns device facts into routers and drives periodic
// discovery runs.
//
// # Fact Retrieval
//
// RouterDataSource is the per-device fact contract: system name, interfaces,
// next hops and ARP cache. SNMPSource implements it over MIB-II tables
// (ifTable, ipAddrTable, ipCidrRouteTable, ipNetToMediaTable). Rows that do
// not parse are skipped; an empty table is an empty result, not an error.
//
// # Router Assembly
//
// RouterBuilder fetches the four facts of one device concurrently and
// assembles a domain.Router. ARP records are kept only when the ArpFilter
// policy accepts them. PCHostFilter is the default; LocalFilter drops the
// MAC heuristic for networks where it does not hold.
//
// # Host Verification
//
// HostVerifier ping-scans discovered hosts with nmap and marks them up or down.
//
// # Adapter Registry
//
// Registry runs polling adapters on an interval and hands every topology
// they produce to a PublishFunc. Service mode uses it to re-run discovery.
package adapter
