package adapter

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/go-logr/logr"

	"routescope/internal/domain"
)

// scanFunc runs a ping scan over targets
type scanFunc func(ctx context.Context, targets []string) (*nmap.Run, error)

// HostVerifier ping-scans discovered hosts with nmap and records whether
// each one answered
type HostVerifier struct {
	timeout time.Duration
	scan    scanFunc
	log     logr.Logger
}

// NewHostVerifier creates a verifier that shells out to nmap
func NewHostVerifier(opts ...NmapOption) *HostVerifier {
	v := &HostVerifier{
		timeout: 2 * time.Minute,
		log:     logr.Discard(),
	}
	v.scan = v.pingScan

	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Available checks if the nmap binary can be run
func (v *HostVerifier) Available(ctx context.Context) bool {
	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets("localhost"),
		nmap.WithListScan(),
	)
	if err != nil {
		return false
	}

	_, _, err = scanner.Run()
	return err == nil
}

// Verify probes every host of the topology that has an IP and sets its
// status to up or down. Hosts without an IP are left unverified.
func (v *HostVerifier) Verify(ctx context.Context, topo *domain.Topology) error {
	hosts := topo.Hosts()

	var targets []string
	for _, h := range hosts {
		if h.IP.IsValid() {
			targets = append(targets, h.IP.String())
		}
	}
	if len(targets) == 0 {
		v.log.V(1).Info("No hosts to verify")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	v.log.Info("Verifying hosts", "count", len(targets))
	result, err := v.scan(ctx, targets)
	if err != nil {
		return fmt.Errorf("host verification: %w", err)
	}

	upIPs, upMACs := liveHosts(result)
	alive := 0
	for _, h := range hosts {
		if !h.IP.IsValid() {
			continue
		}
		status := domain.HostStatusDown
		if _, ok := upIPs[h.IP]; ok {
			status = domain.HostStatusUp
		} else if _, ok := upMACs[h.MAC]; ok {
			status = domain.HostStatusUp
		}
		if status == domain.HostStatusUp {
			alive++
		}
		if err := topo.SetHostStatus(h.MAC, status); err != nil {
			return err
		}
	}

	v.log.Info("Host verification complete", "probed", len(targets), "up", alive)
	return nil
}

// pingScan runs nmap -sn over the targets
func (v *HostVerifier) pingScan(ctx context.Context, targets []string) (*nmap.Run, error) {
	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets(targets...),
		nmap.WithPingScan(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		v.log.V(1).Info("Nmap warnings", "warnings", *warnings)
	}
	return result, nil
}

// liveHosts collects the IPv4 and MAC addresses of hosts reported up
func liveHosts(result *nmap.Run) (map[netip.Addr]struct{}, map[domain.MAC]struct{}) {
	ips := make(map[netip.Addr]struct{})
	macs := make(map[domain.MAC]struct{})
	if result == nil {
		return ips, macs
	}

	for _, host := range result.Hosts {
		if host.Status.State != "up" {
			continue
		}
		for _, addr := range host.Addresses {
			switch addr.AddrType {
			case "ipv4":
				if ip, err := netip.ParseAddr(addr.Addr); err == nil {
					ips[ip] = struct{}{}
				}
			case "mac":
				if mac, ok := domain.ParseMAC(addr.Addr); ok {
					macs[mac] = struct{}{}
				}
			}
		}
	}
	return ips, macs
}
