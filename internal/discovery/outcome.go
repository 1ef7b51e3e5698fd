package discovery

import (
	"fmt"
	"net/netip"
	"time"
)

// Outcome is the terminal state of one router discovery
type Outcome string

const (
	OutcomeAdded     Outcome = "added"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// HopError reports one router address that could not be discovered
type HopError struct {
	Address netip.Addr
	// Parent is the router whose next hop this was; invalid for the seed
	Parent netip.Addr
	Err    error
}

func (e *HopError) Error() string {
	if e.Parent.IsValid() {
		return fmt.Sprintf("router %s (next hop of %s): %v", e.Address, e.Parent, e.Err)
	}
	return fmt.Sprintf("router %s: %v", e.Address, e.Err)
}

func (e *HopError) Unwrap() error {
	return e.Err
}

// Recorder observes discovery progress
type Recorder interface {
	RouterDiscovered(outcome Outcome)
	HostAdded()
	LinkAdded()
	DiscoveryCompleted(elapsed time.Duration, routers, hosts, links int)
}

type nopRecorder struct{}

func (nopRecorder) RouterDiscovered(Outcome)                        {}
func (nopRecorder) HostAdded()                                      {}
func (nopRecorder) LinkAdded()                                      {}
func (nopRecorder) DiscoveryCompleted(time.Duration, int, int, int) {}
