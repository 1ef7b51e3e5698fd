package snmp

import (
	"context"
	"net/netip"
	"time"
)

// Version is the SNMP protocol version spoken to a device
type Version string

const (
	Version1  Version = "1"
	Version2c Version = "2c"
)

// Target describes where and how to reach one device
type Target struct {
	Address   netip.Addr
	Port      uint16
	Community string
	Version   Version
	Timeout   time.Duration
	Retries   int
}

// DefaultTarget returns the settings used when nothing else is configured
func DefaultTarget(addr netip.Addr) Target {
	return Target{
		Address:   addr,
		Port:      161,
		Community: "public",
		Version:   Version2c,
		Timeout:   2 * time.Second,
		Retries:   0,
	}
}

// WithAddress returns a copy of the target pointed at another device
func (t Target) WithAddress(addr netip.Addr) Target {
	t.Address = addr
	return t
}

// PDUKind selects the request operation
type PDUKind string

const (
	PDUGet     PDUKind = "get"
	PDUGetBulk PDUKind = "getbulk"
)

// PDU is a request to send over a Session
type PDU struct {
	Kind           PDUKind
	OIDs           []OID
	NonRepeaters   uint8
	MaxRepetitions uint32
}

// Binding is one (OID, value) pair of a response
type Binding struct {
	OID   OID
	Value Value
}

// Response is what a device answered to a PDU
type Response struct {
	Version     Version
	ErrorStatus int
	ErrorIndex  int
	Bindings    []Binding
}

// Session is a per-call connection to one device. Close releases it.
type Session interface {
	Request(ctx context.Context, pdu PDU) (*Response, error)
	Close() error
}

// Transport opens sessions to devices
type Transport interface {
	Open(ctx context.Context, target Target) (Session, error)
}
