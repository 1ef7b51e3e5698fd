package snmp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptyOID is returned when an OID string has no components
	ErrEmptyOID = errors.New("snmp: empty OID")
	// ErrMalformedOID is returned when an OID component is not a non-negative integer
	ErrMalformedOID = errors.New("snmp: malformed OID")
)

// OID is a parsed object identifier
type OID []uint32

// ParseOID parses a dotted OID string. A single leading dot is accepted.
func ParseOID(s string) (OID, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return nil, ErrEmptyOID
	}

	parts := strings.Split(s, ".")
	oid := make(OID, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedOID, s)
		}
		oid = append(oid, uint32(n))
	}
	return oid, nil
}

// MustParseOID is ParseOID for package-level constants
func MustParseOID(s string) OID {
	oid, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return oid
}

// String renders the OID in dotted form without a leading dot
func (o OID) String() string {
	return joinUint32(o)
}

// Append returns a new OID with the given components added
func (o OID) Append(ids ...uint32) OID {
	out := make(OID, 0, len(o)+len(ids))
	out = append(out, o...)
	return append(out, ids...)
}

// IsRootOf reports whether other lies strictly below o in the OID tree
func (o OID) IsRootOf(other OID) bool {
	if len(other) <= len(o) {
		return false
	}
	for i, id := range o {
		if other[i] != id {
			return false
		}
	}
	return true
}

// Equal reports whether both OIDs have identical components
func (o OID) Equal(other OID) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// Compare orders OIDs lexicographically, the order agents walk in
func (o OID) Compare(other OID) int {
	for i := 0; i < len(o) && i < len(other); i++ {
		switch {
		case o[i] < other[i]:
			return -1
		case o[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(o) < len(other):
		return -1
	case len(o) > len(other):
		return 1
	}
	return 0
}

// ChildOf returns the components of o below root. Callers must check
// root.IsRootOf(o) first.
func (o OID) ChildOf(root OID) []uint32 {
	return o[len(root):]
}

func joinUint32(ids []uint32) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return b.String()
}
