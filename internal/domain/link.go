package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Link is an undirected connection between two nodes. Endpoints are stored in
// key order so Link(A,B) and Link(B,A) are the same value.
type Link struct {
	A Node
	B Node
}

// NewLink creates a link with normalized endpoint order
func NewLink(a, b Node) *Link {
	if a.Key() > b.Key() {
		a, b = b, a
	}
	return &Link{A: a, B: b}
}

// Key is the identity key used for deduplication
func (l *Link) Key() string {
	return l.A.Key() + "|" + l.B.Key()
}

// ID creates a short deterministic ID from the endpoints
func (l *Link) ID() string {
	hash := sha256.Sum256([]byte(l.Key()))
	return fmt.Sprintf("%x", hash[:8])
}

// Equal reports whether both links join the same pair of nodes
func (l *Link) Equal(other *Link) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.Key() == other.Key()
}

// Hash combines the endpoint hashes in ascending order
func (l *Link) Hash() uint64 {
	h1, h2 := l.A.Hash(), l.B.Hash()
	if h1 > h2 {
		h1, h2 = h2, h1
	}
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], h1)
	binary.BigEndian.PutUint64(buf[8:], h2)
	return xxhash.Sum64(buf[:])
}

// Other returns the endpoint opposite n, or nil if n is not an endpoint
func (l *Link) Other(n Node) Node {
	switch n.Key() {
	case l.A.Key():
		return l.B
	case l.B.Key():
		return l.A
	}
	return nil
}

func (l *Link) String() string {
	return fmt.Sprintf("%s connected to %s", l.A.Label(), l.B.Label())
}
