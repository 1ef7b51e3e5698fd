package domain

import (
	"net/netip"
	"testing"
)

func TestLinkSymmetry(t *testing.T) {
	r1 := routerWithMACs(0x0a)
	r2 := routerWithMACs(0x0b)
	h1 := NewPCHost(0x01, netip.MustParseAddr("10.0.0.5"))

	pairs := []struct {
		name string
		a, b Node
	}{
		{"router to router", r1, r2},
		{"router to host", r1, h1},
		{"host to router", h1, r2},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			ab := NewLink(tt.a, tt.b)
			ba := NewLink(tt.b, tt.a)

			if !ab.Equal(ba) {
				t.Error("expected Link(A,B) == Link(B,A)")
			}
			if ab.Hash() != ba.Hash() {
				t.Error("expected symmetric hash")
			}
			if ab.ID() != ba.ID() {
				t.Error("expected symmetric ID")
			}
		})
	}
}

func TestLinkID(t *testing.T) {
	r1 := routerWithMACs(0x0a)
	r2 := routerWithMACs(0x0b)
	r3 := routerWithMACs(0x0c)

	t.Run("short hex", func(t *testing.T) {
		if got := len(NewLink(r1, r2).ID()); got != 16 {
			t.Errorf("expected 16 hex chars, got %d", got)
		}
	})

	t.Run("different endpoints differ", func(t *testing.T) {
		if NewLink(r1, r2).ID() == NewLink(r1, r3).ID() {
			t.Error("expected different IDs")
		}
	})
}

func TestLinkOther(t *testing.T) {
	r1 := routerWithMACs(0x0a)
	r2 := routerWithMACs(0x0b)
	r3 := routerWithMACs(0x0c)
	l := NewLink(r2, r1)

	if l.Other(r1) != Node(r2) {
		t.Error("expected r2 opposite r1")
	}
	if l.Other(r2) != Node(r1) {
		t.Error("expected r1 opposite r2")
	}
	if l.Other(r3) != nil {
		t.Error("expected nil for non-endpoint")
	}
}
