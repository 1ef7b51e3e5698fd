package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MAC is a 48-bit hardware address held in the low bits of a uint64
type MAC uint64

const macMask = 1<<48 - 1

// ParseMAC parses a MAC written as hex digits with optional separators.
// Colons, dashes, dots and whitespace are ignored, so "00 1A 2B 3C 4D 5E",
// "00:1a:2b:3c:4d:5e" and "001A2B3C4D5E" all parse to the same value.
func ParseMAC(s string) (MAC, bool) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
	if compact == "" || len(compact) > 12 {
		return 0, false
	}
	n, err := strconv.ParseUint(compact, 16, 64)
	if err != nil {
		return 0, false
	}
	return MAC(n & macMask), true
}

// MACFromBytes builds a MAC from 6 raw octets
func MACFromBytes(b []byte) (MAC, bool) {
	if len(b) != 6 {
		return 0, false
	}
	var n uint64
	for _, octet := range b {
		n = n<<8 | uint64(octet)
	}
	return MAC(n), true
}

// TopByte returns the most significant octet
func (m MAC) TopByte() byte {
	return byte(uint64(m) >> 40)
}

// String renders the MAC in lowercase colon form
func (m MAC) String() string {
	v := uint64(m)
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// MarshalText implements encoding.TextMarshaler
func (m MAC) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *MAC) UnmarshalText(text []byte) error {
	parsed, ok := ParseMAC(string(text))
	if !ok {
		return fmt.Errorf("invalid MAC address %q", text)
	}
	*m = parsed
	return nil
}
