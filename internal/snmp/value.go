package snmp

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ValueType identifies the ASN.1 type carried by a binding
type ValueType string

const (
	TypeInteger          ValueType = "integer"
	TypeOctetString      ValueType = "octet_string"
	TypeIPAddress        ValueType = "ip_address"
	TypeObjectIdentifier ValueType = "object_identifier"
	TypeCounter32        ValueType = "counter32"
	TypeGauge32          ValueType = "gauge32"
	TypeTimeTicks        ValueType = "time_ticks"
	TypeCounter64        ValueType = "counter64"
	TypeNull             ValueType = "null"
	TypeNoSuchObject     ValueType = "no_such_object"
	TypeNoSuchInstance   ValueType = "no_such_instance"
	TypeEndOfMibView     ValueType = "end_of_mib_view"
	TypeUnknown          ValueType = "unknown"
)

// Value is a typed scalar returned by a device.
//
// Raw holds int64 for integer-like types, []byte for octet strings and
// string for IP addresses and object identifiers. Exception types carry nil.
type Value struct {
	Type ValueType
	Raw  any
}

// IsException reports whether the value is one of the SNMPv2 exception markers
func (v Value) IsException() bool {
	switch v.Type {
	case TypeNoSuchObject, TypeNoSuchInstance, TypeEndOfMibView:
		return true
	}
	return false
}

// Bytes returns the raw octets of an octet string
func (v Value) Bytes() ([]byte, bool) {
	b, ok := v.Raw.([]byte)
	return b, ok
}

// Int returns the value as an integer when it is integer-like or a decimal string
func (v Value) Int() (int64, bool) {
	switch raw := v.Raw.(type) {
	case int64:
		return raw, true
	case []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// String renders the value the way an operator would read it. Octet strings
// that are not printable text come out as space-separated hex pairs.
func (v Value) String() string {
	switch raw := v.Raw.(type) {
	case nil:
		return ""
	case []byte:
		if isPrintable(raw) {
			return string(raw)
		}
		return hexWithSpaces(raw)
	case string:
		return raw
	case int64:
		return strconv.FormatInt(raw, 10)
	default:
		return fmt.Sprint(raw)
	}
}

func isPrintable(b []byte) bool {
	if len(b) == 0 || !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func hexWithSpaces(b []byte) string {
	parts := make([]string, len(b))
	for i := range b {
		parts[i] = hex.EncodeToString(b[i : i+1])
	}
	return strings.ToUpper(strings.Join(parts, " "))
}
