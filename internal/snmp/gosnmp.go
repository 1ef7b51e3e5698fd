package snmp

import (
	"context"
	"fmt"

	"github.com/gosnmp/gosnmp"
)

// GoSNMPTransport sends PDUs over UDP using gosnmp
type GoSNMPTransport struct{}

// NewGoSNMPTransport creates the UDP transport
func NewGoSNMPTransport() *GoSNMPTransport {
	return &GoSNMPTransport{}
}

// Open connects a new gosnmp client for the target
func (t *GoSNMPTransport) Open(ctx context.Context, target Target) (Session, error) {
	if !target.Address.IsValid() {
		return nil, fmt.Errorf("snmp: invalid target address")
	}

	version, err := toGoSNMPVersion(target.Version)
	if err != nil {
		return nil, err
	}

	g := &gosnmp.GoSNMP{
		Target:    target.Address.String(),
		Port:      target.Port,
		Transport: "udp",
		Community: target.Community,
		Version:   version,
		Timeout:   target.Timeout,
		Retries:   target.Retries,
		Context:   ctx,
		MaxOids:   gosnmp.MaxOids,
	}
	if err := g.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", target.Address, err)
	}
	return &goSNMPSession{g: g}, nil
}

type goSNMPSession struct {
	g *gosnmp.GoSNMP
}

func (s *goSNMPSession) Request(ctx context.Context, pdu PDU) (*Response, error) {
	s.g.Context = ctx

	oids := make([]string, len(pdu.OIDs))
	for i, oid := range pdu.OIDs {
		oids[i] = "." + oid.String()
	}

	var (
		packet *gosnmp.SnmpPacket
		err    error
	)
	switch pdu.Kind {
	case PDUGet:
		packet, err = s.g.Get(oids)
	case PDUGetBulk:
		packet, err = s.g.GetBulk(oids, pdu.NonRepeaters, pdu.MaxRepetitions)
	default:
		return nil, fmt.Errorf("snmp: unsupported PDU kind %q", pdu.Kind)
	}
	if err != nil {
		return nil, err
	}

	return fromPacket(packet)
}

func (s *goSNMPSession) Close() error {
	if s.g.Conn == nil {
		return nil
	}
	return s.g.Conn.Close()
}

func fromPacket(packet *gosnmp.SnmpPacket) (*Response, error) {
	resp := &Response{
		Version:     fromGoSNMPVersion(packet.Version),
		ErrorStatus: int(packet.Error),
		ErrorIndex:  int(packet.ErrorIndex),
		Bindings:    make([]Binding, 0, len(packet.Variables)),
	}
	for _, v := range packet.Variables {
		oid, err := ParseOID(v.Name)
		if err != nil {
			return nil, fmt.Errorf("response binding: %w", err)
		}
		resp.Bindings = append(resp.Bindings, Binding{OID: oid, Value: fromPDU(v)})
	}
	return resp, nil
}

func fromPDU(v gosnmp.SnmpPDU) Value {
	switch v.Type {
	case gosnmp.Integer:
		return Value{Type: TypeInteger, Raw: gosnmp.ToBigInt(v.Value).Int64()}
	case gosnmp.Counter32:
		return Value{Type: TypeCounter32, Raw: gosnmp.ToBigInt(v.Value).Int64()}
	case gosnmp.Gauge32:
		return Value{Type: TypeGauge32, Raw: gosnmp.ToBigInt(v.Value).Int64()}
	case gosnmp.TimeTicks:
		return Value{Type: TypeTimeTicks, Raw: gosnmp.ToBigInt(v.Value).Int64()}
	case gosnmp.Counter64:
		return Value{Type: TypeCounter64, Raw: gosnmp.ToBigInt(v.Value).Int64()}
	case gosnmp.OctetString:
		b, _ := v.Value.([]byte)
		return Value{Type: TypeOctetString, Raw: b}
	case gosnmp.IPAddress:
		s, _ := v.Value.(string)
		return Value{Type: TypeIPAddress, Raw: s}
	case gosnmp.ObjectIdentifier:
		s, _ := v.Value.(string)
		return Value{Type: TypeObjectIdentifier, Raw: s}
	case gosnmp.Null:
		return Value{Type: TypeNull}
	case gosnmp.NoSuchObject:
		return Value{Type: TypeNoSuchObject}
	case gosnmp.NoSuchInstance:
		return Value{Type: TypeNoSuchInstance}
	case gosnmp.EndOfMibView:
		return Value{Type: TypeEndOfMibView}
	default:
		return Value{Type: TypeUnknown, Raw: v.Value}
	}
}

func toGoSNMPVersion(v Version) (gosnmp.SnmpVersion, error) {
	switch v {
	case Version1:
		return gosnmp.Version1, nil
	case Version2c, "":
		return gosnmp.Version2c, nil
	}
	return 0, fmt.Errorf("snmp: unsupported version %q", v)
}

func fromGoSNMPVersion(v gosnmp.SnmpVersion) Version {
	switch v {
	case gosnmp.Version1:
		return Version1
	case gosnmp.Version2c:
		return Version2c
	}
	return Version(v.String())
}
