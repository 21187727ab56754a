package model

import (
	"net"
	"strings"
	"time"
)

// Kind tags the payload carried by an Observation.
type Kind uint8

const (
	KindOther Kind = iota
	KindTCP
	KindUDP
	KindARP
)

func (k Kind) String() string {
	switch k {
	case KindTCP:
		return ProtocolTCP
	case KindUDP:
		return ProtocolUDP
	case KindARP:
		return ProtocolARP
	default:
		return ProtocolOther
	}
}

// TCPFlags holds the control bits of a TCP segment.
type TCPFlags struct {
	SYN, ACK, FIN, RST, PSH, URG bool
}

// String joins the set flags with spaces in SYN ACK FIN RST PSH URG order.
func (f TCPFlags) String() string {
	names := make([]string, 0, 6)
	if f.SYN {
		names = append(names, "SYN")
	}
	if f.ACK {
		names = append(names, "ACK")
	}
	if f.FIN {
		names = append(names, "FIN")
	}
	if f.RST {
		names = append(names, "RST")
	}
	if f.PSH {
		names = append(names, "PSH")
	}
	if f.URG {
		names = append(names, "URG")
	}
	return strings.Join(names, " ")
}

// TCPSegment is the transport payload of a TCP observation.
type TCPSegment struct {
	SrcPort uint16
	DstPort uint16
	Flags   TCPFlags
}

// UDPDatagram is the transport payload of a UDP observation.
type UDPDatagram struct {
	SrcPort uint16
	DstPort uint16
}

// ARPFrame is the payload of an ARP observation. ARP has no ports.
type ARPFrame struct {
	Operation uint16
}

// Observation is a raw capture event as produced by a capture collaborator.
// Exactly one of TCP, UDP or ARP is set, matching Kind.
type Observation struct {
	Timestamp time.Time
	Kind      Kind
	SrcIP     net.IP
	DstIP     net.IP
	Length    int

	TCP *TCPSegment
	UDP *UDPDatagram
	ARP *ARPFrame
}

// Record converts the observation into an unenriched PacketRecord.
// Ports that do not apply to the observation's kind are set to NoPort and
// unknown addresses to "Unknown".
func (o *Observation) Record() *PacketRecord {
	rec := NewPacketRecord(o.Timestamp)
	rec.Protocol = o.Kind.String()
	rec.SourceIP = ipString(o.SrcIP)
	rec.DestinationIP = ipString(o.DstIP)
	if o.Length > 0 {
		rec.PacketLength = o.Length
	}

	switch o.Kind {
	case KindTCP:
		if o.TCP != nil {
			rec.SourcePort = int(o.TCP.SrcPort)
			rec.DestinationPort = int(o.TCP.DstPort)
			rec.TCPFlags = o.TCP.Flags.String()
		}
	case KindUDP:
		if o.UDP != nil {
			rec.SourcePort = int(o.UDP.SrcPort)
			rec.DestinationPort = int(o.UDP.DstPort)
		}
	}
	return rec
}

func ipString(ip net.IP) string {
	if len(ip) == 0 {
		return Unknown
	}
	return ip.String()
}
