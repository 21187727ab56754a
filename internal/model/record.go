package model

import (
	"fmt"
	"strings"
	"time"
)

// NoPort marks a port that does not apply to the packet's protocol (e.g. ARP).
const NoPort = -1

// Unknown is the fallback value for every derived or unresolvable string field.
const Unknown = "Unknown"

// Protocol names carried by a PacketRecord.
const (
	ProtocolTCP   = "TCP"
	ProtocolUDP   = "UDP"
	ProtocolARP   = "ARP"
	ProtocolOther = "Other"
)

// Direction values relative to the local machine.
const (
	DirectionIncoming = "Incoming"
	DirectionOutgoing = "Outgoing"
)

// Security levels, ordered Low < Medium < High < Critical.
const (
	SecurityLow      = "Low"
	SecurityMedium   = "Medium"
	SecurityHigh     = "High"
	SecurityCritical = "Critical"
)

// PacketRecord is one observed traffic event together with the fields derived
// from it by the classifier.
type PacketRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	SourceIP        string    `json:"source_ip"`
	DestinationIP   string    `json:"destination_ip"`
	SourcePort      int       `json:"source_port"`
	DestinationPort int       `json:"destination_port"`
	Protocol        string    `json:"protocol"`
	PacketLength    int       `json:"packet_length"`
	Direction       string    `json:"direction"`
	TCPFlags        string    `json:"tcp_flags"`

	ApplicationGuess string `json:"application_guess"`
	TrafficCategory  string `json:"traffic_category"`
	ConnectionStatus string `json:"connection_status"`
	GeographicRegion string `json:"geographic_region"`
	BytesPerSecond   int64  `json:"bytes_per_second"`
	SecurityLevel    string `json:"security_level"`
}

// NewPacketRecord returns a record stamped with ts and every other field at its
// default: sentinel ports, Unknown protocol/direction and Unknown analytics.
func NewPacketRecord(ts time.Time) *PacketRecord {
	return &PacketRecord{
		Timestamp:        ts,
		SourcePort:       NoPort,
		DestinationPort:  NoPort,
		Protocol:         Unknown,
		Direction:        Unknown,
		ApplicationGuess: Unknown,
		TrafficCategory:  Unknown,
		ConnectionStatus: Unknown,
		GeographicRegion: Unknown,
		SecurityLevel:    Unknown,
	}
}

// Validate checks the record invariants. It does not look at derived fields
// other than their membership in the allowed value sets.
func (r *PacketRecord) Validate() error {
	var problems []string

	if !validPort(r.SourcePort) {
		problems = append(problems, fmt.Sprintf("source port %d out of range", r.SourcePort))
	}
	if !validPort(r.DestinationPort) {
		problems = append(problems, fmt.Sprintf("destination port %d out of range", r.DestinationPort))
	}
	if r.PacketLength < 0 {
		problems = append(problems, fmt.Sprintf("negative packet length %d", r.PacketLength))
	}
	if r.BytesPerSecond < 0 {
		problems = append(problems, fmt.Sprintf("negative bytes per second %d", r.BytesPerSecond))
	}
	switch r.Protocol {
	case ProtocolTCP, ProtocolUDP, ProtocolARP, ProtocolOther, Unknown:
	default:
		problems = append(problems, fmt.Sprintf("unknown protocol %q", r.Protocol))
	}
	switch r.Direction {
	case DirectionIncoming, DirectionOutgoing, Unknown:
	default:
		problems = append(problems, fmt.Sprintf("unknown direction %q", r.Direction))
	}
	switch r.SecurityLevel {
	case SecurityLow, SecurityMedium, SecurityHigh, SecurityCritical, Unknown:
	default:
		problems = append(problems, fmt.Sprintf("unknown security level %q", r.SecurityLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid packet record: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validPort(p int) bool {
	return p == NoPort || (p >= 0 && p <= 65535)
}

// String renders the record as a multi-line block for console output.
func (r *PacketRecord) String() string {
	var sb strings.Builder
	sb.WriteString("=== Packet Record ===\n")
	fmt.Fprintf(&sb, "Timestamp: %s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Direction: %s\n", r.Direction)
	fmt.Fprintf(&sb, "Protocol: %s\n", r.Protocol)
	sb.WriteString("Source: " + endpoint(r.SourceIP, r.SourcePort) + "\n")
	sb.WriteString("Destination: " + endpoint(r.DestinationIP, r.DestinationPort) + "\n")
	fmt.Fprintf(&sb, "Length: %d bytes\n", r.PacketLength)
	if r.TCPFlags != "" {
		fmt.Fprintf(&sb, "TCP Flags: %s\n", r.TCPFlags)
	}
	fmt.Fprintf(&sb, "Application: %s\n", r.ApplicationGuess)
	return sb.String()
}

// Compact renders the record on a single line, suitable for log messages.
func (r *PacketRecord) Compact() string {
	return fmt.Sprintf("[%s] %s %s:%d -> %s:%d (%s, %d bytes, %s)",
		r.Timestamp.Format("2006-01-02 15:04:05"),
		orUnknown(r.Direction),
		orUnknown(r.SourceIP), r.SourcePort,
		orUnknown(r.DestinationIP), r.DestinationPort,
		orUnknown(r.Protocol), r.PacketLength,
		orUnknown(r.ApplicationGuess))
}

func endpoint(ip string, port int) string {
	if port > 0 {
		return fmt.Sprintf("%s:%d", ip, port)
	}
	return ip
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
