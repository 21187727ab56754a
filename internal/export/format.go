package export

import (
	"strconv"
	"strings"

	"Go2NetScope/internal/model"
)

// Layout selects the column set of an export.
type Layout int

const (
	// LayoutAnalytics is the 15-column layout carrying every derived field.
	LayoutAnalytics Layout = iota
	// LayoutBasic is the legacy 10-column layout without analytics columns.
	LayoutBasic
)

// ParseLayout maps a config value to a Layout. Empty selects LayoutAnalytics.
func ParseLayout(s string) (Layout, bool) {
	switch strings.ToLower(s) {
	case "", "analytics":
		return LayoutAnalytics, true
	case "basic":
		return LayoutBasic, true
	default:
		return LayoutAnalytics, false
	}
}

func (l Layout) String() string {
	if l == LayoutBasic {
		return "basic"
	}
	return "analytics"
}

// Header returns the header row for the layout, without a trailing newline.
func (l Layout) Header() string {
	if l == LayoutBasic {
		return BasicHeader
	}
	return Header
}

// Header is the header row of the analytics layout.
const Header = "Timestamp,SourceIP,DestinationIP,SourcePort,DestinationPort,Protocol,PacketLength,Direction,TCPFlags,ApplicationGuess,TrafficCategory,ConnectionStatus,GeographicRegion,BytesPerSecond,SecurityLevel"

// BasicHeader is the header row of the basic layout.
const BasicHeader = "Timestamp,SourceIP,DestinationIP,SourcePort,DestinationPort,Protocol,PacketLength,Direction,TCPFlags,ApplicationGuess"

// TimestampLayout is the Go layout for yyyy-MM-dd HH:mm:ss.SSS.
const TimestampLayout = "2006-01-02 15:04:05.000"

// BOM is the UTF-8 byte order mark written ahead of PowerBI exports.
const BOM = "\ufeff"

// Escape doubles embedded double quotes. The caller adds the enclosing quotes.
func Escape(field string) string {
	return strings.ReplaceAll(field, `"`, `""`)
}

// FormatRecord renders one CSV line (without newline) for rec.
//
// String fields are always quoted and integers never are. With blankSentinel
// set, a NoPort port renders as an empty field; otherwise it renders as -1.
func FormatRecord(rec *model.PacketRecord, layout Layout, blankSentinel bool) string {
	var sb strings.Builder
	sb.Grow(192)

	quoted(&sb, rec.Timestamp.Format(TimestampLayout))
	sb.WriteByte(',')
	quoted(&sb, rec.SourceIP)
	sb.WriteByte(',')
	quoted(&sb, rec.DestinationIP)
	sb.WriteByte(',')
	port(&sb, rec.SourcePort, blankSentinel)
	sb.WriteByte(',')
	port(&sb, rec.DestinationPort, blankSentinel)
	sb.WriteByte(',')
	quoted(&sb, rec.Protocol)
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(rec.PacketLength))
	sb.WriteByte(',')
	quoted(&sb, rec.Direction)
	sb.WriteByte(',')
	quoted(&sb, rec.TCPFlags)
	sb.WriteByte(',')
	quoted(&sb, rec.ApplicationGuess)

	if layout == LayoutBasic {
		return sb.String()
	}

	sb.WriteByte(',')
	quoted(&sb, rec.TrafficCategory)
	sb.WriteByte(',')
	quoted(&sb, rec.ConnectionStatus)
	sb.WriteByte(',')
	quoted(&sb, rec.GeographicRegion)
	sb.WriteByte(',')
	sb.WriteString(strconv.FormatInt(rec.BytesPerSecond, 10))
	sb.WriteByte(',')
	quoted(&sb, rec.SecurityLevel)

	return sb.String()
}

func quoted(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	sb.WriteString(Escape(s))
	sb.WriteByte('"')
}

func port(sb *strings.Builder, p int, blankSentinel bool) {
	if p == model.NoPort && blankSentinel {
		return
	}
	sb.WriteString(strconv.Itoa(p))
}
