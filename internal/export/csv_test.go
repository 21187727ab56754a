package export

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 6, 21, 10, 4, 5, 123_000_000, time.UTC)

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	e := NewExporter(filepath.Join(t.TempDir(), "output"), logger.Discard())
	e.now = func() time.Time { return fixedTime }
	return e
}

func sampleRecords() []model.PacketRecord {
	tcp := model.NewPacketRecord(fixedTime)
	tcp.SourceIP, tcp.SourcePort = "192.168.1.100", 51000
	tcp.DestinationIP, tcp.DestinationPort = "93.184.216.34", 443
	tcp.Protocol = model.ProtocolTCP
	tcp.PacketLength = 120
	tcp.Direction = model.DirectionOutgoing
	tcp.TCPFlags = "SYN ACK"
	tcp.ApplicationGuess = "HTTPS"
	tcp.TrafficCategory = "Web Traffic"
	tcp.ConnectionStatus = "Establishing"
	tcp.GeographicRegion = "Local Network"
	tcp.BytesPerSecond = 600
	tcp.SecurityLevel = model.SecurityHigh

	arp := model.NewPacketRecord(fixedTime)
	arp.SourceIP, arp.DestinationIP = "10.0.0.1", "10.0.0.2"
	arp.Protocol = model.ProtocolARP
	arp.PacketLength = 42
	arp.Direction = model.DirectionIncoming

	udp := model.NewPacketRecord(fixedTime)
	udp.SourceIP, udp.SourcePort = "192.168.1.100", 53000
	udp.DestinationIP, udp.DestinationPort = "8.8.8.8", 53
	udp.Protocol = model.ProtocolUDP
	udp.PacketLength = 80
	udp.Direction = model.DirectionOutgoing

	return []model.PacketRecord{*tcp, *arp, *udp}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestExport_HeaderAndRows(t *testing.T) {
	e := newTestExporter(t)

	res, err := e.Export(sampleRecords(), "captured_packets", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, filepath.Join(e.Dir, "captured_packets.csv"), res.Path)

	lines := readLines(t, res.Path)
	require.Len(t, lines, 4)
	assert.Equal(t, "Timestamp,SourceIP,DestinationIP,SourcePort,DestinationPort,Protocol,PacketLength,Direction,TCPFlags,ApplicationGuess,TrafficCategory,ConnectionStatus,GeographicRegion,BytesPerSecond,SecurityLevel", lines[0])
	assert.Equal(t, `"2025-06-21 10:04:05.123","192.168.1.100","93.184.216.34",51000,443,"TCP",120,"Outgoing","SYN ACK","HTTPS","Web Traffic","Establishing","Local Network",600,"High"`, lines[1])
}

func TestExport_HeaderOptional(t *testing.T) {
	e := newTestExporter(t)
	opts := DefaultOptions()
	opts.IncludeHeader = false

	res, err := e.Export(sampleRecords(), "no_header.csv", opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.Dir, "no_header.csv"), res.Path)

	lines := readLines(t, res.Path)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], `"2025-06-21 10:04:05.123"`))
}

// The basic and PowerBI variants disagree on how a sentinel port is written.
// Both renderings are kept because downstream consumers depend on each.
func TestExport_SentinelPortVariants(t *testing.T) {
	e := newTestExporter(t)
	records := sampleRecords()

	basic, err := e.Export(records, "basic", DefaultOptions())
	require.NoError(t, err)
	powerBI, err := e.Export(records, "powerbi", PowerBIOptions())
	require.NoError(t, err)

	basicARP := readLines(t, basic.Path)[2]
	assert.Contains(t, basicARP, `"10.0.0.2",-1,-1,"ARP"`)

	powerLines := readLines(t, powerBI.Path)
	assert.True(t, strings.HasPrefix(powerLines[0], BOM+"Timestamp,"))
	assert.Contains(t, powerLines[2], `"10.0.0.2",,,"ARP"`)
}

func TestExport_BasicLayout(t *testing.T) {
	e := newTestExporter(t)
	opts := Options{IncludeHeader: true, Layout: LayoutBasic}

	res, err := e.Export(sampleRecords(), "legacy", opts)
	require.NoError(t, err)

	lines := readLines(t, res.Path)
	assert.Equal(t, BasicHeader, lines[0])
	assert.Equal(t, `"2025-06-21 10:04:05.123","192.168.1.100","93.184.216.34",51000,443,"TCP",120,"Outgoing","SYN ACK","HTTPS"`, lines[1])
}

func TestExport_EmptyCollection(t *testing.T) {
	e := newTestExporter(t)

	_, err := e.Export(nil, "empty", DefaultOptions())
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = e.Export([]model.PacketRecord{}, "empty", PowerBIOptions())
	assert.ErrorIs(t, err, ErrNoRecords)

	_, statErr := os.Stat(e.Dir)
	assert.True(t, os.IsNotExist(statErr), "no directory or file should be created")
}

func TestExport_DirectoryFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	e := NewExporter(blocker, logger.Discard())
	_, err := e.Export(sampleRecords(), "x", DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output directory")

	e = NewExporter(filepath.Join(blocker, "nested"), logger.Discard())
	_, err = e.Export(sampleRecords(), "x", DefaultOptions())
	require.Error(t, err)
}

func TestExport_OpenFailureKeepsExistingPath(t *testing.T) {
	e := newTestExporter(t)
	target := filepath.Join(e.Dir, "keep.csv")
	require.NoError(t, os.MkdirAll(target, 0755))

	_, err := e.Export(sampleRecords(), "keep", DefaultOptions())
	require.Error(t, err)

	info, statErr := os.Stat(target)
	require.NoError(t, statErr, "existing path must survive a failed open")
	assert.True(t, info.IsDir())
}

func TestExport_ReadOnlyFileIsNotRemoved(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	e := newTestExporter(t)
	require.NoError(t, os.MkdirAll(e.Dir, 0755))
	target := filepath.Join(e.Dir, "keep.csv")
	require.NoError(t, os.WriteFile(target, []byte("earlier export\n"), 0444))

	_, err := e.Export(sampleRecords(), "keep", DefaultOptions())
	require.Error(t, err)

	data, readErr := os.ReadFile(target)
	require.NoError(t, readErr)
	assert.Equal(t, "earlier export\n", string(data))
}

func TestExport_EscapingRoundTrip(t *testing.T) {
	e := newTestExporter(t)
	records := sampleRecords()[:1]
	records[0].ApplicationGuess = `a"b`
	records[0].TCPFlags = `say "hi", ok`

	res, err := e.Export(records, "escape", DefaultOptions())
	require.NoError(t, err)

	lines := readLines(t, res.Path)
	assert.Contains(t, lines[1], `"a""b"`)

	file, err := os.Open(res.Path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, `say "hi", ok`, rows[1][8])
	assert.Equal(t, `a"b`, rows[1][9])
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a""b`, Escape(`a"b`))
	assert.Equal(t, `plain`, Escape(`plain`))
	assert.Equal(t, ``, Escape(``))
}

func TestExportByProtocol(t *testing.T) {
	e := newTestExporter(t)

	res, err := e.ExportByProtocol(sampleRecords(), "tcp", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, "packet_capture_tcp_20250621_100405.csv", filepath.Base(res.Path))

	_, err = e.ExportByProtocol(sampleRecords(), "ICMP", DefaultOptions())
	assert.True(t, errors.Is(err, ErrNoMatch))

	_, err = e.ExportByProtocol(nil, "TCP", DefaultOptions())
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestExportByDirection(t *testing.T) {
	e := newTestExporter(t)

	res, err := e.ExportByDirection(sampleRecords(), "OUTGOING", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, "packet_capture_outgoing_20250621_100405.csv", filepath.Base(res.Path))

	_, err = e.ExportByDirection(sampleRecords(), model.Unknown, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoMatch)

	files, err := e.ListCSVFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"packet_capture_outgoing_20250621_100405.csv"}, files)
}

func TestExportTimestamped(t *testing.T) {
	e := newTestExporter(t)
	res, err := e.ExportTimestamped(sampleRecords(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "packet_capture_20250621_100405.csv", filepath.Base(res.Path))

	res, err = e.Export(sampleRecords(), "", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "packet_capture_20250621_100405.csv", filepath.Base(res.Path))
}

func TestGenerateFilename(t *testing.T) {
	assert.Equal(t, "packet_capture_20250621_100405", GenerateFilename("", fixedTime))
	assert.Equal(t, "packet_capture_udp_20250621_100405", GenerateFilename("UDP", fixedTime))
}

func TestListCSVFiles(t *testing.T) {
	e := newTestExporter(t)

	files, err := e.ListCSVFiles()
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, os.MkdirAll(filepath.Join(e.Dir, "sub.csv"), 0755))
	for _, name := range []string{"b.csv", "A.CSV", "notes.txt", "c.csv.bak"} {
		require.NoError(t, os.WriteFile(filepath.Join(e.Dir, name), nil, 0644))
	}

	files, err = e.ListCSVFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"A.CSV", "b.csv"}, files)
}

func TestParseLayout(t *testing.T) {
	l, ok := ParseLayout("")
	assert.True(t, ok)
	assert.Equal(t, LayoutAnalytics, l)

	l, ok = ParseLayout("Basic")
	assert.True(t, ok)
	assert.Equal(t, LayoutBasic, l)

	_, ok = ParseLayout("wide")
	assert.False(t, ok)
}
