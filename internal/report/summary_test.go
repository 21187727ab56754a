package report

import (
	"bytes"
	"testing"
	"time"

	"Go2NetScope/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(protocol, src, dst, app, direction string, length int) model.PacketRecord {
	r := model.NewPacketRecord(time.Now())
	r.Protocol = protocol
	r.SourceIP = src
	r.DestinationIP = dst
	r.ApplicationGuess = app
	r.Direction = direction
	r.PacketLength = length
	return *r
}

func TestSummarize_ProtocolDistribution(t *testing.T) {
	records := []model.PacketRecord{
		rec("TCP", "10.0.0.1", "8.8.8.8", "HTTPS", "Outgoing", 100),
		rec("UDP", "10.0.0.1", "8.8.8.8", "DNS", "Outgoing", 60),
		rec("TCP", "10.0.0.2", "1.1.1.1", "HTTPS", "Outgoing", 200),
		rec("TCP", "1.1.1.1", "10.0.0.1", "HTTP", "Incoming", 40),
	}

	s := Summarize(records, 2*time.Second)

	assert.Equal(t, "TCP: 3 (75.0%), UDP: 1 (25.0%)", s.Protocols.String())
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.UniqueSourceIPs)
	assert.Equal(t, 3, s.UniqueDestinationIPs)
	assert.Equal(t, int64(400), s.TotalBytes)
	assert.InDelta(t, 100.0, s.AveragePacketLength, 1e-9)
	assert.InDelta(t, 2.0, s.PacketsPerSecond, 1e-9)
	assert.Equal(t, "Outgoing", s.Directions[0].Name)
	assert.Equal(t, Entry{Name: "HTTPS", Count: 2, Percent: 50}, s.Applications[0])
}

func TestSummarize_TieBreakIsFirstSeen(t *testing.T) {
	records := []model.PacketRecord{
		rec("UDP", "a", "x", "DNS", "Unknown", 1),
		rec("ARP", "b", "x", "Unknown", "Unknown", 1),
		rec("TCP", "c", "x", "HTTP", "Unknown", 1),
		rec("TCP", "d", "x", "HTTP", "Unknown", 1),
		rec("ARP", "e", "x", "Unknown", "Unknown", 1),
	}

	s := Summarize(records, 0)
	names := make([]string, len(s.Protocols))
	for i, e := range s.Protocols {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"ARP", "TCP", "UDP"}, names)
	assert.Zero(t, s.PacketsPerSecond)
}

func TestSummarize_TopIPs(t *testing.T) {
	var records []model.PacketRecord
	for i, src := range []string{"a", "b", "c", "d", "e", "f", "g", "a", "b", "a"} {
		records = append(records, rec("TCP", src, "x", "HTTP", "Unknown", i))
	}

	s := Summarize(records, time.Second)
	require.Len(t, s.TopSourceIPs, DefaultTopN)
	assert.Equal(t, "a", s.TopSourceIPs[0].Name)
	assert.Equal(t, 3, s.TopSourceIPs[0].Count)
	assert.Equal(t, "b", s.TopSourceIPs[1].Name)
	assert.Equal(t, "e", s.TopSourceIPs[4].Name)
	require.Len(t, s.TopDestinationIPs, 1)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, time.Minute)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.AveragePacketLength)
	assert.Zero(t, s.PacketsPerSecond)
	assert.Empty(t, s.Protocols)
}

func TestDistribution_Top(t *testing.T) {
	c := NewCounter()
	for _, n := range []string{"x", "y", "y", "z", "z", "z"} {
		c.Add(n)
	}
	d := c.Distribution()
	assert.Equal(t, "z: 3 (50.0%), y: 2 (33.3%)", d.Top(2).String())
	assert.Len(t, d.Top(10), 3)
	assert.Empty(t, d.Top(-1))
}

func TestPacketsPerSecond(t *testing.T) {
	assert.InDelta(t, 0.5, PacketsPerSecond(60, 2*time.Minute), 1e-9)
	assert.Zero(t, PacketsPerSecond(10, 0))
	assert.Zero(t, PacketsPerSecond(10, -time.Second))
}

func TestRender(t *testing.T) {
	records := []model.PacketRecord{
		rec("TCP", "10.0.0.1", "8.8.8.8", "HTTPS", "Outgoing", 100),
		rec("UDP", "10.0.0.1", "8.8.8.8", "DNS", "Outgoing", 60),
	}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Summarize(records, time.Second)))

	out := buf.String()
	assert.Contains(t, out, "Total Packets Captured: 2")
	assert.Contains(t, out, "Protocol Distribution:\n  TCP: 1 (50.0%)\n  UDP: 1 (50.0%)")
	assert.Contains(t, out, "Top Source IPs:\n  10.0.0.1: 2")
	assert.Contains(t, out, "Packets per Second: 2.00")

	buf.Reset()
	require.NoError(t, Render(&buf, Summarize(nil, 0)))
	assert.Contains(t, buf.String(), "No packets were captured")
}

func TestSpan(t *testing.T) {
	base := time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC)
	records := make([]model.PacketRecord, 3)
	for i, offset := range []time.Duration{30 * time.Second, 0, 90 * time.Second} {
		records[i] = *model.NewPacketRecord(base.Add(offset))
	}
	assert.Equal(t, 90*time.Second, Span(records))
	assert.Zero(t, Span(records[:1]))
	assert.Zero(t, Span(nil))
}
