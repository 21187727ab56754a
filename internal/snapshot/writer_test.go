package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Go2NetScope/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords(base time.Time, n int, protocol string) []model.PacketRecord {
	out := make([]model.PacketRecord, 0, n)
	for i := 0; i < n; i++ {
		rec := model.NewPacketRecord(base.Add(time.Duration(i) * time.Second))
		rec.Protocol = protocol
		rec.SourceIP = "10.0.0.1"
		rec.DestinationIP = "10.0.0.2"
		rec.PacketLength = 100
		out = append(out, *rec)
	}
	return out
}

func TestGobWriter_WriteAndLoad(t *testing.T) {
	root := t.TempDir()
	w := NewGobWriter(root, "session-1", time.Second)

	clock := time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	base := time.Date(2025, 6, 21, 9, 0, 0, 0, time.UTC)
	require.NoError(t, w.Write(context.Background(), testRecords(base, 3, model.ProtocolTCP)))
	clock = clock.Add(time.Second)
	require.NoError(t, w.Write(context.Background(), testRecords(base.Add(time.Minute), 2, model.ProtocolUDP)))
	require.NoError(t, w.Write(context.Background(), nil))

	sessionDir := filepath.Join(root, "session-1")
	dirs, err := os.ReadDir(sessionDir)
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "2025-06-21_10-00-00.000", dirs[0].Name())

	data, err := os.ReadFile(filepath.Join(sessionDir, dirs[0].Name(), "summary.json"))
	require.NoError(t, err)
	var summary SummaryData
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, int64(300), summary.TotalBytes)
	assert.Equal(t, map[string]int{"TCP": 3}, summary.Protocols)
	assert.True(t, summary.LastPacket.Equal(base.Add(2*time.Second)))

	records, err := Load(sessionDir)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, model.ProtocolTCP, records[0].Protocol)
	assert.Equal(t, model.ProtocolUDP, records[4].Protocol)
	assert.Equal(t, model.NoPort, records[4].SourcePort)

	s, err := LoadSummary(sessionDir)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, "TCP: 3 (60.0%), UDP: 2 (40.0%)", s.Protocols.String())
	assert.Equal(t, 61*time.Second, s.Elapsed)
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
