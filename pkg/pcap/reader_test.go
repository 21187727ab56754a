package pcap

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPcap writes one TCP frame and one frame with no network layer.
func writeTestPcap(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	mac := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	eth := &layers.Ethernet{SrcMAC: mac, DstMAC: mac, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IPv4(127, 0, 0, 1), DstIP: net.IPv4(127, 0, 0, 1)}
	tcp := &layers.TCP{SrcPort: 50000, DstPort: 8080, SYN: true}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	frames := make([][]byte, 0, 2)

	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp))
	frames = append(frames, append([]byte(nil), buf.Bytes()...))

	other := &layers.Ethernet{SrcMAC: mac, DstMAC: mac, EthernetType: layers.EthernetType(0x88b5)}
	buf = gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, opts, other, gopacket.Payload([]byte{1, 2, 3, 4})))
	frames = append(frames, append([]byte(nil), buf.Bytes()...))

	ts := time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC)
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Second),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		require.NoError(t, w.WritePacket(ci, frame))
	}
	return path
}

func TestReader_ReadPackets(t *testing.T) {
	reader, err := NewReader(writeTestPcap(t), logger.Discard())
	require.NoError(t, err)
	defer reader.Close()

	out := make(chan *model.Observation)
	skipped := make(chan int, 1)
	go func() { skipped <- reader.ReadPackets(context.Background(), out) }()

	var got []*model.Observation
	for obs := range out {
		got = append(got, obs)
	}

	require.Len(t, got, 1)
	assert.Equal(t, 1, <-skipped)
	assert.Equal(t, model.KindTCP, got[0].Kind)
	assert.Equal(t, uint16(8080), got[0].TCP.DstPort)
	assert.Equal(t, time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC), got[0].Timestamp.UTC())
}

func TestReader_ContextCancel(t *testing.T) {
	reader, err := NewReader(writeTestPcap(t), logger.Discard())
	require.NoError(t, err)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan *model.Observation)
	reader.ReadPackets(ctx, out)
	_, open := <-out
	assert.False(t, open, "channel should be closed after cancel")
}

func TestNewReader_MissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.pcap"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open pcap file")
}

type countingSink struct{ n int }

func (c *countingSink) Enqueue(gopacket.Packet) { c.n++ }

func TestReader_Tee(t *testing.T) {
	reader, err := NewReader(writeTestPcap(t), logger.Discard())
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, layers.LinkTypeEthernet, reader.LinkType())

	sink := &countingSink{}
	reader.Tee(sink)

	out := make(chan *model.Observation, 4)
	reader.ReadPackets(context.Background(), out)

	// Unsupported frames are persisted too.
	assert.Equal(t, 2, sink.n)
	assert.Len(t, out, 1)
}
