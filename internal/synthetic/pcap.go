package synthetic

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"Go2NetScope/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var (
	frameSrcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	frameDstMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA}
)

// WritePcap serializes records as Ethernet frames into a pcap stream.
// TCP and UDP records become IPv4 segments with their ports and flags; every
// other protocol is written as an ICMP echo request between the same hosts.
// Records whose addresses are not IPv4 literals are skipped. It returns the
// number of frames written.
func (g *Generator) WritePcap(w io.Writer, records []model.PacketRecord) (int, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return 0, fmt.Errorf("failed to write pcap header: %w", err)
	}

	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	written := 0
	for i := range records {
		rec := &records[i]
		srcIP := net.ParseIP(rec.SourceIP).To4()
		dstIP := net.ParseIP(rec.DestinationIP).To4()
		if srcIP == nil || dstIP == nil {
			continue
		}

		buf := gopacket.NewSerializeBuffer()
		if err := g.serializeRecord(buf, opts, rec, srcIP, dstIP); err != nil {
			return written, fmt.Errorf("failed to serialize layers: %w", err)
		}

		ci := gopacket.CaptureInfo{
			Timestamp:     rec.Timestamp,
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		if err := pw.WritePacket(ci, buf.Bytes()); err != nil {
			return written, fmt.Errorf("failed to write packet: %w", err)
		}
		written++
	}
	return written, nil
}

func (g *Generator) serializeRecord(buf gopacket.SerializeBuffer, opts gopacket.SerializeOptions, rec *model.PacketRecord, srcIP, dstIP net.IP) error {
	eth := &layers.Ethernet{
		SrcMAC:       frameSrcMAC,
		DstMAC:       frameDstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		SrcIP:   srcIP,
		DstIP:   dstIP,
		Version: 4,
		TTL:     64,
	}

	// Pad the payload so the frame comes out near the recorded length.
	payload := make([]byte, max(rec.PacketLength-54, 0))
	for i := range payload {
		payload[i] = byte(g.rng.IntN(256))
	}

	switch rec.Protocol {
	case model.ProtocolTCP:
		ip.Protocol = layers.IPProtocolTCP
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(portOrZero(rec.SourcePort)),
			DstPort: layers.TCPPort(portOrZero(rec.DestinationPort)),
			Seq:     g.rng.Uint32(),
			Window:  14600,
		}
		setFlags(tcp, rec.TCPFlags)
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return err
		}
		return gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload))
	case model.ProtocolUDP:
		ip.Protocol = layers.IPProtocolUDP
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(portOrZero(rec.SourcePort)),
			DstPort: layers.UDPPort(portOrZero(rec.DestinationPort)),
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return err
		}
		return gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload))
	default:
		ip.Protocol = layers.IPProtocolICMPv4
		icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)}
		return gopacket.SerializeLayers(buf, opts, eth, ip, icmp, gopacket.Payload(payload))
	}
}

// RandomRecords returns n TCP SYN records between random IPv4 hosts on
// random high ports, spread one millisecond apart from now.
func (g *Generator) RandomRecords(n int) []model.PacketRecord {
	start := g.now()
	out := make([]model.PacketRecord, 0, n)
	for i := 0; i < n; i++ {
		rec := model.NewPacketRecord(start.Add(time.Duration(i) * time.Millisecond))
		rec.SourceIP = g.randomIP().String()
		rec.DestinationIP = g.randomIP().String()
		rec.SourcePort = g.rng.IntN(65535-1024) + 1024
		rec.DestinationPort = g.rng.IntN(65535-1024) + 1024
		rec.Protocol = model.ProtocolTCP
		rec.TCPFlags = "SYN"
		rec.PacketLength = 54 + g.rng.IntN(1400) + 50
		out = append(out, *rec)
	}
	return out
}

func (g *Generator) randomIP() net.IP {
	return net.IP{byte(g.rng.IntN(256)), byte(g.rng.IntN(256)), byte(g.rng.IntN(256)), byte(g.rng.IntN(256))}
}

func setFlags(tcp *layers.TCP, flags string) {
	for _, f := range strings.Fields(flags) {
		switch f {
		case "SYN":
			tcp.SYN = true
		case "ACK":
			tcp.ACK = true
		case "FIN":
			tcp.FIN = true
		case "RST":
			tcp.RST = true
		case "PSH":
			tcp.PSH = true
		case "URG":
			tcp.URG = true
		}
	}
}

func portOrZero(p int) int {
	if p < 0 {
		return 0
	}
	return p
}
