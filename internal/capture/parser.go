// Package capture decodes captured frames into observations.
package capture

import (
	"errors"
	"net"
	"time"

	"Go2NetScope/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrNoNetworkLayer is returned for frames that carry neither IP nor ARP.
var ErrNoNetworkLayer = errors.New("no IP or ARP layer")

// ParsePacket decodes an Ethernet frame and extracts an observation.
func ParsePacket(data []byte) (*model.Observation, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	return FromPacket(packet)
}

// FromPacket extracts an observation from an already decoded packet. The
// timestamp comes from the capture metadata when present.
func FromPacket(packet gopacket.Packet) (*model.Observation, error) {
	obs := &model.Observation{
		Timestamp: time.Now(),
		Kind:      model.KindOther,
		Length:    len(packet.Data()),
	}

	if meta := packet.Metadata(); meta != nil {
		if !meta.Timestamp.IsZero() {
			obs.Timestamp = meta.Timestamp
		}
		if meta.Length > 0 {
			obs.Length = meta.Length
		}
	}

	if l := packet.Layer(layers.LayerTypeARP); l != nil {
		arp := l.(*layers.ARP)
		obs.Kind = model.KindARP
		obs.SrcIP = net.IP(arp.SourceProtAddress)
		obs.DstIP = net.IP(arp.DstProtAddress)
		obs.ARP = &model.ARPFrame{Operation: arp.Operation}
		return obs, nil
	}

	switch l := packet.NetworkLayer().(type) {
	case *layers.IPv4:
		obs.SrcIP, obs.DstIP = l.SrcIP, l.DstIP
	case *layers.IPv6:
		obs.SrcIP, obs.DstIP = l.SrcIP, l.DstIP
	default:
		return nil, ErrNoNetworkLayer
	}

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		obs.Kind = model.KindTCP
		obs.TCP = &model.TCPSegment{
			SrcPort: uint16(tcp.SrcPort),
			DstPort: uint16(tcp.DstPort),
			Flags: model.TCPFlags{
				SYN: tcp.SYN,
				ACK: tcp.ACK,
				FIN: tcp.FIN,
				RST: tcp.RST,
				PSH: tcp.PSH,
				URG: tcp.URG,
			},
		}
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		obs.Kind = model.KindUDP
		obs.UDP = &model.UDPDatagram{
			SrcPort: uint16(udp.SrcPort),
			DstPort: uint16(udp.DstPort),
		}
	}

	return obs, nil
}
