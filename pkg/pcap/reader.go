package pcap

import (
	"context"
	"fmt"
	"time"

	"Go2NetScope/internal/capture"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// PacketSink receives every raw frame the reader sees.
type PacketSink interface {
	Enqueue(packet gopacket.Packet)
}

// Reader reads packets from a live interface or a pcap file.
type Reader struct {
	handle *pcap.Handle
	source string
	tee    PacketSink
	log    logger.Logger
}

// LiveOptions configures a live capture handle.
type LiveOptions struct {
	SnapshotLen int32
	Promiscuous bool
	BPFFilter   string
	// Timeout bounds how long a read blocks, so cancellation is noticed.
	Timeout time.Duration
}

// NewReader creates a new pcap reader for the given file path.
func NewReader(filePath string, log logger.Logger) (*Reader, error) {
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file '%s': %w", filePath, err)
	}
	return &Reader{handle: handle, source: filePath, log: orDiscard(log)}, nil
}

// NewLiveReader opens the named interface for capture.
func NewLiveReader(device string, opts LiveOptions, log logger.Logger) (*Reader, error) {
	if opts.SnapshotLen <= 0 {
		opts.SnapshotLen = 65535
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 500 * time.Millisecond
	}

	handle, err := pcap.OpenLive(device, opts.SnapshotLen, opts.Promiscuous, opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open interface '%s': %w", device, err)
	}
	if opts.BPFFilter != "" {
		if err := handle.SetBPFFilter(opts.BPFFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set BPF filter '%s': %w", opts.BPFFilter, err)
		}
	}
	return &Reader{handle: handle, source: device, log: orDiscard(log)}, nil
}

// Close closes the pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// Source returns the file path or interface name the reader was opened on.
func (r *Reader) Source() string {
	return r.source
}

// LinkType returns the link layer type of the capture.
func (r *Reader) LinkType() layers.LinkType {
	return r.handle.LinkType()
}

// Tee hands every frame read, including unsupported ones, to sink as well.
// Call it before ReadPackets.
func (r *Reader) Tee(sink PacketSink) {
	r.tee = sink
}

// ReadPackets reads packets until the source is exhausted or ctx is done and
// sends the parsed observations to out. It closes out when done and returns
// the number of frames that could not be parsed.
func (r *Reader) ReadPackets(ctx context.Context, out chan<- *model.Observation) int {
	defer close(out)

	skipped := 0
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	packets := packetSource.Packets()
	for {
		select {
		case <-ctx.Done():
			return skipped
		case packet, ok := <-packets:
			if !ok {
				r.log.Infof("Finished reading packets from %s, %d unsupported frames skipped", r.source, skipped)
				return skipped
			}
			if r.tee != nil {
				r.tee.Enqueue(packet)
			}
			obs, err := capture.FromPacket(packet)
			if err != nil {
				// Unsupported frame types are expected on a busy link.
				skipped++
				continue
			}
			select {
			case out <- obs:
			case <-ctx.Done():
				return skipped
			}
		}
	}
}

// Interface describes a capture device.
type Interface struct {
	Name        string
	Description string
	Addresses   []string
}

// ListInterfaces enumerates the devices libpcap can capture on.
func ListInterfaces() ([]Interface, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("failed to list capture interfaces: %w", err)
	}

	out := make([]Interface, 0, len(devs))
	for _, d := range devs {
		iface := Interface{Name: d.Name, Description: d.Description}
		for _, a := range d.Addresses {
			iface.Addresses = append(iface.Addresses, a.IP.String())
		}
		out = append(out, iface)
	}
	return out, nil
}

func orDiscard(log logger.Logger) logger.Logger {
	if log == nil {
		return logger.Discard()
	}
	return log
}
