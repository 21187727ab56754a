// Package persistent saves the raw frames of a capture to a pcap file.
package persistent

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"Go2NetScope/internal/logger"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const (
	defaultBufferSize = 10000
	snapLen           = 65536
)

// Worker writes raw packets to a pcap file on a single goroutine, so frames
// keep their capture order.
type Worker struct {
	Path string

	packetChan chan gopacket.Packet
	file       *os.File
	writer     *pcapgo.Writer
	done       chan struct{}

	mu     sync.RWMutex
	closed bool

	written atomic.Uint64
	dropped atomic.Uint64
	log     logger.Logger
}

// NewWorker creates <dir>/<timestamp>.pcap for frames of linkType and starts
// the writer goroutine.
func NewWorker(dir string, linkType layers.LinkType, bufferSize int, log logger.Logger) (*Worker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create persistence directory: %w", err)
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	path := filepath.Join(dir, time.Now().Format("2006-01-02_15-04-05")+".pcap")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap file: %w", err)
	}

	writer := pcapgo.NewWriter(file)
	if err := writer.WriteFileHeader(snapLen, linkType); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write pcap file header: %w", err)
	}

	w := &Worker{
		Path:       path,
		packetChan: make(chan gopacket.Packet, bufferSize),
		file:       file,
		writer:     writer,
		done:       make(chan struct{}),
		log:        log,
	}
	go w.run()
	log.Infof("Persistent worker writing raw frames to %s", path)
	return w, nil
}

func (w *Worker) run() {
	defer close(w.done)
	for packet := range w.packetChan {
		if err := w.writer.WritePacket(packet.Metadata().CaptureInfo, packet.Data()); err != nil {
			w.log.Errorf("PersistentWorker: Error writing packet: %v", err)
			continue
		}
		w.written.Add(1)
	}
}

// Enqueue queues a packet for writing. It never blocks: packets are dropped
// when the queue is full or the worker is stopped.
func (w *Worker) Enqueue(packet gopacket.Packet) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		return
	}
	select {
	case w.packetChan <- packet:
	default:
		w.dropped.Add(1)
	}
}

// Stop drains the queue and closes the file. It is safe to call more than once.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.packetChan)
	w.mu.Unlock()

	<-w.done
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close pcap file: %w", err)
	}
	w.log.Infof("Persistent worker stopped: %d frames written, %d dropped", w.written.Load(), w.dropped.Load())
	return nil
}

// Written returns how many frames reached the file.
func (w *Worker) Written() uint64 { return w.written.Load() }

// Dropped returns how many frames were discarded.
func (w *Worker) Dropped() uint64 { return w.dropped.Load() }
