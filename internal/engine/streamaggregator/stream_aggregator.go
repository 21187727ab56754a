package streamaggregator

import (
	"fmt"
	"sync/atomic"

	"Go2NetScope/internal/engine/manager"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"
	"Go2NetScope/internal/probe"
	"Go2NetScope/internal/session"
)

// Feed delivers records from a remote probe. *probe.Subscriber satisfies it.
type Feed interface {
	Start(handler probe.RecordHandler) error
	Close()
}

// StreamAggregator collects records published by remote probes into a local
// session and lets a manager flush them to the configured writers.
type StreamAggregator struct {
	feed     Feed
	session  *session.Session
	manager  *manager.Manager
	received atomic.Uint64
	log      logger.Logger
}

// NewStreamAggregator creates an aggregator that stores records from feed in
// s and flushes them to writers.
func NewStreamAggregator(feed Feed, s *session.Session, writers []model.Writer, log logger.Logger) *StreamAggregator {
	return &StreamAggregator{
		feed:    feed,
		session: s,
		manager: manager.NewManager(s, writers, 1, 1, log),
		log:     log,
	}
}

// Start starts the writers' snapshotters and subscribes to the feed.
func (sa *StreamAggregator) Start() error {
	sa.log.Info("StreamAggregator starting...")
	sa.session.Start()
	sa.manager.Start()

	if err := sa.feed.Start(sa.handleRecord); err != nil {
		sa.manager.Stop()
		return fmt.Errorf("stream aggregator failed to subscribe: %w", err)
	}
	return nil
}

// Stop closes the feed and runs the final flush.
func (sa *StreamAggregator) Stop() {
	sa.log.Info("StreamAggregator stopping...")
	sa.feed.Close()
	sa.manager.Stop()
	sa.log.Infof("StreamAggregator stopped after %d records.", sa.received.Load())
}

// Received returns how many records have arrived from the feed.
func (sa *StreamAggregator) Received() uint64 {
	return sa.received.Load()
}

// handleRecord stores a record that a probe already enriched. Records that
// arrive after Stop are ignored.
func (sa *StreamAggregator) handleRecord(rec model.PacketRecord) {
	if !sa.session.Capturing() {
		return
	}
	sa.received.Add(1)
	sa.session.Add(rec)
}
