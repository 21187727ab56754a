package streamaggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Go2NetScope/internal/direction"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"
	"Go2NetScope/internal/probe"
	"Go2NetScope/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanFeed struct {
	handler probe.RecordHandler
	err     error
	closed  bool
}

func (f *chanFeed) Start(h probe.RecordHandler) error {
	if f.err != nil {
		return f.err
	}
	f.handler = h
	return nil
}

func (f *chanFeed) Close() { f.closed = true }

type batchWriter struct {
	mu      sync.Mutex
	batches [][]model.PacketRecord
}

func (w *batchWriter) Write(_ context.Context, records []model.PacketRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, records)
	return nil
}

func (w *batchWriter) Name() string               { return "batch" }
func (w *batchWriter) GetInterval() time.Duration { return 0 }

func record(proto string) model.PacketRecord {
	rec := model.NewPacketRecord(time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC))
	rec.Protocol = proto
	rec.Direction = model.DirectionOutgoing
	return *rec
}

func TestStreamAggregator(t *testing.T) {
	feed := &chanFeed{}
	writer := &batchWriter{}
	s := session.New(nil, direction.NewLocalAddresses("10.0.0.1"))
	sa := NewStreamAggregator(feed, s, []model.Writer{writer}, logger.Discard())

	require.NoError(t, sa.Start())
	feed.handler(record(model.ProtocolTCP))
	feed.handler(record(model.ProtocolUDP))
	sa.Stop()

	assert.True(t, feed.closed)
	assert.Equal(t, uint64(2), sa.Received())
	require.Len(t, writer.batches, 1)
	assert.Len(t, writer.batches[0], 2)

	// Late deliveries are ignored once stopped.
	feed.handler(record(model.ProtocolTCP))
	assert.Equal(t, 2, s.Len())
}

func TestStreamAggregator_SubscribeError(t *testing.T) {
	feed := &chanFeed{err: errors.New("no route")}
	s := session.New(nil, direction.NewLocalAddresses())
	sa := NewStreamAggregator(feed, s, nil, logger.Discard())

	err := sa.Start()
	require.Error(t, err)
	assert.False(t, s.Capturing())
}
