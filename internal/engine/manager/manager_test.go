package manager

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"Go2NetScope/internal/classifier"
	"Go2NetScope/internal/direction"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"
	"Go2NetScope/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu       sync.Mutex
	batches  [][]model.PacketRecord
	interval time.Duration
	failures int
}

func (w *recordingWriter) Write(_ context.Context, records []model.PacketRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failures > 0 {
		w.failures--
		return errors.New("sink unavailable")
	}
	w.batches = append(w.batches, records)
	return nil
}

func (w *recordingWriter) Name() string               { return "recording" }
func (w *recordingWriter) GetInterval() time.Duration { return w.interval }

func (w *recordingWriter) total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func newSession() *session.Session {
	s := session.New(classifier.New(classifier.WithSeed(1)), direction.NewLocalAddresses("10.0.0.1"))
	s.Start()
	return s
}

func observation(i int) *model.Observation {
	return &model.Observation{
		Timestamp: time.Now(),
		Kind:      model.KindUDP,
		SrcIP:     net.IPv4(10, 0, 0, 1),
		DstIP:     net.IPv4(8, 8, 8, 8),
		Length:    60 + i,
		UDP:       &model.UDPDatagram{SrcPort: uint16(50000 + i), DstPort: 53},
	}
}

func TestManager_FinalFlushDeliversEverything(t *testing.T) {
	s := newSession()
	w := &recordingWriter{interval: time.Hour}
	m := NewManager(s, []model.Writer{w}, 4, 16, logger.Discard())

	var seen sync.Map
	m.OnRecord = func(rec model.PacketRecord) { seen.Store(rec.SourcePort, rec) }

	m.Start()
	for i := 0; i < 100; i++ {
		m.InputChannel() <- observation(i)
	}
	m.Stop()
	m.Stop()

	assert.Equal(t, 100, s.Len())
	assert.Equal(t, 100, w.total())
	assert.False(t, s.Capturing())

	v, ok := seen.Load(50007)
	require.True(t, ok)
	assert.Equal(t, model.DirectionOutgoing, v.(model.PacketRecord).Direction)
	assert.Equal(t, "DNS", v.(model.PacketRecord).ApplicationGuess)
}

func TestManager_PeriodicFlushSendsOnlyNewRecords(t *testing.T) {
	s := newSession()
	w := &recordingWriter{interval: 10 * time.Millisecond}
	m := NewManager(s, []model.Writer{w}, 1, 16, logger.Discard())
	m.Start()

	for i := 0; i < 5; i++ {
		m.InputChannel() <- observation(i)
	}
	require.Eventually(t, func() bool { return w.total() == 5 }, time.Second, 5*time.Millisecond)

	for i := 5; i < 8; i++ {
		m.InputChannel() <- observation(i)
	}
	m.Stop()

	assert.Equal(t, 8, w.total())
}

func TestManager_FailedWriteIsRetried(t *testing.T) {
	s := newSession()
	w := &recordingWriter{interval: 10 * time.Millisecond, failures: 2}
	m := NewManager(s, []model.Writer{w}, 2, 16, logger.Discard())
	m.Start()

	for i := 0; i < 3; i++ {
		m.InputChannel() <- observation(i)
	}
	require.Eventually(t, func() bool { return w.total() == 3 }, time.Second, 5*time.Millisecond)
	m.Stop()
	assert.Equal(t, 3, w.total())
}

func TestManager_Run(t *testing.T) {
	s := newSession()
	w := &recordingWriter{}
	m := NewManager(s, []model.Writer{w}, 2, 0, nil)

	in := make(chan *model.Observation)
	go func() {
		defer close(in)
		for i := 0; i < 10; i++ {
			in <- observation(i)
		}
	}()

	m.Run(context.Background(), in)
	assert.Equal(t, 10, s.Len())
	assert.Equal(t, 10, w.total())
}

func TestManager_SingleWorkerKeepsArrivalOrder(t *testing.T) {
	s := newSession()
	m := NewManager(s, nil, 1, 8, logger.Discard())

	in := make(chan *model.Observation)
	go func() {
		defer close(in)
		for i := 0; i < 50; i++ {
			in <- observation(i)
		}
	}()
	m.Run(context.Background(), in)

	records := s.Records()
	require.Len(t, records, 50)
	for i, rec := range records {
		assert.Equal(t, 50000+i, rec.SourcePort)
	}
}
