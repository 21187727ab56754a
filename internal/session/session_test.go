package session

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"Go2NetScope/internal/classifier"
	"Go2NetScope/internal/direction"
	"Go2NetScope/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource int

func (f fixedSource) IntN(int) int { return int(f) }

func newTestSession() *Session {
	c := classifier.New(classifier.WithSource(fixedSource(0)))
	return New(c, direction.NewLocalAddresses("127.0.0.1", "192.168.1.100"))
}

func tcpObservation(src, dst string, sport, dport uint16) *model.Observation {
	return &model.Observation{
		Timestamp: time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC),
		Kind:      model.KindTCP,
		SrcIP:     net.ParseIP(src),
		DstIP:     net.ParseIP(dst),
		Length:    100,
		TCP: &model.TCPSegment{
			SrcPort: sport,
			DstPort: dport,
			Flags:   model.TCPFlags{SYN: true},
		},
	}
}

func TestAccept_EnrichesAndStores(t *testing.T) {
	s := newTestSession()
	s.Start()

	rec, ok := s.Accept(tcpObservation("192.168.1.100", "93.184.216.34", 51000, 443))
	require.True(t, ok)
	assert.Equal(t, model.DirectionOutgoing, rec.Direction)
	assert.Equal(t, "HTTPS", rec.ApplicationGuess)
	assert.Equal(t, "SYN", rec.TCPFlags)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, rec, s.Records()[0])
}

func TestAccept_DroppedWhenStopped(t *testing.T) {
	s := newTestSession()

	_, ok := s.Accept(tcpObservation("10.0.0.1", "10.0.0.2", 1, 2))
	assert.False(t, ok)

	s.Start()
	assert.True(t, s.Stop())
	assert.False(t, s.Stop())

	_, ok = s.Accept(tcpObservation("10.0.0.1", "10.0.0.2", 1, 2))
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, uint64(2), s.Dropped())
}

func TestAdd_KeepsFieldsAsIs(t *testing.T) {
	s := newTestSession()
	rec := model.NewPacketRecord(time.Now())
	rec.Direction = model.DirectionIncoming
	rec.ApplicationGuess = "Custom"

	s.Add(*rec)
	got := s.Records()
	require.Len(t, got, 1)
	assert.Equal(t, "Custom", got[0].ApplicationGuess)
}

func TestRecords_ReturnsCopy(t *testing.T) {
	s := newTestSession()
	s.Add(*model.NewPacketRecord(time.Now()))

	got := s.Records()
	got[0].Protocol = "mutated"
	assert.Equal(t, model.Unknown, s.Records()[0].Protocol)
}

func TestSince(t *testing.T) {
	s := newTestSession()
	for i := 0; i < 3; i++ {
		s.Add(*model.NewPacketRecord(time.Now()))
	}

	batch, next := s.Since(0)
	assert.Len(t, batch, 3)
	assert.Equal(t, 3, next)

	batch, next = s.Since(next)
	assert.Empty(t, batch)
	assert.Equal(t, 3, next)

	s.Add(*model.NewPacketRecord(time.Now()))
	batch, next = s.Since(next)
	assert.Len(t, batch, 1)
	assert.Equal(t, 4, next)
}

func TestSetLocalAddresses_ReResolves(t *testing.T) {
	s := New(classifier.New(), direction.NewLocalAddresses("10.0.0.9"))
	s.Start()
	rec, ok := s.Accept(tcpObservation("10.0.0.5", "10.0.0.9", 4000, 80))
	require.True(t, ok)
	assert.Equal(t, model.DirectionIncoming, rec.Direction)

	s.SetLocalAddresses(direction.NewLocalAddresses("10.0.0.5"))
	assert.Equal(t, model.DirectionOutgoing, s.Records()[0].Direction)
}

func TestElapsed(t *testing.T) {
	s := newTestSession()
	assert.Zero(t, s.Elapsed())

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	s.Start()
	clock = base.Add(2 * time.Second)
	assert.Equal(t, 2*time.Second, s.Elapsed())

	s.Stop()
	clock = base.Add(time.Minute)
	assert.Equal(t, 2*time.Second, s.Elapsed())
}

func TestRunFor_StopsAfterDuration(t *testing.T) {
	s := newTestSession()
	s.RunFor(context.Background(), 20*time.Millisecond)
	assert.False(t, s.Capturing())
	assert.GreaterOrEqual(t, s.Elapsed(), 20*time.Millisecond)
}

func TestRunFor_StopsOnCancel(t *testing.T) {
	s := newTestSession()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.RunFor(ctx, 0)
		close(done)
	}()

	require.Eventually(t, s.Capturing, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunFor did not return after cancel")
	}
	assert.False(t, s.Capturing())
}

func TestAccept_Concurrent(t *testing.T) {
	s := newTestSession()
	s.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Accept(tcpObservation("10.0.0.1", "192.168.1.100", 1234, 22))
			}
		}()
	}
	wg.Wait()
	s.Stop()
	assert.Equal(t, 400, s.Len())
}
