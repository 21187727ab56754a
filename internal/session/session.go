// Package session holds the state of one capture run: the accumulated
// records, the local address context and the capturing gate.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"Go2NetScope/internal/classifier"
	"Go2NetScope/internal/direction"
	"Go2NetScope/internal/model"

	"github.com/google/uuid"
)

// Session accumulates enriched records for a single capture run. It is safe
// for concurrent use: capture callbacks may call Accept while another
// goroutine calls Stop.
type Session struct {
	ID string

	classifier *classifier.Classifier

	mu        sync.RWMutex
	locals    direction.LocalAddresses
	records   []model.PacketRecord
	startedAt time.Time
	stoppedAt time.Time

	capturing atomic.Bool
	dropped   atomic.Uint64
	now       func() time.Time
}

// New creates a stopped session. Call Start before accepting observations.
func New(c *classifier.Classifier, locals direction.LocalAddresses) *Session {
	if c == nil {
		c = classifier.New()
	}
	return &Session{
		ID:         uuid.NewString(),
		classifier: c,
		locals:     locals,
		now:        time.Now,
	}
}

// Start opens the capturing gate and records the start time.
func (s *Session) Start() {
	s.mu.Lock()
	s.startedAt = s.now()
	s.stoppedAt = time.Time{}
	s.mu.Unlock()
	s.capturing.Store(true)
}

// Stop closes the gate. Observations arriving afterwards are dropped.
// It reports whether this call performed the transition.
func (s *Session) Stop() bool {
	if !s.capturing.CompareAndSwap(true, false) {
		return false
	}
	s.mu.Lock()
	s.stoppedAt = s.now()
	s.mu.Unlock()
	return true
}

// Capturing reports whether the gate is open.
func (s *Session) Capturing() bool {
	return s.capturing.Load()
}

// RunFor starts the session and stops it after d or when ctx is done,
// whichever comes first. It blocks until then. A zero d waits for ctx only.
func (s *Session) RunFor(ctx context.Context, d time.Duration) {
	s.Start()
	defer s.Stop()

	if d <= 0 {
		<-ctx.Done()
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Enrich resolves direction and classifies rec against the session context
// without storing it.
func (s *Session) Enrich(rec *model.PacketRecord) *model.PacketRecord {
	s.mu.RLock()
	locals := s.locals
	s.mu.RUnlock()

	direction.Apply(rec, locals)
	return s.classifier.Classify(rec)
}

// Accept converts, enriches and stores an observation. It returns false
// when the gate is closed and the observation was dropped.
func (s *Session) Accept(obs *model.Observation) (model.PacketRecord, bool) {
	if !s.capturing.Load() {
		s.dropped.Add(1)
		return model.PacketRecord{}, false
	}
	rec := s.Enrich(obs.Record())
	return *rec, s.store(*rec)
}

// Add stores a pre-populated record, as produced by a synthetic generator,
// without touching its fields. It ignores the gate.
func (s *Session) Add(rec model.PacketRecord) {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
}

func (s *Session) store(rec model.PacketRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the lock so nothing lands after Stop has returned.
	if !s.capturing.Load() {
		s.dropped.Add(1)
		return false
	}
	s.records = append(s.records, rec)
	return true
}

// SetLocalAddresses replaces the local context and re-resolves the direction
// of every stored record.
func (s *Session) SetLocalAddresses(locals direction.LocalAddresses) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locals = locals
	for i := range s.records {
		direction.Apply(&s.records[i], locals)
	}
}

// LocalAddresses returns the current local context.
func (s *Session) LocalAddresses() direction.LocalAddresses {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locals
}

// Records returns a copy of the stored records in insertion order.
func (s *Session) Records() []model.PacketRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PacketRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Since returns a copy of the records stored at index offset and later,
// along with the next offset.
func (s *Session) Since(offset int) ([]model.PacketRecord, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset >= len(s.records) {
		return nil, len(s.records)
	}
	out := make([]model.PacketRecord, len(s.records)-offset)
	copy(out, s.records[offset:])
	return out, len(s.records)
}

// Len returns the number of stored records.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Dropped returns how many observations arrived while the gate was closed.
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

// StartedAt returns when the session was last started.
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// Elapsed returns the capture duration: start to stop, or start to now while
// still capturing. It is zero for a session that never started.
func (s *Session) Elapsed() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return 0
	}
	if s.stoppedAt.IsZero() {
		return s.now().Sub(s.startedAt)
	}
	return s.stoppedAt.Sub(s.startedAt)
}
