package manager

import (
	"context"
	"sync"
	"time"

	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"
	"Go2NetScope/internal/session"
)

// Manager feeds observations into a session through a worker pool and
// periodically flushes newly accepted records to a set of writers.
type Manager struct {
	session *session.Session
	writers []model.Writer
	log     logger.Logger

	// Worker pool for concurrent packet processing
	packetChannel chan *model.Observation
	numWorkers    int
	workerWg      sync.WaitGroup

	done          chan struct{}
	snapshotterWg sync.WaitGroup
	stopOnce      sync.Once

	// OnRecord, when set, is called by a worker for every accepted record.
	OnRecord func(model.PacketRecord)
}

// NewManager creates a manager around s. numWorkers and channelSize fall
// back to 1 and 1024 when not positive. Records are stored in arrival order
// only with a single worker; with more, workers race and the first-seen order
// used to break distribution ties can differ between runs.
func NewManager(s *session.Session, writers []model.Writer, numWorkers, channelSize int, log logger.Logger) *Manager {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if channelSize <= 0 {
		channelSize = 1024
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		session:       s,
		writers:       writers,
		log:           log,
		packetChannel: make(chan *model.Observation, channelSize),
		numWorkers:    numWorkers,
		done:          make(chan struct{}),
	}
}

// Start launches the workers and one snapshotter per writer.
func (m *Manager) Start() {
	for _, writer := range m.writers {
		m.snapshotterWg.Add(1)
		go m.runSnapshotter(writer)
		m.log.Infof("Started snapshotter for writer '%s' with interval %s", writer.Name(), writer.GetInterval())
	}

	m.workerWg.Add(m.numWorkers)
	for i := 0; i < m.numWorkers; i++ {
		go m.worker()
	}
	m.log.Infof("Manager started with %d workers.", m.numWorkers)
}

// runSnapshotter flushes records accepted since its last run to one writer.
// A final flush happens on shutdown so nothing accepted is left behind.
func (m *Manager) runSnapshotter(writer model.Writer) {
	defer m.snapshotterWg.Done()

	offset := 0
	interval := writer.GetInterval()
	if interval <= 0 {
		// Flush once at shutdown only.
		<-m.done
		m.flush(writer, offset)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			offset = m.flush(writer, offset)
		case <-m.done:
			m.flush(writer, offset)
			return
		}
	}
}

func (m *Manager) flush(writer model.Writer, offset int) int {
	batch, next := m.session.Since(offset)
	if len(batch) == 0 {
		return next
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := writer.Write(ctx, batch); err != nil {
		m.log.Errorf("Error writing %d records to '%s': %v", len(batch), writer.Name(), err)
		// Keep the offset so the batch is retried on the next tick.
		return offset
	}
	return next
}

// Stop closes the input, drains the workers, stops the session and runs the
// final flush for every writer. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.log.Info("Manager stopping...")
		close(m.packetChannel)

		m.log.Info("Waiting for workers to finish...")
		m.workerWg.Wait()
		m.session.Stop()

		close(m.done)
		m.log.Info("Waiting for snapshotters to finish...")
		m.snapshotterWg.Wait()

		m.log.Info("Manager stopped.")
	})
}

func (m *Manager) worker() {
	defer m.workerWg.Done()
	for obs := range m.packetChannel {
		rec, ok := m.session.Accept(obs)
		if ok && m.OnRecord != nil {
			m.OnRecord(rec)
		}
	}
}

// InputChannel returns the channel observations should be sent to.
func (m *Manager) InputChannel() chan<- *model.Observation {
	return m.packetChannel
}

// Run starts the manager, forwards everything from in until in is closed or
// ctx is done, and then stops the manager.
func (m *Manager) Run(ctx context.Context, in <-chan *model.Observation) {
	m.Start()
	defer m.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case obs, ok := <-in:
			if !ok {
				return
			}
			select {
			case m.packetChannel <- obs:
			case <-ctx.Done():
				return
			}
		}
	}
}
