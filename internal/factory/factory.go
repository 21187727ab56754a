// Package factory builds the writers a session flushes to, according to config.
package factory

import (
	"fmt"

	"Go2NetScope/internal/config"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"
	"Go2NetScope/internal/probe"
	"Go2NetScope/internal/snapshot"
	"Go2NetScope/internal/storage/clickhouse"
)

// WriterFactory creates one writer for a session. It returns a nil writer
// when the writer is disabled in cfg.
type WriterFactory func(cfg *config.Config, sessionID string, log logger.Logger) (model.Writer, error)

// registry holds the mapping of writer names to their factory functions.
var (
	registry = make(map[string]WriterFactory)
	order    []string
)

func init() {
	RegisterWriter("snapshot", newSnapshotWriter)
	RegisterWriter("nats", newNATSWriter)
	RegisterWriter("clickhouse", newClickHouseWriter)
}

// RegisterWriter registers a new writer type with its factory function.
// Writers are created in registration order.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
	order = append(order, name)
}

// WriterGroup is the set of writers created for one session.
type WriterGroup struct {
	Writers []model.Writer
}

// Create builds every enabled writer. If one fails, the writers created so
// far are closed.
func Create(cfg *config.Config, sessionID string, log logger.Logger) (*WriterGroup, error) {
	group := &WriterGroup{}
	for _, name := range order {
		w, err := registry[name](cfg, sessionID, log)
		if err != nil {
			group.Close()
			return nil, fmt.Errorf("error creating writer '%s': %w", name, err)
		}
		if w == nil {
			continue
		}
		log.Infof("Writer '%s' enabled, flushing every %v", w.Name(), w.GetInterval())
		group.Writers = append(group.Writers, w)
	}
	return group, nil
}

// Close releases every writer that holds a connection.
func (g *WriterGroup) Close() {
	for _, w := range g.Writers {
		switch c := w.(type) {
		case interface{ Close() error }:
			c.Close()
		case interface{ Close() }:
			c.Close()
		}
	}
}

func newSnapshotWriter(cfg *config.Config, sessionID string, _ logger.Logger) (model.Writer, error) {
	if !cfg.Snapshot.Enabled {
		return nil, nil
	}
	return snapshot.NewGobWriter(cfg.Snapshot.RootPath, sessionID, config.Duration(cfg.Snapshot.Interval, 0)), nil
}

func newNATSWriter(cfg *config.Config, _ string, log logger.Logger) (model.Writer, error) {
	if !cfg.NATS.Enabled {
		return nil, nil
	}
	return probe.NewPublisher(cfg.NATS, log)
}

func newClickHouseWriter(cfg *config.Config, sessionID string, log logger.Logger) (model.Writer, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	return clickhouse.NewWriter(cfg.ClickHouse, sessionID, log)
}
