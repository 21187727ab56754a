package probe

import (
	"context"
	"fmt"
	"time"

	"Go2NetScope/internal/config"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"

	"github.com/nats-io/nats.go"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Publisher publishes enriched records to a NATS subject. It implements
// model.Writer so the manager can flush batches to it.
type Publisher struct {
	nc       Conn
	subject  string
	interval time.Duration
	log      logger.Logger
}

// NewPublisher connects to NATS and returns a publisher.
func NewPublisher(cfg config.NATSConfig, log logger.Logger) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("gons-publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	log.Infof("Connected to NATS server at %s", cfg.URL)
	return newPublisher(nc, cfg.Subject, config.Duration(cfg.FlushInterval, 5*time.Second), log), nil
}

func newPublisher(nc Conn, subject string, interval time.Duration, log logger.Logger) *Publisher {
	return &Publisher{nc: nc, subject: subject, interval: interval, log: log}
}

func (p *Publisher) Name() string { return "nats" }

// GetInterval returns how often the manager flushes to this publisher.
func (p *Publisher) GetInterval() time.Duration {
	return p.interval
}

// Write publishes each record as one message and flushes the connection.
func (p *Publisher) Write(ctx context.Context, records []model.PacketRecord) error {
	for i := range records {
		if err := p.Publish(&records[i]); err != nil {
			return err
		}
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	return nil
}

// Publish serializes a record and publishes it to the configured subject.
func (p *Publisher) Publish(rec *model.PacketRecord) error {
	data, err := Marshal(rec)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish record: %w", err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.log.Errorf("Failed to drain NATS connection: %v", err)
			return
		}
		p.log.Info("NATS connection drained and closed.")
	}
}
