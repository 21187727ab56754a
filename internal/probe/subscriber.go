package probe

import (
	"fmt"

	"Go2NetScope/internal/config"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"

	"github.com/nats-io/nats.go"
)

// RecordHandler processes a received record.
type RecordHandler func(rec model.PacketRecord)

// Subscriber consumes records published by a Publisher.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	log     logger.Logger
}

// NewSubscriber connects to NATS and returns a subscriber.
func NewSubscriber(cfg config.NATSConfig, log logger.Logger) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("gons-subscriber"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	log.Infof("Connected to NATS server at %s", cfg.URL)
	return &Subscriber{nc: nc, subject: cfg.Subject, log: log}, nil
}

// Start subscribes to the subject and hands each decoded record to handler.
// Messages that fail to decode are logged and dropped.
func (s *Subscriber) Start(handler RecordHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		handleMessage(msg.Data, handler, s.log)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to '%s': %w", s.subject, err)
	}
	s.sub = sub
	s.log.Infof("Subscribed to '%s'. Waiting for messages...", s.subject)
	return nil
}

func handleMessage(data []byte, handler RecordHandler, log logger.Logger) {
	rec, err := Unmarshal(data)
	if err != nil {
		log.Errorf("Error decoding record message: %v", err)
		return
	}
	handler(*rec)
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			s.log.Errorf("Failed to unsubscribe: %v", err)
		}
	}
	if s.nc != nil {
		s.nc.Close()
		s.log.Info("NATS connection closed.")
	}
}
