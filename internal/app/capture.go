package app

import (
	"context"
	"fmt"

	"Go2NetScope/internal/config"
	"Go2NetScope/internal/engine/manager"
	"Go2NetScope/internal/factory"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"
	"Go2NetScope/internal/session"
)

// PacketSource produces observations until exhausted or ctx is done, closing
// out when it returns. *pcap.Reader satisfies it.
type PacketSource interface {
	ReadPackets(ctx context.Context, out chan<- *model.Observation) int
	Source() string
}

// RunCapture feeds src into s through a manager until the source is
// exhausted, ctx is done or capture.duration elapses. Enabled writers receive
// the accepted records as they arrive. The session is stopped on return.
func RunCapture(ctx context.Context, cfg *config.Config, s *session.Session, src PacketSource, log logger.Logger) error {
	group, err := factory.Create(cfg, s.ID, log)
	if err != nil {
		return fmt.Errorf("failed to create writers: %w", err)
	}
	defer group.Close()

	d, err := cfg.CaptureDuration()
	if err != nil {
		return err
	}
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
		log.Infof("Capturing from %s for %v", src.Source(), d)
	} else {
		log.Infof("Capturing from %s until stopped", src.Source())
	}

	mgr := manager.NewManager(s, group.Writers, cfg.Capture.NumWorkers, cfg.Capture.ChannelSize, log)
	size := cfg.Capture.ChannelSize
	if size <= 0 {
		size = 1024
	}
	observations := make(chan *model.Observation, size)

	skipped := make(chan int, 1)
	go func() {
		skipped <- src.ReadPackets(ctx, observations)
	}()

	s.Start()
	mgr.Run(ctx, observations)

	log.WithFields(map[string]any{
		"session":  s.ID,
		"records":  s.Len(),
		"skipped":  <-skipped,
		"dropped":  s.Dropped(),
		"duration": s.Elapsed(),
	}).Info("Capture finished")
	return nil
}
