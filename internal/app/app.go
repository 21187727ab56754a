// Package app holds the setup and teardown steps shared by the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"Go2NetScope/internal/classifier"
	"Go2NetScope/internal/config"
	"Go2NetScope/internal/direction"
	"Go2NetScope/internal/export"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/report"
	"Go2NetScope/internal/session"
	"Go2NetScope/internal/storage/redisstore"
)

// NewLogger builds the logger described by cfg.
func NewLogger(cfg config.LoggingConfig) (logger.Logger, error) {
	return logger.New(logger.Options{Level: cfg.Level, Format: cfg.Format, FilePath: cfg.File})
}

// NewSession creates a session whose local set is the discovered host
// addresses plus capture.local_ips. Discovery failures are logged and the
// loopback addresses are still used.
func NewSession(cfg *config.Config, log logger.Logger) *session.Session {
	locals, err := direction.DiscoverLocal()
	if err != nil {
		log.Warnf("Local address discovery incomplete: %v", err)
	}
	for _, ip := range cfg.Capture.LocalIPs {
		locals[ip] = struct{}{}
	}

	var opts []classifier.Option
	if cfg.Classifier.Seed != 0 {
		opts = append(opts, classifier.WithSeed(cfg.Classifier.Seed))
	}

	s := session.New(classifier.New(opts...), locals)
	log.WithFields(map[string]any{"session": s.ID, "locals": len(locals)}).Info("Session created")
	return s
}

// ExportOptions maps the export config to CSV options.
func ExportOptions(cfg config.ExportConfig) export.Options {
	opts := export.DefaultOptions()
	if cfg.PowerBI {
		opts = export.PowerBIOptions()
	}
	opts.IncludeHeader = cfg.IncludeHeader
	if layout, ok := export.ParseLayout(cfg.Layout); ok {
		opts.Layout = layout
	}
	return opts
}

// Outcome is what Finalize produced.
type Outcome struct {
	Summary report.Summary
	Export  *export.Result
}

// Finalize summarizes the session over elapsed, renders the summary to out,
// writes the CSV export and, when store is non-nil, saves the summary under
// the session ID. An empty session is summarized but not exported.
func Finalize(ctx context.Context, cfg *config.Config, s *session.Session, elapsed time.Duration, store redisstore.Store, out io.Writer, log logger.Logger) (*Outcome, error) {
	records := s.Records()
	outcome := &Outcome{Summary: report.Summarize(records, elapsed)}

	if err := report.Render(out, outcome.Summary); err != nil {
		return nil, fmt.Errorf("failed to render summary: %w", err)
	}

	exporter := export.NewExporter(cfg.Export.OutputDir, log)
	res, err := exporter.Export(records, cfg.Export.Filename, ExportOptions(cfg.Export))
	switch {
	case errors.Is(err, export.ErrNoRecords):
		log.Warnf("No packets captured in session %s, nothing exported", s.ID)
	case err != nil:
		return nil, err
	default:
		outcome.Export = res
	}

	if store != nil {
		if err := store.Save(ctx, s.ID, outcome.Summary); err != nil {
			return outcome, err
		}
		log.Infof("Summary for session %s saved", s.ID)
	}
	return outcome, nil
}
