package snapshot

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"Go2NetScope/internal/model"
	"Go2NetScope/internal/report"
)

const (
	// DirLayout names each snapshot directory.
	DirLayout = "2006-01-02_15-04-05.000"

	recordsFile = "records.dat"
	summaryFile = "summary.json"
)

// SummaryData holds the metadata written next to each batch.
type SummaryData struct {
	SessionID   string         `json:"session_id"`
	Records     int            `json:"records"`
	TotalBytes  int64          `json:"total_bytes"`
	Protocols   map[string]int `json:"protocols"`
	FirstPacket time.Time      `json:"first_packet"`
	LastPacket  time.Time      `json:"last_packet"`
	Timestamp   string         `json:"timestamp"`
}

// GobWriter persists each flushed batch of records to its own timestamped
// directory as a gob stream plus a JSON summary. It implements model.Writer.
type GobWriter struct {
	rootPath  string
	sessionID string
	interval  time.Duration
	now       func() time.Time
}

// NewGobWriter creates a writer rooted at rootPath.
func NewGobWriter(rootPath, sessionID string, interval time.Duration) *GobWriter {
	return &GobWriter{rootPath: rootPath, sessionID: sessionID, interval: interval, now: time.Now}
}

func (w *GobWriter) Name() string { return "snapshot" }

// GetInterval returns the configured snapshot interval for this writer.
func (w *GobWriter) GetInterval() time.Duration {
	return w.interval
}

// Write stores records under <root>/<session>/<timestamp>/.
func (w *GobWriter) Write(_ context.Context, records []model.PacketRecord) error {
	if len(records) == 0 {
		return nil
	}

	timestamp := w.now().UTC().Format(DirLayout)
	dir := filepath.Join(w.rootPath, w.sessionID, timestamp)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	filePath := filepath.Join(dir, recordsFile)
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
	}
	if err := gob.NewEncoder(file).Encode(records); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode records to gob for file '%s': %w", filePath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot file '%s': %w", filePath, err)
	}

	summary := SummaryData{
		SessionID:   w.sessionID,
		Records:     len(records),
		Protocols:   make(map[string]int),
		FirstPacket: records[0].Timestamp,
		LastPacket:  records[0].Timestamp,
		Timestamp:   w.now().UTC().Format(time.RFC3339),
	}
	for i := range records {
		rec := &records[i]
		summary.TotalBytes += int64(rec.PacketLength)
		summary.Protocols[rec.Protocol]++
		if rec.Timestamp.Before(summary.FirstPacket) {
			summary.FirstPacket = rec.Timestamp
		}
		if rec.Timestamp.After(summary.LastPacket) {
			summary.LastPacket = rec.Timestamp
		}
	}

	summaryPath := filepath.Join(dir, summaryFile)
	out, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}

// Load reads every batch stored under dir (a session directory) in
// timestamp order and returns the concatenated records.
func Load(dir string) ([]model.PacketRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory '%s': %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var all []model.PacketRecord
	for _, name := range names {
		path := filepath.Join(dir, name, recordsFile)
		batch, err := readBatch(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

// LoadSummary loads every batch under dir and summarizes it, using the span
// between the first and last packet as the elapsed time.
func LoadSummary(dir string) (report.Summary, error) {
	records, err := Load(dir)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(records, report.Span(records)), nil
}

func readBatch(path string) ([]model.PacketRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var batch []model.PacketRecord
	if err := gob.NewDecoder(file).Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot file '%s': %w", path, err)
	}
	return batch, nil
}
