package model

import (
	"context"
	"time"
)

// Writer defines a generic interface for shipping enriched records to a
// downstream store (stream, database, cache).
type Writer interface {
	// Write persists a batch of records. Implementations must not retain the slice.
	Write(ctx context.Context, records []PacketRecord) error

	// Name identifies the writer in logs.
	Name() string

	// GetInterval returns how often the pipeline flushes new records to this writer.
	// A non-positive interval means the writer only receives the final flush.
	GetInterval() time.Duration
}
