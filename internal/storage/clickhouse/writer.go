// Package clickhouse stores packet records in ClickHouse and queries them back.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"Go2NetScope/internal/config"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const tableName = "packet_records"

const createTableStatement = `
CREATE TABLE IF NOT EXISTS packet_records (
    SessionID        String,
    Timestamp        DateTime64(3),
    SourceIP         String,
    DestinationIP    String,
    SourcePort       Int32,
    DestinationPort  Int32,
    Protocol         LowCardinality(String),
    PacketLength     UInt32,
    Direction        LowCardinality(String),
    TCPFlags         String,
    ApplicationGuess String,
    TrafficCategory  LowCardinality(String),
    ConnectionStatus LowCardinality(String),
    GeographicRegion LowCardinality(String),
    BytesPerSecond   Int64,
    SecurityLevel    LowCardinality(String)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (SessionID, Timestamp);
`

// Writer batch-inserts records into the packet_records table. It implements
// model.Writer.
type Writer struct {
	conn      driver.Conn
	sessionID string
	interval  time.Duration
	log       logger.Logger
}

// NewWriter connects to ClickHouse, ensures the table exists and returns a
// writer tagging every row with sessionID.
func NewWriter(cfg config.ClickHouseConfig, sessionID string, log logger.Logger) (*Writer, error) {
	conn, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Info("Successfully connected to ClickHouse and ensured table exists.")

	return &Writer{
		conn:      conn,
		sessionID: sessionID,
		interval:  config.Duration(cfg.FlushInterval, 10*time.Second),
		log:       log,
	}, nil
}

// Connect opens and pings a ClickHouse connection.
func Connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := ch.Open(&ch.Options{
		Addr: []string{addr},
		Auth: ch.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &ch.Compression{
			Method: ch.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

func (w *Writer) Name() string { return "clickhouse" }

// GetInterval returns the configured flush interval for this writer.
func (w *Writer) GetInterval() time.Duration {
	return w.interval
}

// Write inserts records in a single batch.
func (w *Writer) Write(ctx context.Context, records []model.PacketRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for i := range records {
		if err := batch.Append(row(w.sessionID, &records[i])...); err != nil {
			return fmt.Errorf("failed to append record to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	w.log.Infof("Wrote %d records to ClickHouse for session '%s'", len(records), w.sessionID)
	return nil
}

// Close closes the connection.
func (w *Writer) Close() error {
	return w.conn.Close()
}

// row lays out rec in packet_records column order.
func row(sessionID string, rec *model.PacketRecord) []any {
	length := rec.PacketLength
	if length < 0 {
		length = 0
	}
	return []any{
		sessionID,
		rec.Timestamp,
		rec.SourceIP,
		rec.DestinationIP,
		int32(rec.SourcePort),
		int32(rec.DestinationPort),
		rec.Protocol,
		uint32(length),
		rec.Direction,
		rec.TCPFlags,
		rec.ApplicationGuess,
		rec.TrafficCategory,
		rec.ConnectionStatus,
		rec.GeographicRegion,
		rec.BytesPerSecond,
		rec.SecurityLevel,
	}
}
