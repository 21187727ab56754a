package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Go2NetScope/internal/config"
	"Go2NetScope/internal/report"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Filter narrows a query. Zero fields are ignored.
type Filter struct {
	SessionID string
	From      time.Time
	To        time.Time
	Protocol  string
}

// groupable lists the columns a distribution may be grouped by.
var groupable = map[string]bool{
	"Protocol":         true,
	"Direction":        true,
	"ApplicationGuess": true,
	"TrafficCategory":  true,
	"SecurityLevel":    true,
	"GeographicRegion": true,
	"SourceIP":         true,
	"DestinationIP":    true,
}

// Querier reads aggregated views of the packet_records table.
type Querier struct {
	conn driver.Conn
}

// NewQuerier connects to ClickHouse and returns a querier.
func NewQuerier(cfg config.ClickHouseConfig) (*Querier, error) {
	conn, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &Querier{conn: conn}, nil
}

// Distribution counts records per distinct value of column, largest first.
// limit <= 0 returns every group.
func (q *Querier) Distribution(ctx context.Context, column string, f Filter, limit int) (report.Distribution, error) {
	query, args, err := buildDistributionQuery(column, f, limit)
	if err != nil {
		return nil, err
	}

	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var (
		dist  report.Distribution
		total int
	)
	for rows.Next() {
		var (
			name  string
			count uint64
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan distribution row: %w", err)
		}
		dist = append(dist, report.Entry{Name: name, Count: int(count)})
		total += int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read distribution rows: %w", err)
	}

	for i := range dist {
		if total > 0 {
			dist[i].Percent = float64(dist[i].Count) / float64(total) * 100
		}
	}
	return dist, nil
}

// Totals returns the record count and byte total matching f.
func (q *Querier) Totals(ctx context.Context, f Filter) (records uint64, bytes uint64, err error) {
	where, args := buildWhere(f)
	query := "SELECT count(), sum(PacketLength) FROM " + tableName + where

	if err := q.conn.QueryRow(ctx, query, args...).Scan(&records, &bytes); err != nil {
		return 0, 0, fmt.Errorf("failed to scan totals: %w", err)
	}
	return records, bytes, nil
}

// Close closes the connection.
func (q *Querier) Close() error {
	return q.conn.Close()
}

func buildDistributionQuery(column string, f Filter, limit int) (string, []any, error) {
	// Column names cannot be bound as parameters, so only known ones pass.
	if !groupable[column] {
		return "", nil, fmt.Errorf("unsupported group column: %s", column)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + column + ", count() AS Count FROM " + tableName)

	where, args := buildWhere(f)
	sb.WriteString(where)
	sb.WriteString(" GROUP BY " + column + " ORDER BY Count DESC, " + column + " ASC")
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	return sb.String(), args, nil
}

func buildWhere(f Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.SessionID != "" {
		clauses = append(clauses, "SessionID = ?")
		args = append(args, f.SessionID)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "Timestamp >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "Timestamp <= ?")
		args = append(args, f.To)
	}
	if f.Protocol != "" {
		clauses = append(clauses, "Protocol = ?")
		args = append(args, f.Protocol)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
