package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/aicell-lab/24agents.science/internal/audit"
)

// DB wraps a PostgreSQL connection pool persisting audit events. It
// implements audit.Sink, so it plugs into the forwarder alongside the remote
// telemetry client.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, dsn string) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database DSN: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Info().Msg("connected to PostgreSQL")
	return &DB{pool: pool}, nil
}

// EnsureSchema creates the audit event table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS request_events (
			id BIGSERIAL PRIMARY KEY,
			request_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			user_email TEXT NOT NULL,
			method TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			dataset_id TEXT NOT NULL DEFAULT '',
			dataset_name TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS request_events_request_id_idx ON request_events (request_id);
		CREATE INDEX IF NOT EXISTS request_events_timestamp_idx ON request_events (timestamp)`

	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensuring audit schema: %w", err)
	}
	return nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Healthy checks database connectivity.
func (db *DB) Healthy(ctx context.Context) bool {
	return db.pool.Ping(ctx) == nil
}

// LogEvent implements audit.Sink by appending the event to request_events.
func (db *DB) LogEvent(ctx context.Context, topic string, ev audit.Event) error {
	detail := ""
	if ev.Detail != nil {
		b, err := json.Marshal(ev.Detail)
		if err != nil {
			return fmt.Errorf("encoding event detail: %w", err)
		}
		detail = string(b)
	}

	query := `
		INSERT INTO request_events (request_id, topic, timestamp, user_email,
			method, status, message, detail, dataset_id, dataset_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := db.pool.Exec(ctx, query,
		ev.RequestID, topic, ev.Timestamp, ev.Identity,
		ev.Method, string(ev.Status), ev.Message,
		truncateForDB(detail, 65535),
		ev.DatasetID, ev.DatasetName,
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// GetRequestEvents retrieves the ordered event sequence for one request.
func (db *DB) GetRequestEvents(ctx context.Context, requestID string) ([]EventRow, error) {
	query := `
		SELECT request_id, topic, timestamp, user_email, method, status,
			message, detail, dataset_id, dataset_name
		FROM request_events
		WHERE request_id = $1
		ORDER BY timestamp ASC`

	rows, err := db.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("querying events for request %s: %w", requestID, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListEvents queries persisted events with optional filters.
func (db *DB) ListEvents(ctx context.Context, filter EventFilter) ([]EventRow, error) {
	query := `
		SELECT request_id, topic, timestamp, user_email, method, status,
			message, detail, dataset_id, dataset_name
		FROM request_events
		WHERE ($1 = '' OR method = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3::timestamptz IS NULL OR timestamp >= $3)
		  AND ($4::timestamptz IS NULL OR timestamp <= $4)
		ORDER BY timestamp DESC
		LIMIT $5 OFFSET $6`

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := db.pool.Query(ctx, query,
		filter.Method, filter.Status, filter.Since, filter.Until, limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows pgxRows) ([]EventRow, error) {
	var results []EventRow
	for rows.Next() {
		var row EventRow
		if err := rows.Scan(
			&row.RequestID, &row.Topic, &row.Timestamp, &row.Identity,
			&row.Method, &row.Status, &row.Message, &row.Detail,
			&row.DatasetID, &row.DatasetName,
		); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func truncateForDB(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
