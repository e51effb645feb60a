package history

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad/warnbridge/internal/dispatch"
)

// Logger defines the logging interface used by Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store persists DeliveryRecords to SQLite and implements
// dispatch.History. A write failure is logged, not propagated: the
// dispatch worker that produced the record must never block or fail a
// delivery outcome because the audit log couldn't be written.
type Store struct {
	db     *DB
	logger Logger
}

// NewStore wraps an already-open, already-migrated DB.
func NewStore(db *DB, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Store{db: db, logger: logger}
}

// Record implements dispatch.History.
func (s *Store) Record(rec dispatch.DeliveryRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_records (id, job_id, timestamp, route_name, service, target, topic, outcome, attempt_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.JobID, rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.RouteName, rec.Service, rec.Target, rec.Topic, string(rec.Outcome), rec.AttemptCount,
	)
	if err != nil {
		s.logger.Error("failed to write delivery record", "id", rec.ID, "error", err)
	}
}

// Recent returns up to limit DeliveryRecords, most recent first. Used by
// the admin API's recent-deliveries endpoint.
func (s *Store) Recent(ctx context.Context, limit int) ([]dispatch.DeliveryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, timestamp, route_name, service, target, topic, outcome, attempt_count
		FROM delivery_records
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying delivery records: %w", err)
	}
	defer rows.Close()

	var out []dispatch.DeliveryRecord
	for rows.Next() {
		var rec dispatch.DeliveryRecord
		var ts, outcome string
		if err := rows.Scan(&rec.ID, &rec.JobID, &ts, &rec.RouteName, &rec.Service, &rec.Target, &rec.Topic, &outcome, &rec.AttemptCount); err != nil {
			return nil, fmt.Errorf("scanning delivery record: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, ts) //nolint:errcheck // format is controlled by Record
		rec.Outcome = dispatch.Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}
