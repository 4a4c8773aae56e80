// Package history is the local SQLite store of alerts already sent, used to
// suppress duplicate notifications across pipeline runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/bluelight-labs/vigia/internal/models"
)

// Store is the alert history database.
type Store struct {
	path string
	db   *sql.DB
}

// New creates a store handle. Call Open before use.
func New(path string) *Store {
	return &Store{path: path}
}

// Open initializes the database connection.
func (s *Store) Open() error {
	ctx := context.Background()

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("set pragma: %w", err)
		}
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the alert_history table.
func (s *Store) Migrate() error {
	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS alert_history (
			id TEXT PRIMARY KEY,
			alert_id TEXT NOT NULL,
			solicitante TEXT NOT NULL,
			id_report TEXT NOT NULL,
			whole_city INTEGER NOT NULL DEFAULT 0,
			message TEXT NOT NULL,
			sent INTEGER NOT NULL DEFAULT 0,
			sent_at DATETIME,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_alert_history_alert_id ON alert_history(alert_id);
		CREATE INDEX IF NOT EXISTS idx_alert_history_created_at ON alert_history(created_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create alert_history table: %w", err)
	}
	return nil
}

// Seen reports whether an alert with the given id is already recorded.
// Unsent rows count too: the record is written before delivery.
func (s *Store) Seen(ctx context.Context, alertID string) (bool, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alert_history WHERE alert_id = ?", alertID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query alert history: %w", err)
	}
	return count > 0, nil
}

// Record persists an alert before delivery. The entry's ID is assigned if
// empty.
func (s *Store) Record(ctx context.Context, e *models.AlertHistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO alert_history (id, alert_id, solicitante, id_report,
			whole_city, message, sent, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.AlertID, e.Solicitante, e.IDReport,
		boolToInt(e.WholeCity), e.Message, boolToInt(e.Sent), nullTime(e.SentAt), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create alert history: %w", err)
	}
	return nil
}

// MarkSent flags a recorded alert as delivered.
func (s *Store) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE alert_history SET sent = 1, sent_at = ? WHERE id = ?", sentAt, id,
	)
	if err != nil {
		return fmt.Errorf("mark alert sent: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("mark alert sent: no row with id %s", id)
	}
	return nil
}

// List returns recent entries newest first, with the total count.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*models.AlertHistoryEntry, int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_history").Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count alert history: %w", err)
	}

	query := `
		SELECT id, alert_id, solicitante, id_report, whole_city, message,
			sent, sent_at, created_at
		FROM alert_history ORDER BY created_at DESC LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query alert history: %w", err)
	}
	defer rows.Close()

	var entries []*models.AlertHistoryEntry
	for rows.Next() {
		e := &models.AlertHistoryEntry{}
		var wholeCity, sent int
		var sentAt sql.NullTime
		err := rows.Scan(&e.ID, &e.AlertID, &e.Solicitante, &e.IDReport,
			&wholeCity, &e.Message, &sent, &sentAt, &e.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan alert history: %w", err)
		}
		e.WholeCity = wholeCity != 0
		e.Sent = sent != 0
		e.SentAt = sentAt.Time
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// DeleteBefore removes entries older than the given time.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM alert_history WHERE created_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("delete alert history: %w", err)
	}
	return result.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
