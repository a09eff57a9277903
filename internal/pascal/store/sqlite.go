package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// SQLiteConfig holds configuration for the SQLite store
type SQLiteConfig struct {
	Path string
}

// DefaultSQLiteConfig returns default configuration
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path: "./data/history.db",
	}
}

// NewSQLiteStore opens or creates the history database
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		cfg = DefaultSQLiteConfig()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db, path: cfg.Path}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		expression TEXT NOT NULL,
		value INTEGER,
		error_code TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		strict INTEGER NOT NULL DEFAULT 1,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_created ON evaluations(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_evaluations_error_code ON evaluations(error_code);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Add stores a record. CreatedAt defaults to now.
func (s *SQLiteStore) Add(ctx context.Context, rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var value sql.NullInt64
	if rec.Value != nil {
		value = sql.NullInt64{Int64: int64(*rec.Value), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations
			(id, expression, value, error_code, error_message, strict, duration_ns, source, request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Expression, value, rec.ErrorCode, rec.ErrorMessage, rec.Strict,
		rec.Duration.Nanoseconds(), rec.Source, rec.RequestID, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add record: %w", err)
	}

	return nil
}

const selectColumns = `
	SELECT id, expression, value, error_code, error_message, strict, duration_ns, source, request_id, created_at
	FROM evaluations`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec      Record
		value    sql.NullInt64
		duration int64
	)
	err := row.Scan(&rec.ID, &rec.Expression, &value, &rec.ErrorCode, &rec.ErrorMessage,
		&rec.Strict, &duration, &rec.Source, &rec.RequestID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if value.Valid {
		v := int(value.Int64)
		rec.Value = &v
	}
	rec.Duration = time.Duration(duration)
	return &rec, nil
}

// Get retrieves a record by ID
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// List returns records newest first
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Delete removes a record
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes all records
func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear records: %w", err)
	}
	return res.RowsAffected()
}

// Statistics returns history statistics
func (s *SQLiteStore) Statistics(ctx context.Context) (*Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Statistics{
		ByErrorCode: make(map[string]int64),
		BySource:    make(map[string]int64),
	}

	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(value), AVG(duration_ns) FROM evaluations
	`).Scan(&stats.Total, &stats.Succeeded, &avg)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	stats.Failed = stats.Total - stats.Succeeded
	if avg.Valid {
		stats.AvgDuration = time.Duration(avg.Float64)
	}

	if err := s.countBy(ctx, "error_code", `WHERE error_code != ''`, stats.ByErrorCode); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "source", `WHERE source != ''`, stats.BySource); err != nil {
		return nil, err
	}

	return stats, nil
}

// countBy fills into with row counts grouped by column. column and where
// are constants supplied by this package.
func (s *SQLiteStore) countBy(ctx context.Context, column, where string, into map[string]int64) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM evaluations `+where+` GROUP BY `+column)
	if err != nil {
		return fmt.Errorf("failed to group by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
