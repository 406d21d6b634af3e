package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists inspection reports and cached market lookups.
type Store interface {
	GetMarketCache(key string) (string, bool, error)
	SetMarketCache(key, payload string) error

	SaveReport(inspectionID, status string, report []byte) error
	GetReport(inspectionID string) ([]byte, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	cacheTTL time.Duration
	mu       sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath. cacheTTL bounds
// how long market lookups are reused; zero disables expiry.
func NewSQLiteStore(dbPath string, cacheTTL time.Duration) (*SQLiteStore, error) {
	// WAL mode and a busy timeout for concurrent inspections
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, cacheTTL: cacheTTL}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS market_cache (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS inspections (
		inspection_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		report TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// GetMarketCache returns the cached payload for a lookup key, treating
// expired entries as misses.
func (s *SQLiteStore) GetMarketCache(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	var createdAt int64
	err := s.db.QueryRow(
		"SELECT payload, created_at FROM market_cache WHERE key = ?", key,
	).Scan(&payload, &createdAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read market cache: %w", err)
	}

	if s.cacheTTL > 0 && time.Since(time.Unix(createdAt, 0)) > s.cacheTTL {
		return "", false, nil
	}
	return payload, true, nil
}

func (s *SQLiteStore) SetMarketCache(key, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO market_cache (key, payload, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		key, payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write market cache: %w", err)
	}
	return nil
}

// PruneMarketCache removes entries older than maxAge and returns how many
// were deleted.
func (s *SQLiteStore) PruneMarketCache(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := s.db.Exec("DELETE FROM market_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune market cache: %w", err)
	}
	return res.RowsAffected()
}

// SaveReport stores (or replaces) the output record for an inspection.
func (s *SQLiteStore) SaveReport(inspectionID, status string, report []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO inspections (inspection_id, status, report, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(inspection_id) DO UPDATE SET status = excluded.status, report = excluded.report, created_at = excluded.created_at`,
		inspectionID, status, string(report), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport returns the stored output record, or nil when the inspection is
// unknown.
func (s *SQLiteStore) GetReport(inspectionID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var report string
	err := s.db.QueryRow(
		"SELECT report FROM inspections WHERE inspection_id = ?", inspectionID,
	).Scan(&report)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return []byte(report), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
