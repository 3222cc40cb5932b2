package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is bumped whenever the records table layout changes.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	gateway_index INTEGER NOT NULL,
	gateway_account TEXT NOT NULL,
	gateway_id TEXT NOT NULL,
	provider TEXT,
	streamed INTEGER NOT NULL,
	upstream_status INTEGER NOT NULL,
	request_bytes INTEGER NOT NULL,
	response_bytes INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error TEXT,
	started_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_started_at ON records(started_at);
CREATE INDEX IF NOT EXISTS idx_records_request_id ON records(request_id);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);
`

// StoreConfig contains configuration for the SQLite audit store.
type StoreConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultStoreConfig returns the default store configuration.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 4,
		BusyTimeout:  5 * time.Second,
	}
}

// Store persists audit records to SQLite.
type Store struct {
	db     *sql.DB
	config *StoreConfig
	logger *slog.Logger
}

// NewStore opens (or creates) the audit database, enabling WAL mode and
// installing the schema.
func NewStore(config *StoreConfig) (*Store, error) {
	if config == nil {
		config = DefaultStoreConfig()
	}

	logger := slog.Default().With("component", "audit.store")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &Store{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("audit store initialized",
		"path", config.Path,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize enables WAL mode, sets the busy timeout, and creates the schema.
func (s *Store) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enabling WAL mode: %w", err)
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating audit schema: %w", err)
	}

	if _, err := s.db.Exec(
		"INSERT OR IGNORE INTO schema_version (version) VALUES (?)", SchemaVersion,
	); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("audit schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}

	return nil
}

// Insert persists one record.
func (s *Store) Insert(ctx context.Context, r *Record) error {
	var errVal interface{}
	if r.Error != "" {
		errVal = r.Error
	}
	var providerVal interface{}
	if r.Provider != "" {
		providerVal = r.Provider
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (
			request_id, method, path,
			gateway_index, gateway_account, gateway_id,
			provider, streamed, upstream_status,
			request_bytes, response_bytes, duration_ms, error, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RequestID, r.Method, r.Path,
		r.GatewayIndex, r.GatewayAccount, r.GatewayID,
		providerVal, r.Streamed, r.UpstreamStatus,
		r.RequestBytes, r.ResponseBytes, r.Duration.Milliseconds(), errVal, r.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

// DeleteBefore removes records older than the cutoff time and returns the
// number deleted.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE started_at < ?", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning audit records: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning audit records: %w", err)
	}
	return count, nil
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting audit records: %w", err)
	}
	return count, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing audit store: %w", err)
	}
	s.logger.Info("audit store closed")
	return nil
}
