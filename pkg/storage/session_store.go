package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dvbtx/hidesd/pkg/protocol"
)

// Session results recorded in the log.
const (
	ResultRunning     = "running"
	ResultCompleted   = "completed"
	ResultStopped     = "stopped"
	ResultFailed      = "failed"
	ResultInterrupted = "interrupted"
)

// SessionStore handles persistent storage of transmission sessions
type SessionStore struct {
	db          *sql.DB
	dbPath      string
	maxSessions int
}

// NewSessionStore creates a new session store with SQLite backend
func NewSessionStore(dbPath string, maxSessions int) (*SessionStore, error) {
	store := &SessionStore{
		dbPath:      dbPath,
		maxSessions: maxSessions,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	return store, nil
}

// initialize sets up the database connection and creates tables
func (ss *SessionStore) initialize() error {
	// Handle empty database path
	if ss.dbPath == "" {
		ss.dbPath = "./hidesd.db" // Default database path
	}

	// Create database directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(ss.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	// Build connection string properly with query parameters
	connectionString := ss.dbPath + "?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=on"

	// Open database connection
	db, err := sql.Open("sqlite3", connectionString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	ss.db = db

	// Create tables
	if err := ss.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	// Create indexes for performance
	if err := ss.createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Printf("Session store initialized: %s (max %d sessions)", ss.dbPath, ss.maxSessions)
	return nil
}

// createTables creates the database schema
func (ss *SessionStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		device TEXT NOT NULL,
		input_file TEXT NOT NULL DEFAULT '',
		frequency INTEGER NOT NULL DEFAULT 0,
		bandwidth TEXT NOT NULL DEFAULT '',
		constellation TEXT NOT NULL DEFAULT '',
		code_rate TEXT NOT NULL DEFAULT '',
		guard_interval TEXT NOT NULL DEFAULT '',
		transmission_mode TEXT NOT NULL DEFAULT '',
		bitrate INTEGER NOT NULL DEFAULT 0,
		bytes_sent INTEGER NOT NULL DEFAULT 0,
		packets INTEGER NOT NULL DEFAULT 0,
		writes INTEGER NOT NULL DEFAULT 0,
		failed_writes INTEGER NOT NULL DEFAULT 0,
		result TEXT NOT NULL DEFAULT 'running',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS session_stats (
		id INTEGER PRIMARY KEY,
		total_sessions INTEGER NOT NULL DEFAULT 0,
		total_bytes INTEGER NOT NULL DEFAULT 0,
		total_writes INTEGER NOT NULL DEFAULT 0,
		total_failed_writes INTEGER NOT NULL DEFAULT 0,
		last_cleanup DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Initialize stats if empty
	INSERT OR IGNORE INTO session_stats (id, total_sessions, total_bytes, total_writes, total_failed_writes)
	VALUES (1, 0, 0, 0, 0);
	`

	_, err := ss.db.Exec(schema)
	return err
}

// createIndexes creates database indexes for performance
func (ss *SessionStore) createIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_device ON sessions(device)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_result ON sessions(result)",
	}

	for _, indexSQL := range indexes {
		if _, err := ss.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// BeginSession records the start of a transmission session and returns
// its row ID. The row stays in the running state until EndSession.
func (ss *SessionStore) BeginSession(s protocol.Session) (int64, error) {
	tx, err := ss.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sessions (
			started_at, device, input_file, frequency,
			bandwidth, constellation, code_rate, guard_interval, transmission_mode,
			bitrate, result
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.Exec(query,
		s.StartedAt, s.Device, s.InputFile, s.Frequency,
		s.Bandwidth, s.Constellation, s.CodeRate, s.GuardInterval, s.TransmissionMode,
		s.Bitrate, ResultRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	sessionID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session ID: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE session_stats SET
			total_sessions = total_sessions + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to update stats: %w", err)
	}

	return sessionID, tx.Commit()
}

// EndSession finalizes a running session with its transfer counters and
// outcome, then prunes the log if it grew past the configured limit.
func (ss *SessionStore) EndSession(id int64, endedAt time.Time, bytesSent, packets, writes, failedWrites uint64, result string) error {
	tx, err := ss.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE sessions SET
			ended_at = ?,
			bytes_sent = ?,
			packets = ?,
			writes = ?,
			failed_writes = ?,
			result = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, endedAt, bytesSent, packets, writes, failedWrites, result, id)
	if err != nil {
		return fmt.Errorf("failed to finalize session: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE session_stats SET
			total_bytes = total_bytes + ?,
			total_writes = total_writes + ?,
			total_failed_writes = total_failed_writes + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, bytesSent, writes, failedWrites)
	if err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	// Check if we need to cleanup old sessions
	if err := ss.cleanupOldSessions(tx); err != nil {
		log.Printf("Warning: failed to cleanup old sessions: %v", err)
	}

	return tx.Commit()
}

// MarkInterrupted flags sessions left in the running state by a previous
// daemon instance. Called once at startup.
func (ss *SessionStore) MarkInterrupted() (int64, error) {
	result, err := ss.db.Exec(`
		UPDATE sessions SET
			result = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE result = ?
	`, ResultInterrupted, ResultRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted sessions: %w", err)
	}
	return result.RowsAffected()
}

// CleanupOldSessions removes sessions beyond the maximum limit (exported for manual cleanup)
func (ss *SessionStore) CleanupOldSessions() error {
	tx, err := ss.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ss.cleanupOldSessions(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// cleanupOldSessions removes sessions beyond the maximum limit
func (ss *SessionStore) cleanupOldSessions(tx *sql.Tx) error {
	if ss.maxSessions <= 0 {
		return nil // No limit
	}

	// Count current sessions
	var count int
	err := tx.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	if err != nil {
		return err
	}

	if count <= ss.maxSessions {
		return nil // Within limit
	}

	// Delete oldest sessions beyond limit, keeping running rows
	deleteCount := count - ss.maxSessions
	query := `
		DELETE FROM sessions
		WHERE id IN (
			SELECT id FROM sessions
			WHERE result != ?
			ORDER BY started_at ASC
			LIMIT ?
		)
	`

	_, err = tx.Exec(query, ResultRunning, deleteCount)
	if err != nil {
		return err
	}

	// Update cleanup timestamp
	_, err = tx.Exec("UPDATE session_stats SET last_cleanup = CURRENT_TIMESTAMP WHERE id = 1")
	return err
}

// Close closes the database connection
func (ss *SessionStore) Close() error {
	if ss.db != nil {
		return ss.db.Close()
	}
	return nil
}
