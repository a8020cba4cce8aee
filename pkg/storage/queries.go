package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dvbtx/hidesd/pkg/protocol"
)

// SessionQuery represents query parameters for retrieving sessions
type SessionQuery struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
	Device string
	Result string // "completed", "failed", ... or "" for all
}

// SessionStats represents database statistics
type SessionStats struct {
	TotalSessions     int64     `json:"total_sessions"`
	TotalBytes        int64     `json:"total_bytes"`
	TotalWrites       int64     `json:"total_writes"`
	TotalFailedWrites int64     `json:"total_failed_writes"`
	LastCleanup       time.Time `json:"last_cleanup"`
}

const sessionColumns = `id, started_at, ended_at, device, input_file, frequency,
	   bandwidth, constellation, code_rate, guard_interval, transmission_mode,
	   bitrate, bytes_sent, packets, writes, failed_writes, result`

// scanSession reads one session row
func scanSession(rows interface{ Scan(...interface{}) error }) (protocol.Session, error) {
	var s protocol.Session
	var endedAt sql.NullTime

	err := rows.Scan(
		&s.ID,
		&s.StartedAt,
		&endedAt,
		&s.Device,
		&s.InputFile,
		&s.Frequency,
		&s.Bandwidth,
		&s.Constellation,
		&s.CodeRate,
		&s.GuardInterval,
		&s.TransmissionMode,
		&s.Bitrate,
		&s.BytesSent,
		&s.Packets,
		&s.Writes,
		&s.FailedWrites,
		&s.Result,
	)
	if err != nil {
		return s, err
	}

	if endedAt.Valid {
		s.EndedAt = endedAt.Time
	}
	return s, nil
}

// GetSessions retrieves sessions based on query parameters
func (ss *SessionStore) GetSessions(query SessionQuery) ([]protocol.Session, error) {
	var args []interface{}
	var conditions []string

	sqlQuery := "SELECT " + sessionColumns + " FROM sessions WHERE 1=1"

	if query.Since != nil {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, query.Since)
	}

	if query.Until != nil {
		conditions = append(conditions, "started_at <= ?")
		args = append(args, query.Until)
	}

	if query.Device != "" {
		conditions = append(conditions, "device = ?")
		args = append(args, query.Device)
	}

	if query.Result != "" {
		conditions = append(conditions, "result = ?")
		args = append(args, query.Result)
	}

	// Add conditions to query
	for _, condition := range conditions {
		sqlQuery += " AND " + condition
	}

	// Order by start time descending (newest first)
	sqlQuery += " ORDER BY started_at DESC"

	// Add limit and offset
	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)

		if query.Offset > 0 {
			sqlQuery += " OFFSET ?"
			args = append(args, query.Offset)
		}
	}

	rows, err := ss.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []protocol.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// GetRecentSessions retrieves the most recent sessions
func (ss *SessionStore) GetRecentSessions(limit int) ([]protocol.Session, error) {
	return ss.GetSessions(SessionQuery{Limit: limit})
}

// GetSessionByID retrieves a single session
func (ss *SessionStore) GetSessionByID(id int64) (*protocol.Session, error) {
	row := ss.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)

	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	return &s, nil
}

// GetSessionStats retrieves database statistics
func (ss *SessionStore) GetSessionStats() (*SessionStats, error) {
	var stats SessionStats
	var lastCleanup sql.NullTime

	err := ss.db.QueryRow(`
		SELECT total_sessions, total_bytes, total_writes, total_failed_writes, last_cleanup
		FROM session_stats WHERE id = 1
	`).Scan(&stats.TotalSessions, &stats.TotalBytes, &stats.TotalWrites, &stats.TotalFailedWrites, &lastCleanup)

	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}

	if lastCleanup.Valid {
		stats.LastCleanup = lastCleanup.Time
	}

	return &stats, nil
}

// GetSessionCount returns the total number of logged sessions
func (ss *SessionStore) GetSessionCount() (int, error) {
	var count int
	err := ss.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}
