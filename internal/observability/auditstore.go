// AuditStore gives the Sink's in-memory audit log an optional durable
// home in a local SQLite database file, so an operator investigating an
// incident can query the audit trail after the process that recorded it
// has exited.
package observability

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const auditTimestampLayout = "2006-01-02T15:04:05.000000000Z"

func parseAuditTimestamp(s string) (time.Time, error) {
	return time.Parse(auditTimestampLayout, s)
}

// AuditStore persists AuditEntry rows to a SQLite file. It is optional: a
// Sink with no attached store behaves exactly as before, keeping entries
// in-memory only.
type AuditStore struct {
	db *sql.DB
}

// OpenAuditStore opens (creating if absent) a SQLite database at path and
// ensures its audit_log table exists.
func OpenAuditStore(path string) (*AuditStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit store %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	action        TEXT NOT NULL,
	agent         TEXT NOT NULL,
	resource      TEXT NOT NULL,
	success       INTEGER NOT NULL,
	error_message TEXT NOT NULL,
	occurred_at   TEXT NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit_log table in %s: %w", path, err)
	}
	return &AuditStore{db: db}, nil
}

// Record inserts one audit entry as a row.
func (s *AuditStore) Record(e AuditEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO audit_log (action, agent, resource, success, error_message, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Action, e.Agent, e.Resource, e.Success, e.ErrorMessage, e.At.UTC().Format(auditTimestampLayout),
	)
	return err
}

// Recent returns up to limit of the most recently recorded entries, newest
// first, for the verify/status CLI surfaces to page through without holding
// the whole history in memory.
func (s *AuditStore) Recent(limit int) ([]AuditEntry, error) {
	rows, err := s.db.Query(
		`SELECT action, agent, resource, success, error_message, occurred_at FROM audit_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var occurredAt string
		if err := rows.Scan(&e.Action, &e.Agent, &e.Resource, &e.Success, &e.ErrorMessage, &occurredAt); err != nil {
			return nil, err
		}
		t, err := parseAuditTimestamp(occurredAt)
		if err != nil {
			return nil, err
		}
		e.At = t
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *AuditStore) Close() error {
	return s.db.Close()
}
