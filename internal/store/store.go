// Package store provides sqlite-backed persistence for email templates and
// the sent-email history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS email_templates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	is_html INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS send_email_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	subject TEXT NOT NULL,
	message TEXT NOT NULL,
	sender_email TEXT NOT NULL,
	recipient_email TEXT NOT NULL,
	error TEXT NOT NULL,
	category INTEGER NOT NULL,
	timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sent_emails (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email_template_id INTEGER NOT NULL,
	sender_email TEXT NOT NULL,
	recipient_email TEXT NOT NULL,
	subject TEXT NOT NULL,
	message TEXT NOT NULL,
	sent_successfully INTEGER NOT NULL,
	confirmation_token TEXT NOT NULL,
	confirmation INTEGER NOT NULL DEFAULT 0,
	send_email_error_id INTEGER REFERENCES send_email_errors(id),
	timestamp TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sent_emails_timestamp ON sent_emails(timestamp);
CREATE INDEX IF NOT EXISTS idx_sent_emails_recipient ON sent_emails(recipient_email);
`

// timeLayout stores timestamps as UTC RFC3339 with nanoseconds so that the
// lexicographic order in sqlite matches chronological order.
const timeLayout = time.RFC3339Nano

// DB wraps the sqlite handle shared by the repositories.
type DB struct {
	sql    *sql.DB
	logger zerolog.Logger
}

// Open opens (and if necessary creates) the sqlite database at path and
// applies the schema. Use ":memory:" for an ephemeral database.
func Open(path string, logger zerolog.Logger) (*DB, error) {
	if path == "" {
		return nil, errors.New("store: database path is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent jobs.
	handle.SetMaxOpenConns(1)

	if _, err := handle.Exec(schema); err != nil {
		handle.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &DB{sql: handle, logger: logger}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping verifies the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: parse timestamp %q: %w", value, err)
	}
	return t, nil
}
