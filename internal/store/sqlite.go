package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// SQLiteStore is a SessionStore backed by a local SQLite database. Used for
// development and single-host deployments without a MongoDB instance.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the local transcript database.
// It resolves to ~/.publicchat/sessions.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".publicchat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "sessions.db"), nil
}

// OpenSQLite opens (or creates) a SQLiteStore at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS chat_sessions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    bot_id        TEXT    NOT NULL,
    user_message  TEXT    NOT NULL,
    bot_response  TEXT    NOT NULL,
    source        TEXT    NOT NULL,
    created_at    INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_chat_sessions_bot_created
    ON chat_sessions (bot_id, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Log persists a single answered turn.
func (s *SQLiteStore) Log(ctx context.Context, botID, userMessage, botResponse string) error {
	const q = `INSERT INTO chat_sessions (bot_id, user_message, bot_response, source, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, botID, userMessage, botResponse, sessionSource, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: log session: %w", err)
	}
	return nil
}

// Recent returns the most recent n turns for the bot, ordered oldest-first.
// Uses a subquery to select the tail then re-order for display.
func (s *SQLiteStore) Recent(ctx context.Context, botID string, n int) ([]Session, error) {
	const q = `
SELECT bot_id, user_message, bot_response, source, created_at FROM (
    SELECT id, bot_id, user_message, bot_response, source, created_at
    FROM   chat_sessions
    WHERE  bot_id = ?
    ORDER  BY created_at DESC, id DESC
    LIMIT  ?
) ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, botID, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var ts int64
		if err := rows.Scan(&sess.BotID, &sess.UserMessage, &sess.BotResponse, &sess.Source, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		sess.Timestamp = time.Unix(ts, 0)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return sessions, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close(context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
