// Package sqlite provides an embedded storage backend with the same
// repository surface as the postgres package. The schema is created on
// open, so no external migration step is needed.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS personas (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	persona_type  TEXT NOT NULL,
	system_prompt TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	is_active     INTEGER NOT NULL DEFAULT 1,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_personas_name ON personas (LOWER(name));

CREATE TABLE IF NOT EXISTS persona_memories (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	persona_id TEXT NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
	kind       TEXT NOT NULL,
	content    TEXT NOT NULL,
	importance REAL NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_persona_memories_persona ON persona_memories (persona_id);

CREATE TABLE IF NOT EXISTS groups (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_active   INTEGER NOT NULL DEFAULT 1,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS group_personas (
	group_id   TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	persona_id TEXT NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
	PRIMARY KEY (group_id, persona_id)
);

CREATE TABLE IF NOT EXISTS simulations (
	id                 TEXT PRIMARY KEY,
	group_id           TEXT,
	name               TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	persona_ids        TEXT NOT NULL,
	simulation_type    TEXT NOT NULL,
	max_turns          INTEGER NOT NULL DEFAULT 0,
	turn_delay         REAL NOT NULL DEFAULT 1.0,
	allow_interruption INTEGER NOT NULL DEFAULT 1,
	status             TEXT NOT NULL,
	message_count      INTEGER NOT NULL DEFAULT 0,
	created_at         TIMESTAMP NOT NULL,
	started_at         TIMESTAMP,
	completed_at       TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	group_id    TEXT,
	persona_id  TEXT,
	content     TEXT NOT NULL,
	role        TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	response_to TEXT
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, created_at);
`

// DB wraps the embedded database handle
type DB struct {
	Conn *sql.DB
}

// NewDB opens (creating if needed) the database file and ensures the schema
func NewDB(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database file path is required")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{Conn: db}, nil
}

// Close closes the database handle
func (db *DB) Close() error {
	if db.Conn != nil {
		return db.Conn.Close()
	}
	return nil
}

// Ping verifies database connectivity
func (db *DB) Ping(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}
