package sqlstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS identities (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	name              TEXT NOT NULL,
	address           TEXT NOT NULL UNIQUE,
	session_keys_blob BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS contacts (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	local_address        TEXT NOT NULL,
	public_key           BLOB NOT NULL,
	name                 TEXT NOT NULL,
	signed_prekey_pub    BLOB NOT NULL,
	address_signing_pub  BLOB NOT NULL,
	address              TEXT NOT NULL,
	last_fetched_at      INTEGER NOT NULL DEFAULT 0,
	UNIQUE(local_address, address)
);

CREATE TABLE IF NOT EXISTS clients (
	identity_id             INTEGER NOT NULL REFERENCES identities(id),
	contact_id              INTEGER NOT NULL REFERENCES contacts(id),
	session_blob            BLOB NOT NULL,
	latest_message_timestamp INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (identity_id, contact_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	identity_id   INTEGER NOT NULL REFERENCES identities(id),
	contact_id    INTEGER NOT NULL REFERENCES contacts(id),
	content       BLOB NOT NULL,
	outbound_flag INTEGER NOT NULL,
	timestamp     INTEGER NOT NULL
);
`

// DB wraps a sqlite connection opened against dbPath, with the
// schema above applied.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the sqlite database at dbPath
// and ensures the schema is present.
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
