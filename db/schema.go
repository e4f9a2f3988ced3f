// ABOUTME: Cache database schema definitions
// ABOUTME: Snapshot payloads per collection plus sync state and sync run history
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	collection TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_state (
	service TEXT PRIMARY KEY,
	last_sync_time DATETIME,
	last_sync_id TEXT,
	status TEXT CHECK(status IN ('idle', 'syncing', 'error')),
	error_message TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_log (
	id TEXT PRIMARY KEY,
	service TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('success', 'error')),
	leads INTEGER NOT NULL DEFAULT 0,
	clients INTEGER NOT NULL DEFAULT 0,
	customers INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	synced_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_log_synced_at ON sync_log(synced_at DESC);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
