// Package cache persists harvested tag candidates and the downloaded-audio
// manifest in a local SQLite database. The cache is what makes harvesting
// restartable per level: a completed level can be replayed from disk without
// touching the network, and a truncated one re-run independently.
package cache

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const migrationsSQL = `
CREATE TABLE IF NOT EXISTS candidates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	level TEXT NOT NULL,
	term TEXT NOT NULL,
	reading TEXT NOT NULL DEFAULT '',
	raw_tags TEXT NOT NULL DEFAULT '',
	page INTEGER NOT NULL DEFAULT 0,
	UNIQUE(level, term, reading)
);

CREATE INDEX IF NOT EXISTS idx_candidates_level ON candidates(level);

CREATE TABLE IF NOT EXISTS levels (
	level TEXT PRIMARY KEY,
	pages_fetched INTEGER NOT NULL DEFAULT 0,
	completed INTEGER NOT NULL DEFAULT 0,
	truncated INTEGER NOT NULL DEFAULT 0,
	skipped_rows INTEGER NOT NULL DEFAULT 0,
	duplicates INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS audio_files (
	seq TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	downloaded_at TIMESTAMP
)`

// Open opens (creating if needed) the cache database and runs migrations.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// InitDB runs migrations on the given DB connection using the embedded SQL.
func InitDB(db *sql.DB) error {
	for _, s := range strings.Split(migrationsSQL, ";") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
