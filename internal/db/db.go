package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (and creates if missing) the SQLite database and applies migrations.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := sqldb.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;`); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	if err := migrate(sqldb); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return sqldb, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		// One row per exported line. Rejected lines keep only raw_line.
		`CREATE TABLE IF NOT EXISTS records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            run_id TEXT NOT NULL,
            source TEXT NOT NULL,
            remote_addr TEXT,
            remote_user TEXT,
            time_local TEXT,
            request TEXT,
            status TEXT,
            body_bytes_sent TEXT,
            http_referer TEXT,
            http_user_agent TEXT,
            raw_line TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_records_status ON records(status);`,
		`CREATE INDEX IF NOT EXISTS idx_records_source ON records(source);`,
		// The mirror deduplicates on the stored line text.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_records_raw ON records(raw_line);`,

		`CREATE TABLE IF NOT EXISTS export_runs (
            run_id TEXT PRIMARY KEY,
            input TEXT NOT NULL,
            started_at INTEGER NOT NULL,
            finished_at INTEGER,
            files INTEGER,
            parsed INTEGER,
            rejected INTEGER
        );`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
