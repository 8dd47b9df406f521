package export

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"logexport/internal/accesslog"
	"logexport/internal/db"
)

// DBSink mirrors an export run into SQLite inside a single transaction.
// Rows are keyed by the stored line text: a line already present is
// ignored, whatever its source file, so re-running an export does not
// duplicate rows. Identical lines collapse into one row, and so do lines
// that only differed in a client address the IP policy rewrote.
type DBSink struct {
	path      string
	db        *sql.DB
	tx        *sql.Tx
	stmt      *sql.Stmt
	runID     string
	total     int64
	inserted  int64
	committed bool
}

// OpenDBSink opens the database at path and starts the run's transaction.
func OpenDBSink(path, runID, input string, started time.Time) (*DBSink, error) {
	sqldb, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}
	tx, err := sqldb.Begin()
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	if _, err := tx.Exec(`INSERT INTO export_runs (run_id, input, started_at) VALUES (?, ?, ?)`, runID, input, started.Unix()); err != nil {
		_ = tx.Rollback()
		_ = sqldb.Close()
		return nil, err
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO records (run_id, source, remote_addr, remote_user, time_local, request, status, body_bytes_sent, http_referer, http_user_agent, raw_line)
                             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		_ = sqldb.Close()
		return nil, err
	}
	return &DBSink{path: path, db: sqldb, tx: tx, stmt: stmt, runID: runID}, nil
}

// WriteRecord stores a parsed line.
func (s *DBSink) WriteRecord(source, raw string, rec accesslog.Record) error {
	return s.exec(s.runID, source, rec.RemoteAddr, rec.RemoteUser, rec.TimeLocal, rec.Request, rec.Status, rec.BodyBytesSent, rec.HTTPReferer, rec.HTTPUserAgent, raw)
}

// WriteRejected stores a line that did not parse, with NULL fields.
func (s *DBSink) WriteRejected(source, raw string) error {
	return s.exec(s.runID, source, nil, nil, nil, nil, nil, nil, nil, nil, raw)
}

func (s *DBSink) exec(args ...interface{}) error {
	res, err := s.stmt.Exec(args...)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	s.total++
	if ra, _ := res.RowsAffected(); ra > 0 {
		s.inserted += ra
	}
	return nil
}

// Commit records the run totals and commits everything written so far.
func (s *DBSink) Commit(st Stats, finished time.Time) error {
	if _, err := s.tx.Exec(`UPDATE export_runs SET finished_at = ?, files = ?, parsed = ?, rejected = ? WHERE run_id = ?`,
		finished.Unix(), len(st.Files), st.Parsed, st.Rejected, s.runID); err != nil {
		return err
	}
	if err := s.stmt.Close(); err != nil {
		return err
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", s.path, err)
	}
	s.committed = true
	return nil
}

// Counts returns the number of lines offered and actually inserted.
func (s *DBSink) Counts() (total, inserted int64) { return s.total, s.inserted }

// Close rolls back an uncommitted run and closes the database.
func (s *DBSink) Close() error {
	var err error
	if !s.committed {
		err = multierr.Append(s.stmt.Close(), s.tx.Rollback())
	}
	return multierr.Append(err, s.db.Close())
}
