package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columns(t *testing.T, sqldb *sql.DB, table string) []string {
	t.Helper()
	rows, err := sqldb.Query("PRAGMA table_info(" + table + ")")
	require.NoError(t, err)
	defer rows.Close()
	var out []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		require.NoError(t, rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk))
		out = append(out, name)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestOpenCreatesSchema(t *testing.T) {
	sqldb, err := Open(filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	defer sqldb.Close()

	assert.Contains(t, columns(t, sqldb, "records"), "http_user_agent")
	assert.Contains(t, columns(t, sqldb, "export_runs"), "rejected")

	var name string
	err = sqldb.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='uq_records_raw'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "uq_records_raw", name)
}

func TestOpenIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.db")
	sqldb, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, sqldb.Close())

	sqldb, err = Open(path)
	require.NoError(t, err)
	defer sqldb.Close()
}

func TestRawLineIsUnique(t *testing.T) {
	sqldb, err := Open(filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	defer sqldb.Close()

	_, err = sqldb.Exec(`INSERT INTO records (run_id, source, raw_line) VALUES ('r', 'access.log', 'same line')`)
	require.NoError(t, err)
	_, err = sqldb.Exec(`INSERT INTO records (run_id, source, raw_line) VALUES ('r', 'access.log.1', 'same line')`)
	assert.Error(t, err)
}
