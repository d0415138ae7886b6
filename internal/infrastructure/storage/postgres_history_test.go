package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendingDigest/internal/domain"
)

func TestBuildUpsert(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, time.October, 14, 8, 30, 0, 0, time.UTC)
	projects := []domain.EnrichedProject{
		{Project: domain.Project{Name: "foo/bar", URL: "https://github.com/foo/bar", Description: "A sample tool"}, NameZH: "样例工具", DescZH: "一个示例工具", Comment: "可用于内部效率提升"},
		{Project: domain.Project{Name: "acme/widget", URL: "https://github.com/acme/widget"}, NameZH: "acme/widget", DescZH: "开源项目", Comment: "占位", Fallback: true},
	}

	query, args, err := buildUpsert(day, projects)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO trending_history (run_date,rank,name,url,description,name_zh,desc_zh,comment,fallback) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9),($10,"))
	assert.Contains(t, query, "ON CONFLICT (run_date, rank) DO UPDATE")
	require.Len(t, args, 18)
	assert.Equal(t, "2026-10-14", args[0])
	assert.Equal(t, 1, args[1])
	assert.Equal(t, "foo/bar", args[2])
	assert.Equal(t, 2, args[10])
	assert.Equal(t, true, args[17])
}

func TestSaveRunWithoutDatabaseIsNoop(t *testing.T) {
	t.Parallel()

	store := NewPostgresHistory(nil)
	assert.NoError(t, store.SaveRun(context.Background(), time.Now(), []domain.EnrichedProject{{}}))
	assert.NoError(t, store.Close())
}

func TestBuildPrune(t *testing.T) {
	t.Parallel()

	query, args, err := buildPrune(time.Date(2026, time.October, 14, 23, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM trending_history WHERE run_date = $1 AND rank > $2", query)
	assert.Equal(t, []any{"2026-10-14", 3}, args)
}

// recordingDriver logs statements and transaction boundaries per DSN.
type recordingDriver struct {
	mu     sync.Mutex
	events map[string][]string
	failOn map[string]string
}

func (d *recordingDriver) Open(dsn string) (driver.Conn, error) {
	return &recordingConn{driver: d, dsn: dsn}, nil
}

func (d *recordingDriver) record(dsn, event string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events[dsn] = append(d.events[dsn], event)
}

func (d *recordingDriver) log(dsn string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events[dsn]...)
}

type recordingConn struct {
	driver *recordingDriver
	dsn    string
}

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{conn: c, query: query}, nil
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) Begin() (driver.Tx, error) {
	c.driver.record(c.dsn, "begin")
	return &recordingTx{conn: c}, nil
}

type recordingTx struct {
	conn *recordingConn
}

func (t *recordingTx) Commit() error {
	t.conn.driver.record(t.conn.dsn, "commit")
	return nil
}

func (t *recordingTx) Rollback() error {
	t.conn.driver.record(t.conn.dsn, "rollback")
	return nil
}

type recordingStmt struct {
	conn  *recordingConn
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec([]driver.Value) (driver.Result, error) {
	verb := strings.Fields(s.query)[0]
	s.conn.driver.record(s.conn.dsn, verb)
	if prefix := s.conn.driver.failOn[s.conn.dsn]; prefix != "" && verb == prefix {
		return nil, errors.New("relation does not exist")
	}
	return driver.RowsAffected(1), nil
}

func (s *recordingStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("query not supported")
}

var historyDriver = &recordingDriver{
	events: map[string][]string{},
	failOn: map[string]string{"fail-upsert": "INSERT"},
}

func init() {
	sql.Register("recording-history", historyDriver)
}

func openRecording(t *testing.T, dsn string) *PostgresHistory {
	t.Helper()
	db, err := sql.Open("recording-history", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	store := NewPostgresHistory(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveRunPrunesThenUpsertsInOneTransaction(t *testing.T) {
	t.Parallel()

	store := openRecording(t, "ok")
	projects := []domain.EnrichedProject{
		{Project: domain.Project{Name: "foo/bar"}, NameZH: "样例", DescZH: "描述", Comment: "点评"},
	}

	require.NoError(t, store.SaveRun(context.Background(), time.Now(), projects))
	assert.Equal(t, []string{"begin", "DELETE", "INSERT", "commit"}, historyDriver.log("ok"))
}

func TestSaveRunRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	store := openRecording(t, "fail-upsert")
	projects := []domain.EnrichedProject{{Project: domain.Project{Name: "foo/bar"}}}

	err := store.SaveRun(context.Background(), time.Now(), projects)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert history")
	assert.Equal(t, []string{"begin", "DELETE", "INSERT", "rollback"}, historyDriver.log("fail-upsert"))
}
