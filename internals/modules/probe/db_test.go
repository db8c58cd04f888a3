package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows embeds pgx.Rows so only the methods the prober calls need bodies.
type fakeRows struct {
	pgx.Rows
	n   int
	err error
}

func (r *fakeRows) Next() bool {
	if r.n == 0 {
		return false
	}
	r.n--
	return true
}
func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return r.err }

type fakeTx struct {
	pgx.Tx
	execErr    error
	committed  bool
	rolledBack int
	execSQL    string
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.execSQL = sql
	return pgconn.NewCommandTag("INSERT 0 1"), tx.execErr
}
func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.committed = true
	return nil
}
func (tx *fakeTx) Rollback(ctx context.Context) error {
	tx.rolledBack++
	return nil
}

type fakePool struct {
	rows     int
	queryErr error
	rowsErr  error
	block    bool
	tx       *fakeTx
}

func (p *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return &fakeRows{n: p.rows, err: p.rowsErr}, nil
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	return p.tx, nil
}

func TestDBProber_Success(t *testing.T) {
	p := NewDBProber(&fakePool{rows: 4})

	r := p.Run(context.Background(), Target{Group: GroupDB, Name: "clients", Query: "SELECT id FROM clients LIMIT 5", Critical: true}, time.Second)

	assert.True(t, r.Succeeded)
	require.NotNil(t, r.LatencyMs)
	require.NotNil(t, r.Rows)
	assert.Equal(t, 4, *r.Rows)
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, "SELECT id FROM clients LIMIT 5", r.Target)
}

func TestDBProber_QueryError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01", Message: `relation "clientz" does not exist`}
	p := NewDBProber(&fakePool{queryErr: pgErr})

	r := p.Run(context.Background(), Target{Group: GroupDB, Name: "clients", Query: "SELECT 1 FROM clientz"}, time.Second)

	assert.False(t, r.Succeeded)
	assert.Nil(t, r.LatencyMs)
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, "DB_ERROR:42P01", r.Reason)
}

func TestDBProber_RowsError(t *testing.T) {
	p := NewDBProber(&fakePool{rows: 1, rowsErr: errors.New("conn reset")})

	r := p.Run(context.Background(), Target{Group: GroupDB, Name: "leads", Query: "SELECT * FROM leads"}, time.Second)

	assert.False(t, r.Succeeded)
	assert.Nil(t, r.LatencyMs)
}

func TestDBProber_EnforcesTimeout(t *testing.T) {
	p := NewDBProber(&fakePool{block: true})

	start := time.Now()
	r := p.Run(context.Background(), Target{Group: GroupDB, Name: "slow", Query: "SELECT pg_sleep(60)"}, 50*time.Millisecond)

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, r.Succeeded)
	assert.Equal(t, ReasonTimeout, r.Reason)
}

func TestDBProber_NoPool(t *testing.T) {
	p := NewDBProber(nil)
	r := p.Run(context.Background(), Target{Group: GroupDB, Name: "x", Query: "SELECT 1"}, time.Second)
	assert.False(t, r.Succeeded)
}

func TestDBProber_RollbackNeverCommits(t *testing.T) {
	tx := &fakeTx{}
	p := NewDBProber(&fakePool{tx: tx})

	r := p.RunRollback(context.Background(), "INSERT INTO monitoring_probe(note) VALUES ('probe')", time.Second)

	assert.True(t, r.Succeeded)
	assert.False(t, tx.committed)
	assert.Equal(t, 1, tx.rolledBack)
	assert.Contains(t, tx.execSQL, "monitoring_probe")
}

func TestDBProber_RollbackOnExecError(t *testing.T) {
	tx := &fakeTx{execErr: &pgconn.PgError{Code: "23505"}}
	p := NewDBProber(&fakePool{tx: tx})

	r := p.RunRollback(context.Background(), "INSERT INTO monitoring_probe(id) VALUES (1)", time.Second)

	assert.False(t, r.Succeeded)
	assert.Equal(t, "DB_ERROR:23505", r.Reason)
	assert.False(t, tx.committed)
	assert.Equal(t, 1, tx.rolledBack)
}

func TestCheckResources(t *testing.T) {
	now := time.Now()

	ok := CheckResources(SystemMetrics{HeapUsedMb: 50, HeapTotalMb: 100}, 0.9, now)
	assert.True(t, ok.Succeeded)

	hot := CheckResources(SystemMetrics{HeapUsedMb: 95, HeapTotalMb: 100}, 0.9, now)
	assert.False(t, hot.Succeeded)
	assert.Nil(t, hot.LatencyMs)
	assert.Equal(t, ReasonHeapPressure, hot.Reason)
	assert.False(t, hot.Critical)
}

func TestRuntimeSampler(t *testing.T) {
	m := NewRuntimeSampler().Sample()
	assert.Greater(t, m.HeapTotalMb, 0.0)
	assert.GreaterOrEqual(t, m.HeapTotalMb, m.HeapUsedMb)
	assert.GreaterOrEqual(t, m.UptimeSeconds, 0.0)
}
