package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const DefaultDBTimeout = 10 * time.Second

// Pool is the subset of *pgxpool.Pool the DB probes need.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DBProber runs read-only queries against the shared pool.
type DBProber struct {
	pool Pool
	now  func() time.Time
}

func NewDBProber(pool Pool) *DBProber {
	return &DBProber{
		pool: pool,
		now:  utcNow,
	}
}

// Run executes t.Query under its own timeout and counts the returned rows.
// The check succeeds iff the query completes without error.
func (p *DBProber) Run(ctx context.Context, t Target, timeout time.Duration) CheckResult {
	if p.pool == nil {
		return failed(t, ReasonNetworkError, errors.New("database pool not configured"), p.now())
	}
	if timeout <= 0 {
		timeout = DefaultDBTimeout
	}

	qCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(qCtx, t.Query)
	if err != nil {
		return failed(t, classifyError(err), err, p.now())
	}

	count := 0
	for rows.Next() {
		count++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return failed(t, classifyError(err), err, p.now())
	}
	latency := time.Since(start)

	return CheckResult{
		Name:      t.Name,
		Target:    t.ID(),
		Succeeded: true,
		LatencyMs: ms(latency),
		Status:    StatusOK,
		Critical:  t.Critical,
		Rows:      &count,
		Timestamp: p.now(),
	}
}

func RollbackTarget(statement string) Target {
	return Target{Group: GroupDB, Name: "Transaction rollback", Query: statement, Critical: false}
}

// RunRollback executes statement inside a transaction on one checked-out
// connection and always rolls it back. The transaction is never committed.
func (p *DBProber) RunRollback(ctx context.Context, statement string, timeout time.Duration) CheckResult {
	t := RollbackTarget(statement)
	if p.pool == nil {
		return failed(t, ReasonNetworkError, errors.New("database pool not configured"), p.now())
	}
	if timeout <= 0 {
		timeout = DefaultDBTimeout
	}

	txCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.Begin(txCtx)
	if err != nil {
		return failed(t, classifyError(err), err, p.now())
	}

	// releases the connection even if Exec panics or errors
	rolledBack := false
	defer func() {
		if !rolledBack {
			_ = tx.Rollback(context.Background())
		}
	}()

	if _, err := tx.Exec(txCtx, statement); err != nil {
		return failed(t, classifyError(err), fmt.Errorf("exec in tx: %w", err), p.now())
	}

	rolledBack = true
	if err := tx.Rollback(txCtx); err != nil {
		return failed(t, classifyError(err), fmt.Errorf("rollback: %w", err), p.now())
	}

	return CheckResult{
		Name:      t.Name,
		Target:    t.ID(),
		Succeeded: true,
		LatencyMs: ms(time.Since(start)),
		Status:    StatusOK,
		Critical:  t.Critical,
		Timestamp: p.now(),
	}
}
