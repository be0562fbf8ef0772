package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codejudge/pkg/utils/logger"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
	defaultPingTimeout     = 5 * time.Second

	// a deadlocked transaction is replayed once before the error surfaces
	maxTxAttempts = 2
)

// MySQLConfig holds the pool settings. Zero values take defaults.
type MySQLConfig struct {
	DSN                string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration

	// SlowQueryThreshold logs statements slower than this. Zero disables it.
	SlowQueryThreshold time.Duration
}

// MySQL implements Database on go-sql-driver/mysql.
type MySQL struct {
	pool *sql.DB
	sqlQuerier
}

// NewMySQL opens the pool and pings it. Submission and account rows scan into time.Time,
// so the DSN is forced to parseTime=true with UTC locations.
func NewMySQL(config *MySQLConfig) (*MySQL, error) {
	if config == nil {
		return nil, errors.New("mysql config is nil")
	}
	driverCfg, err := driverConfig(config.DSN)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(driverCfg)
	if err != nil {
		return nil, fmt.Errorf("create mysql connector failed: %w", err)
	}

	pool := sql.OpenDB(connector)
	pool.SetMaxOpenConns(orDefault(config.MaxOpenConnections, defaultMaxOpenConns))
	pool.SetMaxIdleConns(orDefault(config.MaxIdleConnections, defaultMaxIdleConns))
	pool.SetConnMaxLifetime(orDefaultDuration(config.ConnMaxLifetime, defaultConnMaxLifetime))
	pool.SetConnMaxIdleTime(orDefaultDuration(config.ConnMaxIdleTime, defaultConnMaxIdleTime))

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping mysql failed: %w", err)
	}

	return &MySQL{
		pool:       pool,
		sqlQuerier: sqlQuerier{conn: pool, slow: config.SlowQueryThreshold},
	}, nil
}

func driverConfig(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, errors.New("mysql dsn is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn failed: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// Transaction runs fn inside a transaction. fn may run twice when the first attempt deadlocks,
// so it must not have side effects outside tx.
func (m *MySQL) Transaction(ctx context.Context, fn func(tx Transaction) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = m.runTx(ctx, fn)
		if !IsDeadlock(err) || ctx.Err() != nil {
			return err
		}
		logger.Warn(ctx, "transaction deadlocked, retrying", zap.Int("attempt", attempt))
	}
	return err
}

func (m *MySQL) runTx(ctx context.Context, fn func(tx Transaction) error) error {
	sqlTx, err := m.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}
	tx := &MySQLTransaction{tx: sqlTx, sqlQuerier: sqlQuerier{conn: sqlTx, slow: m.slow}}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return tx.Commit()
}

func (m *MySQL) Ping(ctx context.Context) error {
	return m.pool.PingContext(ctx)
}

func (m *MySQL) Close() error {
	return m.pool.Close()
}

// MySQLTransaction is a Querier bound to one *sql.Tx.
type MySQLTransaction struct {
	tx *sql.Tx
	sqlQuerier
}

func (t *MySQLTransaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *MySQLTransaction) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// conn is the part of *sql.DB and *sql.Tx the wrappers need.
type conn interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sqlQuerier struct {
	conn conn
	slow time.Duration
}

func (q sqlQuerier) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	defer q.observe(ctx, query, time.Now())
	rows, err := q.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}

func (q sqlQuerier) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	defer q.observe(ctx, query, time.Now())
	return q.conn.QueryRowContext(ctx, query, args...)
}

func (q sqlQuerier) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	defer q.observe(ctx, query, time.Now())
	result, err := q.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec failed: %w", err)
	}
	return result, nil
}

func (q sqlQuerier) observe(ctx context.Context, query string, start time.Time) {
	if q.slow <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed >= q.slow {
		logger.Warn(ctx, "slow query", zap.Duration("elapsed", elapsed), zap.String("query", compact(query)))
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
