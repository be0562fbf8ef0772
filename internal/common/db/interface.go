package db

import (
	"context"
	"time"
)

// Database is the connection-pool level handle shared by repositories.
type Database interface {
	Querier
	Transaction(ctx context.Context, fn func(tx Transaction) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Transaction is a Querier bound to one database transaction.
type Transaction interface {
	Querier
	Commit() error
	Rollback() error
}

// Rows iterates over a query result.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is the result of QueryRow.
type Row interface {
	Scan(dest ...interface{}) error
}

// Scanner is satisfied by both Row and Rows.
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Result summarizes an executed statement.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// PoolConfig is the yaml shape of the connection pool settings.
type PoolConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
	SlowQuery       time.Duration `yaml:"slowQuery"`
}

// MySQLConfig converts the yaml shape into a MySQLConfig.
func (c PoolConfig) MySQLConfig() *MySQLConfig {
	return &MySQLConfig{
		DSN:                c.DSN,
		MaxOpenConnections: c.MaxOpenConns,
		MaxIdleConnections: c.MaxIdleConns,
		ConnMaxLifetime:    c.ConnMaxLifetime,
		ConnMaxIdleTime:    c.ConnMaxIdleTime,
		SlowQueryThreshold: c.SlowQuery,
	}
}
