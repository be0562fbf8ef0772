package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	errDuplicateEntry = 1062
	errLockDeadlock   = 1213

	maxLoggedQuery = 200
)

// Querier is implemented by both the pool and a transaction.
type Querier interface {
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) Row
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)
}

// GetQuerier returns tx when a repository call joins a caller's transaction.
func GetQuerier(database Database, tx Transaction) Querier {
	if tx != nil {
		return tx
	}
	return database
}

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// UniqueViolation reports a duplicate-key error and the name of the violated key.
func UniqueViolation(err error) (string, bool) {
	myErr, ok := mysqlError(err, errDuplicateEntry)
	if !ok {
		return "", false
	}
	return duplicateKeyName(myErr.Message), true
}

// IsDeadlock reports whether InnoDB rolled the transaction back to break a deadlock.
func IsDeadlock(err error) bool {
	_, ok := mysqlError(err, errLockDeadlock)
	return ok
}

func mysqlError(err error, number uint16) (*mysql.MySQLError, bool) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == number {
		return myErr, true
	}
	return nil, false
}

// duplicateKeyName extracts the key from "Duplicate entry 'x' for key 'table.key'".
func duplicateKeyName(message string) string {
	_, key, found := strings.Cut(message, "for key ")
	if !found {
		return ""
	}
	return strings.Trim(strings.TrimSpace(key), " `\"'")
}

// compact folds a statement onto one line for logging.
func compact(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if len(q) > maxLoggedQuery {
		q = q[:maxLoggedQuery] + "..."
	}
	return q
}
