package repository

import (
	"context"
	"errors"

	"codejudge/internal/common/db"
)

// SolvedRepository records which problems an account has solved.
type SolvedRepository interface {
	// MarkSolved inserts the (account, problem) pair. It reports false when the pair already existed.
	MarkSolved(ctx context.Context, tx db.Transaction, accountID, problemID int64) (bool, error)
}

// MySQLSolvedRepository implements SolvedRepository on a table with UNIQUE(account_id, problem_id).
type MySQLSolvedRepository struct {
	db db.Database
}

func NewSolvedRepository(database db.Database) *MySQLSolvedRepository {
	return &MySQLSolvedRepository{db: database}
}

func (r *MySQLSolvedRepository) MarkSolved(ctx context.Context, tx db.Transaction, accountID, problemID int64) (bool, error) {
	if accountID <= 0 || problemID <= 0 {
		return false, errors.New("accountID and problemID are required")
	}
	_, err := db.GetQuerier(r.db, tx).Exec(ctx,
		"INSERT INTO account_solved_problems (account_id, problem_id) VALUES (?, ?)",
		accountID, problemID,
	)
	if err != nil {
		if _, dup := db.UniqueViolation(err); dup {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
