package repository

import (
	"context"
	"errors"
	"time"

	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
)

var ErrAccountNotFound = errors.New("account not found")

// ActivityRepository reads the per-account history the activity views are built from.
type ActivityRepository interface {
	// SubmissionDates returns the account's submission dates since the given instant, newest first.
	SubmissionDates(ctx context.Context, accountID int64, since time.Time) ([]time.Time, error)
	SolvedByDifficulty(ctx context.Context, accountID int64) (map[model.Difficulty]int, error)
	// SolvedByTag counts solved problems per tag name. A problem with several tags counts once per tag.
	SolvedByTag(ctx context.Context, accountID int64) (map[string]int, error)
	// AcceptedByLanguage counts Accepted submissions per language public id.
	AcceptedByLanguage(ctx context.Context, accountID int64) (map[string]int, error)
	MaxStreak(ctx context.Context, accountID int64) (int, error)
	// RaiseMaxStreak stores streak only when it exceeds the stored value.
	RaiseMaxStreak(ctx context.Context, accountID int64, streak int) (bool, error)
}

type MySQLActivityRepository struct {
	db db.Database
}

func NewActivityRepository(database db.Database) *MySQLActivityRepository {
	return &MySQLActivityRepository{db: database}
}

func (r *MySQLActivityRepository) SubmissionDates(ctx context.Context, accountID int64, since time.Time) ([]time.Time, error) {
	rows, err := r.db.Query(ctx,
		"SELECT date FROM submissions WHERE account_id = ? AND date >= ? ORDER BY date DESC, id DESC",
		accountID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}

func (r *MySQLActivityRepository) SolvedByDifficulty(ctx context.Context, accountID int64) (map[model.Difficulty]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.difficulty, COUNT(*) FROM account_solved_problems s
		JOIN problems p ON p.id = s.problem_id
		WHERE s.account_id = ? GROUP BY p.difficulty`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Difficulty]int, len(model.Difficulties))
	for rows.Next() {
		var difficulty, count int
		if err := rows.Scan(&difficulty, &count); err != nil {
			return nil, err
		}
		counts[model.Difficulty(difficulty)] = count
	}
	return counts, rows.Err()
}

func (r *MySQLActivityRepository) SolvedByTag(ctx context.Context, accountID int64) (map[string]int, error) {
	return r.countBy(ctx,
		`SELECT t.name, COUNT(*) FROM account_solved_problems s
		JOIN problem_tags pt ON pt.problem_id = s.problem_id
		JOIN tags t ON t.id = pt.tag_id
		WHERE s.account_id = ? GROUP BY t.name`,
		accountID,
	)
}

func (r *MySQLActivityRepository) AcceptedByLanguage(ctx context.Context, accountID int64) (map[string]int, error) {
	return r.countBy(ctx,
		`SELECT l.public_id, COUNT(*) FROM submissions s
		JOIN languages l ON l.id = s.language_id
		WHERE s.account_id = ? AND s.status = ? GROUP BY l.public_id`,
		accountID, int(model.VerdictAccepted),
	)
}

// countBy scans (label, count) rows of a grouped query.
func (r *MySQLActivityRepository) countBy(ctx context.Context, query string, args ...interface{}) (map[string]int, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			label string
			count int
		)
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		counts[label] = count
	}
	return counts, rows.Err()
}

func (r *MySQLActivityRepository) MaxStreak(ctx context.Context, accountID int64) (int, error) {
	var streak int
	err := r.db.QueryRow(ctx, "SELECT max_streak FROM accounts WHERE id = ?", accountID).Scan(&streak)
	if err != nil {
		if db.IsNoRows(err) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return streak, nil
}

func (r *MySQLActivityRepository) RaiseMaxStreak(ctx context.Context, accountID int64, streak int) (bool, error) {
	result, err := r.db.Exec(ctx,
		"UPDATE accounts SET max_streak = ? WHERE id = ? AND max_streak < ?",
		streak, accountID, streak,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
