package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
	"codejudge/internal/testutil"
)

type fakeRows struct {
	data [][]interface{}
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.data)
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	row := r.data[r.pos-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *int:
			*p = row[i].(int)
		case *string:
			*p = row[i].(string)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

func (r *fakeRows) Close() error { return nil }
func (r *fakeRows) Err() error   { return nil }

type fakeRow struct {
	value int
	err   error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int) = r.value
	return nil
}

type fakeResult struct{ affected int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

type fakeDB struct {
	rows      [][]interface{}
	row       fakeRow
	affected  int64
	lastQuery string
	lastArgs  []interface{}
}

func (f *fakeDB) Query(_ context.Context, query string, args ...interface{}) (db.Rows, error) {
	f.lastQuery, f.lastArgs = query, args
	return &fakeRows{data: f.rows}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, query string, args ...interface{}) db.Row {
	f.lastQuery, f.lastArgs = query, args
	return f.row
}

func (f *fakeDB) Exec(_ context.Context, query string, args ...interface{}) (db.Result, error) {
	f.lastQuery, f.lastArgs = query, args
	return fakeResult{affected: f.affected}, nil
}

func (f *fakeDB) Transaction(_ context.Context, fn func(tx db.Transaction) error) error {
	return fn(nil)
}

func (f *fakeDB) Ping(context.Context) error { return nil }
func (f *fakeDB) Close() error               { return nil }

func TestSubmissionDates(t *testing.T) {
	d1 := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	d2 := d1.Add(-time.Hour)
	fdb := &fakeDB{rows: [][]interface{}{{d1}, {d2}}}
	repo := NewActivityRepository(fdb)

	since := d1.AddDate(0, 0, -168)
	dates, err := repo.SubmissionDates(context.Background(), 7, since)
	if err != nil {
		t.Fatalf("SubmissionDates failed: %v", err)
	}
	testutil.AssertEqual(t, dates, []time.Time{d1, d2})
	testutil.AssertTrue(t, strings.Contains(fdb.lastQuery, "ORDER BY date DESC"), "dates must be newest first")
	testutil.AssertEqual(t, fdb.lastArgs, []interface{}{int64(7), since})
}

func TestSolvedByDifficulty(t *testing.T) {
	fdb := &fakeDB{rows: [][]interface{}{{1, 4}, {3, 1}}}
	counts, err := NewActivityRepository(fdb).SolvedByDifficulty(context.Background(), 7)
	if err != nil {
		t.Fatalf("SolvedByDifficulty failed: %v", err)
	}
	testutil.AssertEqual(t, counts, map[model.Difficulty]int{model.DifficultyEasy: 4, model.DifficultyHard: 1})
}

func TestSolvedByTag(t *testing.T) {
	fdb := &fakeDB{rows: [][]interface{}{{"math", 3}, {"strings", 1}}}
	counts, err := NewActivityRepository(fdb).SolvedByTag(context.Background(), 7)
	if err != nil {
		t.Fatalf("SolvedByTag failed: %v", err)
	}
	testutil.AssertEqual(t, counts, map[string]int{"math": 3, "strings": 1})
	testutil.AssertTrue(t, strings.Contains(fdb.lastQuery, "GROUP BY t.name"), "grouped by tag name")
	testutil.AssertEqual(t, fdb.lastArgs, []interface{}{int64(7)})
}

func TestAcceptedByLanguage(t *testing.T) {
	fdb := &fakeDB{rows: [][]interface{}{{"python3", 5}, {"cpp", 2}}}
	counts, err := NewActivityRepository(fdb).AcceptedByLanguage(context.Background(), 7)
	if err != nil {
		t.Fatalf("AcceptedByLanguage failed: %v", err)
	}
	testutil.AssertEqual(t, counts, map[string]int{"python3": 5, "cpp": 2})
	testutil.AssertTrue(t, strings.Contains(fdb.lastQuery, "s.status = ?"), "only accepted submissions count")
	testutil.AssertEqual(t, fdb.lastArgs, []interface{}{int64(7), int(model.VerdictAccepted)})
}

func TestMaxStreak(t *testing.T) {
	fdb := &fakeDB{row: fakeRow{value: 9}}
	repo := NewActivityRepository(fdb)
	streak, err := repo.MaxStreak(context.Background(), 7)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, streak, 9)

	fdb.row = fakeRow{err: sql.ErrNoRows}
	_, err = repo.MaxStreak(context.Background(), 7)
	testutil.AssertTrue(t, errors.Is(err, ErrAccountNotFound), "missing account maps to sentinel")
}

func TestRaiseMaxStreakIsConditional(t *testing.T) {
	fdb := &fakeDB{affected: 1}
	repo := NewActivityRepository(fdb)

	raised, err := repo.RaiseMaxStreak(context.Background(), 7, 4)
	testutil.AssertNil(t, err)
	testutil.AssertTrue(t, raised, "update applied")
	testutil.AssertTrue(t, strings.Contains(fdb.lastQuery, "max_streak < ?"), "update must be conditional")
	testutil.AssertEqual(t, fdb.lastArgs, []interface{}{4, int64(7), 4})

	fdb.affected = 0
	raised, err = repo.RaiseMaxStreak(context.Background(), 7, 4)
	testutil.AssertNil(t, err)
	testutil.AssertFalse(t, raised, "stored value was not lower")
}
