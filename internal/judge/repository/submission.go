package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
)

const (
	defaultSubmissionCacheTTL      = 30 * time.Minute
	defaultSubmissionCacheEmptyTTL = 5 * time.Minute
	submissionCacheKeyPrefix       = "judge:submission:"
	defaultListLimit               = 50
	maxListLimit                   = 200
)

var ErrSubmissionNotFound = errors.New("submission not found")

// SubmissionRepository persists submissions. Submissions are never updated after Create.
type SubmissionRepository interface {
	Create(ctx context.Context, tx db.Transaction, submission *model.Submission) error
	GetByPublicID(ctx context.Context, publicID string) (*model.Submission, error)
	ListByProblem(ctx context.Context, problemID int64, limit int) ([]model.Submission, error)
}

// MySQLSubmissionRepository implements SubmissionRepository with MySQL.
type MySQLSubmissionRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewSubmissionRepository creates a submission repository. cacheClient may be nil.
func NewSubmissionRepository(database db.Database, cacheClient cache.Cache) *MySQLSubmissionRepository {
	return &MySQLSubmissionRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      defaultSubmissionCacheTTL,
		emptyTTL: defaultSubmissionCacheEmptyTTL,
	}
}

const submissionSelect = `
	SELECT s.id, s.public_id, s.problem_id, p.public_id, p.name, s.account_id, s.status, s.code,
		s.language_id, l.name, s.time, s.memory, s.date, s.time_percent, s.memory_percent,
		s.error_string, s.reject_details, s.source_key
	FROM submissions s
	JOIN problems p ON p.id = s.problem_id
	JOIN languages l ON l.id = s.language_id
`

// Create inserts a submission and sets its ID.
func (r *MySQLSubmissionRepository) Create(ctx context.Context, tx db.Transaction, submission *model.Submission) error {
	if submission == nil {
		return errors.New("submission is nil")
	}
	if submission.PublicID == "" {
		return errors.New("publicID is required")
	}
	if submission.ProblemID <= 0 {
		return errors.New("problemID is required")
	}
	if submission.AccountID <= 0 {
		return errors.New("accountID is required")
	}
	if submission.LanguageID <= 0 {
		return errors.New("languageID is required")
	}

	var rejectDetails sql.NullString
	if submission.RejectDetails != nil {
		raw, err := json.Marshal(submission.RejectDetails)
		if err != nil {
			return err
		}
		rejectDetails = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO submissions
		(public_id, problem_id, account_id, status, code, language_id, time, memory, date,
		 time_percent, memory_percent, error_string, reject_details, source_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		submission.PublicID,
		submission.ProblemID,
		submission.AccountID,
		int(submission.Status),
		submission.Code,
		submission.LanguageID,
		submission.Time,
		submission.Memory,
		submission.Date.UTC(),
		submission.TimePercent,
		submission.MemoryPercent,
		submission.ErrorString,
		rejectDetails,
		submission.SourceKey,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		submission.ID = id
	}
	return nil
}

// GetByPublicID retrieves a submission, reading through the cache when one is configured.
func (r *MySQLSubmissionRepository) GetByPublicID(ctx context.Context, publicID string) (*model.Submission, error) {
	if publicID == "" {
		return nil, errors.New("publicID is required")
	}
	if r.cache == nil {
		return r.getFromDB(ctx, publicID)
	}
	submission, err := cache.GetWithCached[*model.Submission](
		ctx,
		r.cache,
		submissionCacheKeyPrefix+publicID,
		cache.JitterTTL(r.ttl),
		cache.JitterTTL(r.emptyTTL),
		func(s *model.Submission) bool { return s == nil },
		marshalSubmission,
		unmarshalSubmission,
		func(ctx context.Context) (*model.Submission, error) {
			s, err := r.getFromDB(ctx, publicID)
			if errors.Is(err, ErrSubmissionNotFound) {
				return nil, nil
			}
			return s, err
		},
	)
	if err != nil {
		return nil, err
	}
	if submission == nil {
		return nil, ErrSubmissionNotFound
	}
	return submission, nil
}

func (r *MySQLSubmissionRepository) getFromDB(ctx context.Context, publicID string) (*model.Submission, error) {
	row := r.db.QueryRow(ctx, submissionSelect+" WHERE s.public_id = ?", publicID)
	submission, err := scanSubmission(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

// ListByProblem returns the newest submissions of a problem.
func (r *MySQLSubmissionRepository) ListByProblem(ctx context.Context, problemID int64, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return r.list(ctx, submissionSelect+" WHERE s.problem_id = ? ORDER BY s.date DESC, s.id DESC LIMIT ?", problemID, limit)
}

// ListByAccount returns the newest submissions of an account.
func (r *MySQLSubmissionRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return r.list(ctx, submissionSelect+" WHERE s.account_id = ? ORDER BY s.date DESC, s.id DESC LIMIT ?", accountID, limit)
}

func (r *MySQLSubmissionRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Submission, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSubmission(row db.Scanner) (*model.Submission, error) {
	var (
		s             model.Submission
		status        int
		rejectDetails sql.NullString
	)
	if err := row.Scan(
		&s.ID, &s.PublicID, &s.ProblemID, &s.ProblemPublic, &s.ProblemName, &s.AccountID, &status, &s.Code,
		&s.LanguageID, &s.Language, &s.Time, &s.Memory, &s.Date, &s.TimePercent, &s.MemoryPercent,
		&s.ErrorString, &rejectDetails, &s.SourceKey,
	); err != nil {
		return nil, err
	}
	s.Status = model.Verdict(status)
	if rejectDetails.Valid && rejectDetails.String != "" {
		var details model.RejectDetails
		if err := json.Unmarshal([]byte(rejectDetails.String), &details); err != nil {
			return nil, err
		}
		s.RejectDetails = &details
	}
	return &s, nil
}

func marshalSubmission(s *model.Submission) string {
	raw, err := json.Marshal(cachedSubmission{Submission: s, ID: s.ID, ProblemID: s.ProblemID, LanguageID: s.LanguageID, SourceKey: s.SourceKey})
	if err != nil {
		return ""
	}
	return string(raw)
}

func unmarshalSubmission(data string) (*model.Submission, error) {
	var c cachedSubmission
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, err
	}
	if c.Submission == nil {
		return nil, errors.New("empty cached submission")
	}
	c.Submission.ID = c.ID
	c.Submission.ProblemID = c.ProblemID
	c.Submission.LanguageID = c.LanguageID
	c.Submission.SourceKey = c.SourceKey
	return c.Submission, nil
}

// cachedSubmission carries the fields hidden from the API representation.
type cachedSubmission struct {
	*model.Submission
	ID         int64  `json:"internal_id"`
	ProblemID  int64  `json:"internal_problem_id"`
	LanguageID int64  `json:"internal_language_id"`
	SourceKey  string `json:"source_key"`
}
