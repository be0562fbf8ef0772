package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/internal/judge/boilerplate"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	problemRepo "codejudge/internal/problem/repository"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPollInterval    = 2 * time.Second
	defaultMaxPollAttempts = 60
	defaultMaxConcurrent   = 32
	defaultSlotWait        = 2 * time.Second

	// Reported as-is on every submission.
	TimePercent   = 93.5
	MemoryPercent = 98.3
)

// ExecutionBackend runs program batches. judge0.Client is the production implementation.
type ExecutionBackend interface {
	SubmitBatch(ctx context.Context, programs []string, languageID int) ([]string, error)
	PollBatch(ctx context.Context, tokens []string) ([]model.ExecutionResult, error)
}

// ProblemReader loads a problem together with its testcases.
type ProblemReader interface {
	GetByPublicID(ctx context.Context, publicID string) (*model.Problem, error)
}

// LanguageReader resolves a language by public id.
type LanguageReader interface {
	GetLanguage(ctx context.Context, publicID string) (*model.Language, error)
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx db.Transaction) error) error
}

// RateLimitConfig holds submit throttling settings.
type RateLimitConfig struct {
	AccountMax int
	IPMax      int
	Window     time.Duration
}

// TimeoutConfig holds timeouts for calls to collaborators.
type TimeoutConfig struct {
	DB      time.Duration
	Cache   time.Duration
	MQ      time.Duration
	Storage time.Duration
}

// Config holds judge service dependencies and settings.
type Config struct {
	Backend     ExecutionBackend
	Problems    ProblemReader
	Languages   LanguageReader
	Submissions repository.SubmissionRepository
	Solved      repository.SolvedRepository
	Tx          Transactor

	// Optional collaborators.
	Archive repository.SourceArchive
	Events  repository.JudgedEventPublisher
	Cache   cache.Cache

	PollInterval    time.Duration
	MaxPollAttempts int
	MaxConcurrent   int
	MaxCodeBytes    int
	IdempotencyTTL  time.Duration
	RateLimit       RateLimitConfig
	Timeouts        TimeoutConfig

	Now func() time.Time
}

// JudgeService drives run and submit requests through build, dispatch, poll and classify.
type JudgeService struct {
	backend     ExecutionBackend
	problems    ProblemReader
	languages   LanguageReader
	submissions repository.SubmissionRepository
	solved      repository.SolvedRepository
	tx          Transactor
	archive     repository.SourceArchive
	events      repository.JudgedEventPublisher
	cache       cache.Cache

	pollInterval    time.Duration
	maxPollAttempts int
	maxCodeBytes    int
	idempotencyTTL  time.Duration
	rateLimit       RateLimitConfig
	timeouts        TimeoutConfig
	sem             chan struct{}
	now             func() time.Time
}

// RunInput describes a run request against the sample testcases.
type RunInput struct {
	ProblemID  string
	LanguageID string
	Code       string
	AccountID  int64
}

// SubmitInput describes a submit request against every testcase.
type SubmitInput struct {
	ProblemID      string
	LanguageID     string
	Code           string
	AccountID      int64
	IdempotencyKey string
	ClientIP       string
}

// RunResult is returned by Run. Nothing of it is persisted.
type RunResult struct {
	Status        model.Verdict          `json:"status"`
	ErrorString   string                 `json:"error_string,omitempty"`
	RejectDetails *model.RejectDetails   `json:"details,omitempty"`
	Submissions   []model.ExecutionResult `json:"submissions"`
}

// NewJudgeService creates a new judge service.
func NewJudgeService(cfg Config) (*JudgeService, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("execution backend is required")
	}
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem reader is required")
	}
	if cfg.Languages == nil {
		return nil, fmt.Errorf("language reader is required")
	}
	if cfg.Submissions == nil {
		return nil, fmt.Errorf("submission repository is required")
	}
	if cfg.Solved == nil {
		return nil, fmt.Errorf("solved repository is required")
	}
	if cfg.Tx == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 10 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JudgeService{
		backend:         cfg.Backend,
		problems:        cfg.Problems,
		languages:       cfg.Languages,
		submissions:     cfg.Submissions,
		solved:          cfg.Solved,
		tx:              cfg.Tx,
		archive:         cfg.Archive,
		events:          cfg.Events,
		cache:           cfg.Cache,
		pollInterval:    cfg.PollInterval,
		maxPollAttempts: cfg.MaxPollAttempts,
		maxCodeBytes:    cfg.MaxCodeBytes,
		idempotencyTTL:  cfg.IdempotencyTTL,
		rateLimit:       cfg.RateLimit,
		timeouts:        cfg.Timeouts,
		sem:             make(chan struct{}, cfg.MaxConcurrent),
		now:             cfg.Now,
	}, nil
}

// Run executes code against the problem's sample testcases.
func (s *JudgeService) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	if err := s.acquireSlot(ctx); err != nil {
		return nil, err
	}
	defer s.releaseSlot()

	job, err := s.build(ctx, input.ProblemID, input.LanguageID, input.Code, true)
	if err != nil {
		return nil, err
	}
	results, err := s.execute(ctx, job)
	if err != nil {
		return nil, err
	}
	outcome := classify(job.testcases, results)
	for i := range outcome.results {
		outcome.results[i].Token = ""
	}
	logger.Info(ctx, "run judged",
		zap.String("problem_id", job.problem.PublicID),
		zap.String("language", job.language.Name),
		zap.String("verdict", outcome.verdict.String()),
		zap.Int("testcases", len(job.testcases)),
	)
	return &RunResult{
		Status:        outcome.verdict,
		ErrorString:   outcome.errorString,
		RejectDetails: outcome.reject,
		Submissions:   outcome.results,
	}, nil
}

// Submit executes code against every testcase and persists the verdict.
func (s *JudgeService) Submit(ctx context.Context, input SubmitInput) (*model.Submission, error) {
	if input.AccountID <= 0 {
		return nil, appErr.New(appErr.Unauthorized).WithMessage("account is required")
	}
	if err := s.checkRateLimit(ctx, input.AccountID, input.ClientIP); err != nil {
		return nil, err
	}
	cacheKey := idempotencyKey(input.AccountID, input.ProblemID, input.IdempotencyKey)
	acquired, existingID, err := s.acquireIdempotency(ctx, cacheKey)
	if err != nil {
		return nil, err
	}
	if !acquired && existingID != "" {
		return s.replay(ctx, existingID, input.AccountID)
	}

	submission, err := s.submit(ctx, input)
	if err != nil {
		s.releaseIdempotency(ctx, cacheKey, acquired)
		return nil, err
	}
	s.finalizeIdempotency(ctx, cacheKey, submission.PublicID, acquired)
	return submission, nil
}

// replay returns the submission an idempotency key already produced, only to its owner.
func (s *JudgeService) replay(ctx context.Context, submissionID string, accountID int64) (*model.Submission, error) {
	submission, err := s.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.AccountID != accountID {
		logger.Warn(ctx, "idempotency key owned by another account",
			zap.String("submission_id", submissionID),
			zap.Int64("account_id", accountID),
		)
		return nil, appErr.New(appErr.Forbidden).WithMessage("idempotency key belongs to another submission")
	}
	return submission, nil
}

func (s *JudgeService) submit(ctx context.Context, input SubmitInput) (*model.Submission, error) {
	if err := s.acquireSlot(ctx); err != nil {
		return nil, err
	}
	defer s.releaseSlot()

	job, err := s.build(ctx, input.ProblemID, input.LanguageID, input.Code, false)
	if err != nil {
		return nil, err
	}
	results, err := s.execute(ctx, job)
	if err != nil {
		return nil, err
	}
	outcome := classify(job.testcases, results)

	submission := &model.Submission{
		PublicID:      uuid.NewString(),
		ProblemID:     job.problem.ID,
		ProblemPublic: job.problem.PublicID,
		ProblemName:   job.problem.Name,
		AccountID:     input.AccountID,
		Status:        outcome.verdict,
		Code:          job.source,
		LanguageID:    job.language.ID,
		Language:      job.language.Name,
		Time:          outcome.avgTime,
		Memory:        outcome.avgMemory,
		Date:          s.now(),
		TimePercent:   TimePercent,
		MemoryPercent: MemoryPercent,
		ErrorString:   outcome.errorString,
		RejectDetails: outcome.reject,
	}
	submission.SourceKey = s.archiveSource(ctx, submission)

	solved, err := s.persist(ctx, submission)
	if err != nil {
		return nil, err
	}
	s.publishJudged(ctx, submission, solved)

	logger.Info(ctx, "submission judged",
		zap.String("submission_id", submission.PublicID),
		zap.String("problem_id", submission.ProblemPublic),
		zap.String("verdict", submission.Status.String()),
		zap.Float64("avg_time", submission.Time),
		zap.Float64("avg_memory", submission.Memory),
	)
	return submission, nil
}

// persist writes the submission and, on Accepted, the solved record in one transaction.
// It reports whether the account has the problem solved afterwards.
func (s *JudgeService) persist(ctx context.Context, submission *model.Submission) (bool, error) {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()

	accepted := submission.Status == model.VerdictAccepted
	err := s.tx.Transaction(ctxDB.ctx, func(tx db.Transaction) error {
		if err := s.submissions.Create(ctxDB.ctx, tx, submission); err != nil {
			return appErr.Wrapf(err, appErr.SubmissionCreateFailed, "create submission failed")
		}
		if !accepted {
			return nil
		}
		if _, err := s.solved.MarkSolved(ctxDB.ctx, tx, submission.AccountID, submission.ProblemID); err != nil {
			return appErr.Wrapf(err, appErr.DatabaseError, "record solved problem failed")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return accepted, nil
}

// GetSubmission returns one submission by public id.
func (s *JudgeService) GetSubmission(ctx context.Context, publicID string) (*model.Submission, error) {
	if strings.TrimSpace(publicID) == "" {
		return nil, appErr.ValidationError("submission_id", "required")
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	submission, err := s.submissions.GetByPublicID(ctxDB.ctx, publicID)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return nil, appErr.New(appErr.SubmissionNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "get submission failed")
	}
	return submission, nil
}

// ListSubmissions returns a problem's submissions, newest first.
func (s *JudgeService) ListSubmissions(ctx context.Context, problemID string, limit int) ([]model.Submission, error) {
	problem, err := s.loadProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	list, err := s.submissions.ListByProblem(ctxDB.ctx, problem.ID, limit)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list submissions failed")
	}
	return list, nil
}

// DefaultCode renders the starter stub of every profile for a problem.
func (s *JudgeService) DefaultCode(ctx context.Context, problemID string) (map[boilerplate.Profile]string, error) {
	problem, err := s.loadProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if len(problem.TestCases) == 0 {
		return nil, appErr.Newf(appErr.InvalidProblem, "problem %s has no testcases", problem.PublicID)
	}
	return boilerplate.DefaultCode(problem.Name, problem.TestCases[0].Inputs)
}

func (s *JudgeService) loadProblem(ctx context.Context, publicID string) (*model.Problem, error) {
	if strings.TrimSpace(publicID) == "" {
		return nil, appErr.New(appErr.InvalidProblem)
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	problem, err := s.problems.GetByPublicID(ctxDB.ctx, publicID)
	if err != nil {
		if errors.Is(err, problemRepo.ErrProblemNotFound) {
			return nil, appErr.New(appErr.InvalidProblem)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load problem failed")
	}
	return problem, nil
}

func (s *JudgeService) loadLanguage(ctx context.Context, publicID string) (*model.Language, error) {
	if strings.TrimSpace(publicID) == "" {
		return nil, appErr.New(appErr.InvalidLanguage)
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	language, err := s.languages.GetLanguage(ctxDB.ctx, publicID)
	if err != nil {
		if errors.Is(err, problemRepo.ErrLanguageNotFound) {
			return nil, appErr.New(appErr.InvalidLanguage)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load language failed")
	}
	return language, nil
}

func (s *JudgeService) archiveSource(ctx context.Context, submission *model.Submission) string {
	if s.archive == nil {
		return ""
	}
	ctxStorage := withTimeout(ctx, s.timeouts.Storage)
	defer ctxStorage.cancel()
	key, err := s.archive.Put(ctxStorage.ctx, submission.PublicID, submission.Code)
	if err != nil {
		logger.Warn(ctx, "archive source failed", zap.String("submission_id", submission.PublicID), zap.Error(err))
		return ""
	}
	return key
}

func (s *JudgeService) publishJudged(ctx context.Context, submission *model.Submission, solved bool) {
	if s.events == nil {
		return
	}
	ctxMQ := withTimeout(ctx, s.timeouts.MQ)
	defer ctxMQ.cancel()
	event := model.SubmissionJudgedEvent{
		SubmissionID: submission.PublicID,
		AccountID:    submission.AccountID,
		ProblemID:    submission.ProblemPublic,
		Status:       submission.Status,
		Solved:       solved,
		JudgedAt:     submission.Date,
	}
	if err := s.events.PublishJudged(ctxMQ.ctx, event); err != nil {
		logger.Warn(ctx, "publish judged event failed", zap.String("submission_id", submission.PublicID), zap.Error(err))
	}
}

type timeoutCtx struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func withTimeout(ctx context.Context, timeout time.Duration) timeoutCtx {
	if timeout <= 0 {
		return timeoutCtx{ctx: ctx, cancel: func() {}}
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	return timeoutCtx{ctx: ctxTimeout, cancel: cancel}
}
