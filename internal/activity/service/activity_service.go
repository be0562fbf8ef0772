package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"codejudge/internal/activity/analytics"
	"codejudge/internal/activity/repository"
	"codejudge/internal/common/cache"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/zeromicro/go-zero/core/mr"
	"go.uber.org/zap"
)

const (
	profileKeyPrefix       = "activity:profile:"
	defaultProfileTTL      = 10 * time.Minute
	defaultRecentSize      = 10
	defaultActivityTimeout = 3 * time.Second
)

// RecentSubmissionLister lists an account's newest submissions.
type RecentSubmissionLister interface {
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]model.Submission, error)
}

// ProblemCounter tallies published problems per difficulty.
type ProblemCounter interface {
	CountByDifficulty(ctx context.Context) (map[model.Difficulty]int, error)
}

// Config holds activity service dependencies.
type Config struct {
	Activity    repository.ActivityRepository
	Submissions RecentSubmissionLister
	Problems    ProblemCounter
	// Cache is optional. Without it every profile read recomputes.
	Cache      cache.Cache
	ProfileTTL time.Duration
	DBTimeout  time.Duration
	Now        func() time.Time
}

// ActivityService serves the account profile, stats and recent submissions.
type ActivityService struct {
	activity    repository.ActivityRepository
	submissions RecentSubmissionLister
	problems    ProblemCounter
	cache       cache.Cache
	profileTTL  time.Duration
	dbTimeout   time.Duration
	now         func() time.Time
}

// DifficultyTally counts problems per difficulty.
type DifficultyTally struct {
	All    int `json:"all"`
	School int `json:"school"`
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// Stats compares solved problems against the published catalogue.
type Stats struct {
	Solved     DifficultyTally `json:"solved"`
	Total      DifficultyTally `json:"total"`
	ByTag      map[string]int  `json:"solved_by_tag"`
	ByLanguage map[string]int  `json:"accepted_by_language"`
}

func NewActivityService(cfg Config) (*ActivityService, error) {
	if cfg.Activity == nil {
		return nil, fmt.Errorf("activity repository is required")
	}
	if cfg.Submissions == nil {
		return nil, fmt.Errorf("submission lister is required")
	}
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem counter is required")
	}
	if cfg.ProfileTTL <= 0 {
		cfg.ProfileTTL = defaultProfileTTL
	}
	if cfg.DBTimeout <= 0 {
		cfg.DBTimeout = defaultActivityTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ActivityService{
		activity:    cfg.Activity,
		submissions: cfg.Submissions,
		problems:    cfg.Problems,
		cache:       cfg.Cache,
		profileTTL:  cfg.ProfileTTL,
		dbTimeout:   cfg.DBTimeout,
		now:         cfg.Now,
	}, nil
}

// Profile returns the streaks and heatmap of an account, raising the stored max streak when it grew.
func (s *ActivityService) Profile(ctx context.Context, accountID int64) (*analytics.Profile, error) {
	if accountID <= 0 {
		return nil, appErr.New(appErr.Unauthorized).WithMessage("account is required")
	}
	if s.cache == nil {
		return s.computeProfile(ctx, accountID)
	}
	return cache.GetWithCached(ctx, s.cache, ProfileKey(accountID), cache.JitterTTL(s.profileTTL), s.profileTTL,
		func(p *analytics.Profile) bool { return p == nil },
		marshalProfile,
		unmarshalProfile,
		func(ctx context.Context) (*analytics.Profile, error) { return s.computeProfile(ctx, accountID) },
	)
}

func (s *ActivityService) computeProfile(ctx context.Context, accountID int64) (*analytics.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	now := s.now()
	var (
		dates     []time.Time
		maxStreak int
	)
	err := mr.Finish(func() error {
		var err error
		dates, err = s.activity.SubmissionDates(ctx, accountID, analytics.WindowStart(now))
		return err
	}, func() error {
		var err error
		maxStreak, err = s.activity.MaxStreak(ctx, accountID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, appErr.New(appErr.AccountNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.ProfileUnavailable, "load activity failed")
	}

	profile := analytics.ComputeProfile(now, dates, maxStreak)
	if profile.MaxStreakChanged {
		if _, err := s.activity.RaiseMaxStreak(ctx, accountID, profile.MaxStreak); err != nil {
			return nil, appErr.Wrapf(err, appErr.StreakUpdateFailed, "persist max streak failed")
		}
		logger.Info(ctx, "max streak raised", zap.Int64("account_id", accountID), zap.Int("max_streak", profile.MaxStreak))
	}
	return &profile, nil
}

// InvalidateProfile drops the cached profile of an account.
func (s *ActivityService) InvalidateProfile(ctx context.Context, accountID int64) {
	cache.Invalidate(ctx, s.cache, ProfileKey(accountID))
}

// Stats returns solved and total problem counts per difficulty, solved counts
// per tag and accepted submission counts per language.
func (s *ActivityService) Stats(ctx context.Context, accountID int64) (*Stats, error) {
	if accountID <= 0 {
		return nil, appErr.New(appErr.Unauthorized).WithMessage("account is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	var (
		solved, total     map[model.Difficulty]int
		byTag, byLanguage map[string]int
	)
	err := mr.Finish(func() error {
		var err error
		solved, err = s.activity.SolvedByDifficulty(ctx, accountID)
		return err
	}, func() error {
		var err error
		total, err = s.problems.CountByDifficulty(ctx)
		return err
	}, func() error {
		var err error
		byTag, err = s.activity.SolvedByTag(ctx, accountID)
		return err
	}, func() error {
		var err error
		byLanguage, err = s.activity.AcceptedByLanguage(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load stats failed")
	}
	return &Stats{
		Solved:     tally(solved),
		Total:      tally(total),
		ByTag:      nonNil(byTag),
		ByLanguage: nonNil(byLanguage),
	}, nil
}

// RecentSubmissions returns the account's newest submissions. A zero size means the default.
func (s *ActivityService) RecentSubmissions(ctx context.Context, accountID int64, size int) ([]model.Submission, error) {
	if accountID <= 0 {
		return nil, appErr.New(appErr.Unauthorized).WithMessage("account is required")
	}
	if size < 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("Invalid page size")
	}
	if size == 0 {
		size = defaultRecentSize
	}
	ctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	list, err := s.submissions.ListByAccount(ctx, accountID, size)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list recent submissions failed")
	}
	if list == nil {
		list = []model.Submission{}
	}
	return list, nil
}

// ProfileKey is the cache key of an account's profile.
func ProfileKey(accountID int64) string {
	return profileKeyPrefix + strconv.FormatInt(accountID, 10)
}

func tally(counts map[model.Difficulty]int) DifficultyTally {
	t := DifficultyTally{
		School: counts[model.DifficultySchool],
		Easy:   counts[model.DifficultyEasy],
		Medium: counts[model.DifficultyMedium],
		Hard:   counts[model.DifficultyHard],
	}
	t.All = t.School + t.Easy + t.Medium + t.Hard
	return t
}

func marshalProfile(p *analytics.Profile) string {
	raw, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(raw)
}

func unmarshalProfile(data string) (*analytics.Profile, error) {
	var p analytics.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// nonNil keeps empty tallies encoded as {} rather than null.
func nonNil(counts map[string]int) map[string]int {
	if counts == nil {
		return map[string]int{}
	}
	return counts
}
