package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"codejudge/internal/common/db"
	"codejudge/internal/judge/boilerplate"
	"codejudge/internal/judge/model"
	"codejudge/internal/problem/repository"
	pkgerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// LanguageLister lists the configured languages.
type LanguageLister interface {
	List(ctx context.Context) ([]model.Language, error)
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx db.Transaction) error) error
}

// Config holds problem service dependencies.
type Config struct {
	Problems  repository.ProblemRepository
	Languages LanguageLister
	Tx        Transactor
	Timeout   time.Duration
}

// ProblemService serves the problem catalogue.
type ProblemService struct {
	problems  repository.ProblemRepository
	languages LanguageLister
	tx        Transactor
	timeout   time.Duration
}

// LanguageView is the public shape of a language.
type LanguageView struct {
	PublicID string `json:"public_id"`
	Name     string `json:"name"`
}

// CodeStub is the starter code of one language.
type CodeStub struct {
	Language LanguageView `json:"language"`
	Value    string       `json:"value"`
}

// ProblemSummary is one entry of the catalogue listing.
type ProblemSummary struct {
	PublicID   string           `json:"public_id"`
	Name       string           `json:"name"`
	Difficulty model.Difficulty `json:"difficulty"`
	Likes      int64            `json:"likes"`
	Dislikes   int64            `json:"dislikes"`
	Tags       []string         `json:"tags"`
}

// ProblemDetail is a problem with its sample testcases and starter code.
type ProblemDetail struct {
	ProblemSummary
	Description string           `json:"description"`
	Constraints string           `json:"constraints"`
	TestCases   []model.TestCase `json:"testcases"`
	Codes       []CodeStub       `json:"codes"`
}

// CreateInput describes a new problem.
type CreateInput struct {
	Name        string
	Difficulty  model.Difficulty
	Description string
	Constraints string
	Tags        []string
	TestCases   []model.TestCase
	Published   bool
}

// CreateResult is returned by Create.
type CreateResult struct {
	PublicID string     `json:"id"`
	Codes    []CodeStub `json:"codes"`
}

// NewProblemService creates a new ProblemService.
func NewProblemService(cfg Config) (*ProblemService, error) {
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.Languages == nil {
		return nil, fmt.Errorf("language lister is required")
	}
	if cfg.Tx == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	return &ProblemService{problems: cfg.Problems, languages: cfg.Languages, tx: cfg.Tx, timeout: cfg.Timeout}, nil
}

// List returns published problems matching filter.
func (s *ProblemService) List(ctx context.Context, filter repository.ListFilter) ([]ProblemSummary, error) {
	if filter.Difficulty != nil && !filter.Difficulty.Valid() {
		return nil, pkgerrors.ValidationError("difficulty", "unknown difficulty")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	problems, err := s.problems.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("list problems failed: %w", err), pkgerrors.DatabaseError)
	}
	out := make([]ProblemSummary, 0, len(problems))
	for _, p := range problems {
		out = append(out, summaryOf(p))
	}
	return out, nil
}

// Get returns a problem with its sample testcases and the starter code of every language.
func (s *ProblemService) Get(ctx context.Context, publicID string) (*ProblemDetail, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	problem, err := s.problems.GetByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return nil, pkgerrors.New(pkgerrors.ProblemNotFound)
		}
		return nil, pkgerrors.Wrap(fmt.Errorf("get problem failed: %w", err), pkgerrors.DatabaseError)
	}
	if !problem.Published {
		return nil, pkgerrors.New(pkgerrors.ProblemNotPublished)
	}

	detail := &ProblemDetail{
		ProblemSummary: summaryOf(*problem),
		Description:    problem.Description,
		Constraints:    problem.Constraints,
		TestCases:      problem.SelectTestCases(true),
		Codes:          []CodeStub{},
	}
	if len(problem.TestCases) > 0 {
		codes, err := s.codeStubs(ctx, problem.Name, problem.TestCases[0].Inputs)
		if err != nil {
			// A problem that cannot be synthesized is still readable.
			logger.Warn(ctx, "render default code failed", zap.String("problem_id", publicID), zap.Error(err))
		} else {
			detail.Codes = codes
		}
	}
	return detail, nil
}

// Tags lists every tag name.
func (s *ProblemService) Tags(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tags, err := s.problems.ListTags(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("list tags failed: %w", err), pkgerrors.DatabaseError)
	}
	return tags, nil
}

// Vote types accepted by Vote.
const (
	VoteLike    = 0
	VoteDislike = 1
)

// Vote records a like or a dislike.
func (s *ProblemService) Vote(ctx context.Context, publicID string, voteType int) error {
	if voteType != VoteLike && voteType != VoteDislike {
		return pkgerrors.New(pkgerrors.InvalidParams).WithMessage("vote_type must be 0 or 1")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.problems.Vote(ctx, publicID, voteType == VoteLike); err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return pkgerrors.New(pkgerrors.ProblemNotFound)
		}
		return pkgerrors.Wrap(fmt.Errorf("vote failed: %w", err), pkgerrors.ProblemUpdateFailed)
	}
	return nil
}

// Languages lists every language.
func (s *ProblemService) Languages(ctx context.Context) ([]LanguageView, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	languages, err := s.languages.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("list languages failed: %w", err), pkgerrors.DatabaseError)
	}
	out := make([]LanguageView, 0, len(languages))
	for _, l := range languages {
		out = append(out, LanguageView{PublicID: l.PublicID, Name: l.Name})
	}
	return out, nil
}

// Create validates and stores a problem with its tags and testcases in one transaction.
func (s *ProblemService) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	problem, err := buildProblem(input)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// Rendering first rejects layouts no profile can run.
	codes, err := s.codeStubs(ctx, problem.Name, problem.TestCases[0].Inputs)
	if err != nil {
		return nil, err
	}

	err = s.tx.Transaction(ctx, func(tx db.Transaction) error {
		return s.problems.Create(ctx, tx, problem)
	})
	if err != nil {
		if errors.Is(err, repository.ErrProblemExists) {
			return nil, pkgerrors.New(pkgerrors.RecordAlreadyExists).WithMessage("a problem with this name already exists")
		}
		return nil, pkgerrors.Wrap(fmt.Errorf("create problem failed: %w", err), pkgerrors.ProblemCreateFailed)
	}
	logger.Info(ctx, "problem created", zap.String("problem_id", problem.PublicID), zap.Int("testcases", len(problem.TestCases)))
	return &CreateResult{PublicID: problem.PublicID, Codes: codes}, nil
}

func buildProblem(input CreateInput) (*model.Problem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.ValidationError("name", "required")
	}
	publicID := slug.Make(name)
	if publicID == "" {
		return nil, pkgerrors.ValidationError("name", "must contain letters or digits")
	}
	if !input.Difficulty.Valid() {
		return nil, pkgerrors.ValidationError("difficulty", "unknown difficulty")
	}
	if len(input.TestCases) == 0 {
		return nil, pkgerrors.ValidationError("testcases", "at least one testcase is required")
	}

	reference := input.TestCases[0]
	testcases := make([]model.TestCase, 0, len(input.TestCases))
	for i, tc := range input.TestCases {
		if err := tc.Validate(); err != nil {
			return nil, pkgerrors.New(pkgerrors.TestCaseInvalid).WithMessagef("testcase %d: %v", i, err)
		}
		if !sameLayout(reference, tc) {
			return nil, pkgerrors.New(pkgerrors.TestCaseInvalid).WithMessagef("testcase %d: fields differ from testcase 0", i)
		}
		fields, err := canonicalFields(tc.Inputs)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.TestCaseInvalid).WithMessagef("testcase %d: %v", i, err)
		}
		tc.Inputs = fields
		tc.PublicID = uuid.NewString()
		testcases = append(testcases, tc)
	}

	return &model.Problem{
		PublicID:    publicID,
		Name:        name,
		Difficulty:  input.Difficulty,
		Description: input.Description,
		Constraints: input.Constraints,
		Published:   input.Published,
		Tags:        normalizeTags(input.Tags),
		TestCases:   testcases,
	}, nil
}

// canonicalFields stores boolean literals as True/False so they compare equal to normalized output.
func canonicalFields(in []model.ValueField) ([]model.ValueField, error) {
	out := make([]model.ValueField, len(in))
	for i, f := range in {
		if f.Type == model.FieldBoolean {
			v, ok := model.CanonicalBool(f.Value)
			if !ok {
				return nil, fmt.Errorf("field %q is not a boolean: %q", f.Name, f.Value)
			}
			f.Value = v
		}
		out[i] = f
	}
	return out, nil
}

// sameLayout reports whether both testcases declare the same fields in the same order.
func sameLayout(a, b model.TestCase) bool {
	if len(a.Inputs) != len(b.Inputs) {
		return false
	}
	for i := range a.Inputs {
		if a.Inputs[i].Name != b.Inputs[i].Name || a.Inputs[i].Type != b.Inputs[i].Type {
			return false
		}
	}
	return true
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *ProblemService) codeStubs(ctx context.Context, name string, fields []model.ValueField) ([]CodeStub, error) {
	languages, err := s.languages.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("list languages failed: %w", err), pkgerrors.DatabaseError)
	}
	stubs := make([]CodeStub, 0, len(languages))
	for _, l := range languages {
		profile, err := boilerplate.ParseProfile(l.Name)
		if err != nil {
			continue
		}
		code, err := boilerplate.DefaultCodeFor(profile, name, fields)
		if err != nil {
			return nil, err
		}
		stubs = append(stubs, CodeStub{Language: LanguageView{PublicID: l.PublicID, Name: l.Name}, Value: code})
	}
	return stubs, nil
}

func summaryOf(p model.Problem) ProblemSummary {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return ProblemSummary{
		PublicID:   p.PublicID,
		Name:       p.Name,
		Difficulty: p.Difficulty,
		Likes:      p.Likes,
		Dislikes:   p.Dislikes,
		Tags:       tags,
	}
}

func (s *ProblemService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
