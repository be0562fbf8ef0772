package service

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	problemRepo "codejudge/internal/problem/repository"
	appErr "codejudge/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int64) *int64       { return &i }

type fakeBackend struct {
	mu           sync.Mutex
	programs     []string
	languageID   int
	final        []model.ExecutionResult
	pendingPolls int
	polls        int
	submitErr    error
	pollErr      error
}

func (b *fakeBackend) SubmitBatch(ctx context.Context, programs []string, languageID int) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	b.programs = programs
	b.languageID = languageID
	tokens := make([]string, len(programs))
	for i := range programs {
		tokens[i] = "tok-" + string(rune('a'+i))
	}
	return tokens, nil
}

func (b *fakeBackend) PollBatch(ctx context.Context, tokens []string) ([]model.ExecutionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.polls++
	if b.pollErr != nil {
		return nil, b.pollErr
	}
	out := make([]model.ExecutionResult, len(tokens))
	for i, token := range tokens {
		if b.polls <= b.pendingPolls {
			out[i] = model.ExecutionResult{Token: token, StatusID: model.StatusProcessing}
			continue
		}
		r := b.final[i]
		r.Token = token
		out[i] = r
	}
	return out, nil
}

type fakeProblems struct{ problem *model.Problem }

func (f *fakeProblems) GetByPublicID(ctx context.Context, publicID string) (*model.Problem, error) {
	if f.problem == nil || publicID != f.problem.PublicID {
		return nil, problemRepo.ErrProblemNotFound
	}
	return f.problem, nil
}

type fakeLanguages struct{}

func (fakeLanguages) GetLanguage(ctx context.Context, publicID string) (*model.Language, error) {
	switch publicID {
	case "py":
		return &model.Language{ID: 1, PublicID: "py", Name: "python", BackendID: 71}, nil
	case "js":
		return &model.Language{ID: 2, PublicID: "js", Name: "javascript", BackendID: 63}, nil
	}
	return nil, problemRepo.ErrLanguageNotFound
}

type fakeSubmissions struct {
	mu      sync.Mutex
	created []*model.Submission
}

func (f *fakeSubmissions) Create(ctx context.Context, tx db.Transaction, s *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = int64(len(f.created) + 1)
	f.created = append(f.created, s)
	return nil
}

func (f *fakeSubmissions) GetByPublicID(ctx context.Context, publicID string) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.created {
		if s.PublicID == publicID {
			return s, nil
		}
	}
	return nil, repository.ErrSubmissionNotFound
}

func (f *fakeSubmissions) ListByProblem(ctx context.Context, problemID int64, limit int) ([]model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Submission
	for i := len(f.created) - 1; i >= 0; i-- {
		if f.created[i].ProblemID == problemID {
			out = append(out, *f.created[i])
		}
	}
	return out, nil
}

type solvedKey struct{ account, problem int64 }

type fakeSolved struct {
	mu      sync.Mutex
	records map[solvedKey]int
}

func (f *fakeSolved) MarkSolved(ctx context.Context, tx db.Transaction, accountID, problemID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records == nil {
		f.records = map[solvedKey]int{}
	}
	k := solvedKey{accountID, problemID}
	if f.records[k] > 0 {
		return false, nil
	}
	f.records[k]++
	return true, nil
}

type fakeTx struct{}

func (fakeTx) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return fn(nil)
}

type fakeEvents struct{ events []model.SubmissionJudgedEvent }

func (f *fakeEvents) PublishJudged(ctx context.Context, e model.SubmissionJudgedEvent) error {
	f.events = append(f.events, e)
	return nil
}

func field(name string, t model.FieldType, v string) model.ValueField {
	return model.ValueField{Name: name, Type: t, Value: v}
}

// identityProblem has three testcases; each returns its single argument.
func identityProblem() *model.Problem {
	tc := func(sample bool, v string) model.TestCase {
		return model.TestCase{IsSample: sample, Inputs: []model.ValueField{
			field("x", model.FieldInteger, v),
			field(model.OutputFieldName, model.FieldInteger, v),
		}}
	}
	return &model.Problem{
		ID:        10,
		PublicID:  "identity",
		Name:      "Identity",
		TestCases: []model.TestCase{tc(true, "1"), tc(false, "2"), tc(false, "3")},
	}
}

func finished(stdout string) model.ExecutionResult {
	return model.ExecutionResult{StatusID: 3, Stdout: strPtr(stdout), Time: floatPtr(0.02), Memory: intPtr(3000)}
}

type harness struct {
	svc         *JudgeService
	backend     *fakeBackend
	problems    *fakeProblems
	submissions *fakeSubmissions
	solved      *fakeSolved
	events      *fakeEvents
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		backend:     &fakeBackend{},
		problems:    &fakeProblems{problem: identityProblem()},
		submissions: &fakeSubmissions{},
		solved:      &fakeSolved{},
		events:      &fakeEvents{},
	}
	cfg := Config{
		Backend:         h.backend,
		Problems:        h.problems,
		Languages:       fakeLanguages{},
		Submissions:     h.submissions,
		Solved:          h.solved,
		Tx:              fakeTx{},
		Events:          h.events,
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 5,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewJudgeService(cfg)
	if err != nil {
		t.Fatalf("new judge service failed: %v", err)
	}
	h.svc = svc
	return h
}

func encoded(src string) string {
	return base64.StdEncoding.EncodeToString([]byte(src))
}

const identitySource = "class Solution:\n    def identity(self, x):\n        return x"

func TestNewJudgeServiceRequiresDependencies(t *testing.T) {
	if _, err := NewJudgeService(Config{}); err == nil {
		t.Fatalf("expected missing backend error")
	}
}

func TestRunUsesSampleTestcasesAndStripsTokens(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.final = []model.ExecutionResult{finished("1\n")}
	h.backend.pendingPolls = 2

	res, err := h.svc.Run(context.Background(), RunInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource)})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(h.backend.programs) != 1 || h.backend.languageID != 71 {
		t.Fatalf("expected one python program, got %d for language %d", len(h.backend.programs), h.backend.languageID)
	}
	if h.backend.polls != 3 {
		t.Fatalf("expected 3 polls, got %d", h.backend.polls)
	}
	if res.Status != model.VerdictAccepted {
		t.Fatalf("unexpected verdict %s", res.Status)
	}
	if res.Submissions[0].Token != "" || *res.Submissions[0].Stdout != "1" {
		t.Fatalf("unexpected run result: %+v", res.Submissions[0])
	}
	if len(h.submissions.created) != 0 {
		t.Fatalf("run must not persist")
	}
}

func TestSubmitIdentityAccepted(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.final = []model.ExecutionResult{finished("1"), finished("2\n"), finished("3")}

	sub, err := h.svc.Submit(context.Background(), SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if sub.Status != model.VerdictAccepted || sub.RejectDetails != nil {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if len(h.backend.programs) != 3 {
		t.Fatalf("submit must dispatch every testcase, got %d", len(h.backend.programs))
	}
	if math.Abs(sub.Time-0.02) > 1e-9 || sub.Memory != 3000 {
		t.Fatalf("unexpected averages time=%v memory=%v", sub.Time, sub.Memory)
	}
	if sub.TimePercent != TimePercent || sub.MemoryPercent != MemoryPercent {
		t.Fatalf("unexpected percents: %v %v", sub.TimePercent, sub.MemoryPercent)
	}
	if sub.Code != identitySource || sub.PublicID == "" {
		t.Fatalf("submission must hold decoded code and a public id")
	}
	if h.solved.records[solvedKey{7, 10}] != 1 {
		t.Fatalf("expected one solved record")
	}
	if len(h.events.events) != 1 || !h.events.events[0].Solved {
		t.Fatalf("expected one solved event, got %+v", h.events.events)
	}
}

func TestSubmitTwiceKeepsSingleSolvedRecord(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.final = []model.ExecutionResult{finished("1"), finished("2"), finished("3")}
	for i := 0; i < 2; i++ {
		if _, err := h.svc.Submit(context.Background(), SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7}); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}
	if len(h.submissions.created) != 2 {
		t.Fatalf("expected two submissions, got %d", len(h.submissions.created))
	}
	if len(h.solved.records) != 1 || h.solved.records[solvedKey{7, 10}] != 1 {
		t.Fatalf("expected a single solved record, got %v", h.solved.records)
	}
}

func TestSubmitRejectedOnThirdTestcase(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.final = []model.ExecutionResult{finished("1"), finished("2"), finished("4")}

	sub, err := h.svc.Submit(context.Background(), SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if sub.Status != model.VerdictRejected {
		t.Fatalf("unexpected verdict %s", sub.Status)
	}
	d := sub.RejectDetails
	if d == nil || d.ExpectedOutput != "3" || d.OriginalOutput == nil || *d.OriginalOutput != "4" {
		t.Fatalf("unexpected reject details: %+v", d)
	}
	if len(d.Inputs) != 1 || d.Inputs[0].Value != "3" {
		t.Fatalf("reject details must carry the failing inputs: %+v", d.Inputs)
	}
	if len(h.solved.records) != 0 {
		t.Fatalf("rejected submission must not be recorded as solved")
	}
}

func TestSubmitRuntimeErrorFirstWins(t *testing.T) {
	h := newHarness(t, nil)
	second := finished("")
	second.Stderr = strPtr("ZeroDivisionError")
	third := finished("")
	third.CompileOutput = strPtr("SyntaxError")
	h.backend.final = []model.ExecutionResult{finished("9"), second, third}

	sub, err := h.svc.Submit(context.Background(), SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if sub.Status != model.VerdictRuntimeError || sub.ErrorString != "ZeroDivisionError" {
		t.Fatalf("unexpected outcome: %s %q", sub.Status, sub.ErrorString)
	}
	if sub.RejectDetails != nil {
		t.Fatalf("runtime errors skip output comparison")
	}
}

func TestSubmitPollTimeout(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.MaxPollAttempts = 3 })
	h.backend.final = []model.ExecutionResult{finished("1"), finished("2"), finished("3")}
	h.backend.pendingPolls = 100

	_, err := h.svc.Submit(context.Background(), SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7})
	if !appErr.Is(err, appErr.PollTimeout) {
		t.Fatalf("expected PollTimeout, got %v", err)
	}
	if h.backend.polls != 3 {
		t.Fatalf("expected 3 polls, got %d", h.backend.polls)
	}
	if len(h.submissions.created) != 0 {
		t.Fatalf("nothing must be persisted on timeout")
	}
}

func TestRunStopsPollingWhenContextEnds(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.PollInterval = time.Hour
		c.MaxPollAttempts = 1000
	})
	h.backend.final = []model.ExecutionResult{finished("1")}
	h.backend.pendingPolls = 1000

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.svc.Run(ctx, RunInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource)})
	if !appErr.Is(err, appErr.PollTimeout) {
		t.Fatalf("expected PollTimeout, got %v", err)
	}
}

func TestSubmitPollFailurePersistsNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.pollErr = appErr.BackendError(appErr.PollFailed, `{"error":"boom"}`, nil)

	_, err := h.svc.Submit(context.Background(), SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7})
	if !appErr.Is(err, appErr.PollFailed) {
		t.Fatalf("expected PollFailed, got %v", err)
	}
	if appErr.GetError(err).Details["backend_body"] != `{"error":"boom"}` {
		t.Fatalf("backend body lost: %v", appErr.GetError(err).Details)
	}
	if len(h.submissions.created) != 0 {
		t.Fatalf("nothing must be persisted on poll failure")
	}
}

func TestRunDispatchFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.submitErr = errors.New("connection refused")

	_, err := h.svc.Run(context.Background(), RunInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource)})
	if !appErr.Is(err, appErr.DispatchFailed) {
		t.Fatalf("expected DispatchFailed, got %v", err)
	}
	if _, ok := appErr.GetError(err).Details["backend_body"]; !ok {
		t.Fatalf("dispatch errors carry a backend_body detail")
	}
}

func TestBuildErrors(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RunInput
		code  appErr.ErrorCode
	}{
		{"unknown language", RunInput{ProblemID: "identity", LanguageID: "cobol", Code: encoded("x")}, appErr.InvalidLanguage},
		{"unknown problem", RunInput{ProblemID: "nope", LanguageID: "py", Code: encoded("x")}, appErr.InvalidProblem},
		{"bad base64", RunInput{ProblemID: "identity", LanguageID: "py", Code: "%%%"}, appErr.InvalidSourceEncoding},
		{"empty code", RunInput{ProblemID: "identity", LanguageID: "py"}, appErr.ValidationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.svc.Run(ctx, tc.input); !appErr.Is(err, tc.code) {
				t.Fatalf("expected %v, got %v", tc.code, err)
			}
		})
	}
	if h.backend.programs != nil {
		t.Fatalf("build errors must not dispatch")
	}
}

func TestRunWithoutSampleTestcasesIsInvalidProblem(t *testing.T) {
	h := newHarness(t, nil)
	for i := range h.problems.problem.TestCases {
		h.problems.problem.TestCases[i].IsSample = false
	}
	_, err := h.svc.Run(context.Background(), RunInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource)})
	if !appErr.Is(err, appErr.InvalidProblem) {
		t.Fatalf("expected InvalidProblem, got %v", err)
	}
}

func TestSubmitRequiresAccount(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.Submit(context.Background(), SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource)})
	if !appErr.Is(err, appErr.Unauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSubmitIdempotencyReplaysSubmission(t *testing.T) {
	c := newTestCache(t)
	h := newHarness(t, func(cfg *Config) { cfg.Cache = c })
	h.backend.final = []model.ExecutionResult{finished("1"), finished("2"), finished("3")}
	input := SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7, IdempotencyKey: "req-1"}

	first, err := h.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	second, err := h.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if first.PublicID != second.PublicID {
		t.Fatalf("replay returned a different submission")
	}
	if len(h.submissions.created) != 1 || h.backend.polls != 1 {
		t.Fatalf("replay must not judge again: created=%d polls=%d", len(h.submissions.created), h.backend.polls)
	}
}

func TestSubmitIdempotencyKeyScopedToAccount(t *testing.T) {
	c := newTestCache(t)
	h := newHarness(t, func(cfg *Config) { cfg.Cache = c })
	h.backend.final = []model.ExecutionResult{finished("1"), finished("2"), finished("3")}
	mine := SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7, IdempotencyKey: "retry-1"}
	theirs := mine
	theirs.AccountID = 8

	first, err := h.svc.Submit(context.Background(), mine)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	second, err := h.svc.Submit(context.Background(), theirs)
	if err != nil {
		t.Fatalf("second account submit failed: %v", err)
	}
	if first.PublicID == second.PublicID || second.AccountID != 8 {
		t.Fatalf("another account must not receive the first submission: %+v", second)
	}
	if len(h.submissions.created) != 2 {
		t.Fatalf("each account should be judged, created=%d", len(h.submissions.created))
	}
}

func TestSubmitIdempotencyReplayChecksOwner(t *testing.T) {
	c := newTestCache(t)
	h := newHarness(t, func(cfg *Config) { cfg.Cache = c })
	h.backend.final = []model.ExecutionResult{finished("1"), finished("2"), finished("3")}
	input := SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7, IdempotencyKey: "req-3"}

	first, err := h.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if err := c.Set(context.Background(), idempotencyKey(8, "identity", "req-3"), first.PublicID, time.Minute); err != nil {
		t.Fatalf("seed key failed: %v", err)
	}
	input.AccountID = 8
	if _, err := h.svc.Submit(context.Background(), input); !appErr.Is(err, appErr.Forbidden) {
		t.Fatalf("expected Forbidden for a foreign submission, got %v", err)
	}
}

func TestIdempotencyKey(t *testing.T) {
	if got := idempotencyKey(7, "two-sum", " abc "); got != idempotencyKeyPrefix+"7:two-sum:abc" {
		t.Fatalf("unexpected key %q", got)
	}
	if idempotencyKey(7, "two-sum", "  ") != "" {
		t.Fatalf("blank client key must disable idempotency")
	}
}

func TestSubmitIdempotencyReleasedOnFailure(t *testing.T) {
	c := newTestCache(t)
	h := newHarness(t, func(cfg *Config) { cfg.Cache = c })
	h.backend.submitErr = errors.New("down")
	input := SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7, IdempotencyKey: "req-2"}

	if _, err := h.svc.Submit(context.Background(), input); err == nil {
		t.Fatalf("expected dispatch failure")
	}
	v, err := c.Get(context.Background(), idempotencyKey(7, "identity", "req-2"))
	if err != nil || v != "" {
		t.Fatalf("idempotency key should be released, got %q err %v", v, err)
	}
}

func TestSubmitRateLimit(t *testing.T) {
	c := newTestCache(t)
	h := newHarness(t, func(cfg *Config) {
		cfg.Cache = c
		cfg.RateLimit = RateLimitConfig{AccountMax: 1, Window: time.Minute}
	})
	h.backend.final = []model.ExecutionResult{finished("1"), finished("2"), finished("3")}
	input := SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7}

	if _, err := h.svc.Submit(context.Background(), input); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := h.svc.Submit(context.Background(), input); !appErr.Is(err, appErr.SubmitTooFrequently) {
		t.Fatalf("expected SubmitTooFrequently, got %v", err)
	}
}

func TestListSubmissionsAndDefaultCode(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.final = []model.ExecutionResult{finished("1"), finished("2"), finished("3")}
	for i := 0; i < 2; i++ {
		if _, err := h.svc.Submit(context.Background(), SubmitInput{ProblemID: "identity", LanguageID: "py", Code: encoded(identitySource), AccountID: 7}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	list, err := h.svc.ListSubmissions(context.Background(), "identity", 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListSubmissions = %d, err %v", len(list), err)
	}
	if _, err := h.svc.ListSubmissions(context.Background(), "missing", 10); !appErr.Is(err, appErr.InvalidProblem) {
		t.Fatalf("expected InvalidProblem, got %v", err)
	}

	codes, err := h.svc.DefaultCode(context.Background(), "identity")
	if err != nil {
		t.Fatalf("DefaultCode failed: %v", err)
	}
	if !strings.Contains(codes["python"], "def identity(self, x):") {
		t.Fatalf("unexpected python stub: %q", codes["python"])
	}
}

func TestClassifyNormalizesBeforeCompare(t *testing.T) {
	testcases := []model.TestCase{{Inputs: []model.ValueField{
		field("nums", model.FieldArrayInt, "[1, 2]"),
		field(model.OutputFieldName, model.FieldArrayInt, "[1, 2]"),
	}}}
	out := classify(testcases, []model.ExecutionResult{{StatusID: 3, Stdout: strPtr("[ 1, 2 ]\n")}})
	if out.verdict != model.VerdictAccepted {
		t.Fatalf("expected Accepted after normalization, got %s", out.verdict)
	}

	out = classify(testcases, []model.ExecutionResult{{StatusID: 3}})
	if out.verdict != model.VerdictRejected || out.reject.OriginalOutput != nil {
		t.Fatalf("missing stdout must reject with a null original output")
	}
}

func TestClassifyLowerCaseBooleanExpectation(t *testing.T) {
	testcases := []model.TestCase{{Inputs: []model.ValueField{
		field("n", model.FieldInteger, "4"),
		field(model.OutputFieldName, model.FieldBoolean, "true"),
	}}}
	for _, stdout := range []string{"true\n", "True\n"} {
		out := classify(testcases, []model.ExecutionResult{{StatusID: 3, Stdout: strPtr(stdout)}})
		if out.verdict != model.VerdictAccepted {
			t.Fatalf("stdout %q: expected Accepted, got %s", stdout, out.verdict)
		}
	}

	out := classify(testcases, []model.ExecutionResult{{StatusID: 3, Stdout: strPtr("false\n")}})
	if out.verdict != model.VerdictRejected || out.reject.ExpectedOutput != "True" {
		t.Fatalf("expected rejection against True, got %s %+v", out.verdict, out.reject)
	}
}
