package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
	"codejudge/internal/problem/repository"
	"codejudge/internal/testutil"
	pkgerrors "codejudge/pkg/errors"
)

type fakeProblemRepo struct {
	problems  map[string]*model.Problem
	created   []*model.Problem
	createErr error
	votes     map[string][2]int
	lastQuery repository.ListFilter
}

func newFakeProblemRepo() *fakeProblemRepo {
	return &fakeProblemRepo{problems: map[string]*model.Problem{}, votes: map[string][2]int{}}
}

func (f *fakeProblemRepo) List(_ context.Context, filter repository.ListFilter) ([]model.Problem, error) {
	f.lastQuery = filter
	out := make([]model.Problem, 0, len(f.problems))
	for _, p := range f.problems {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeProblemRepo) GetByPublicID(_ context.Context, publicID string) (*model.Problem, error) {
	p, ok := f.problems[publicID]
	if !ok {
		return nil, repository.ErrProblemNotFound
	}
	return p, nil
}

func (f *fakeProblemRepo) ListTags(context.Context) ([]string, error) {
	return []string{"array", "math"}, nil
}

func (f *fakeProblemRepo) Vote(_ context.Context, publicID string, like bool) error {
	if _, ok := f.problems[publicID]; !ok {
		return repository.ErrProblemNotFound
	}
	v := f.votes[publicID]
	if like {
		v[0]++
	} else {
		v[1]++
	}
	f.votes[publicID] = v
	return nil
}

func (f *fakeProblemRepo) Create(_ context.Context, tx db.Transaction, problem *model.Problem) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, problem)
	return nil
}

func (f *fakeProblemRepo) CountByDifficulty(context.Context) (map[model.Difficulty]int, error) {
	return map[model.Difficulty]int{}, nil
}

type fakeLanguages struct{}

func (fakeLanguages) List(context.Context) ([]model.Language, error) {
	return []model.Language{
		{PublicID: "py", Name: "python", BackendID: 71},
		{PublicID: "js", Name: "javascript", BackendID: 63},
		{PublicID: "java", Name: "java", BackendID: 62},
	}, nil
}

type fakeTransaction struct{ db.Transaction }

type fakeTx struct{ calls int }

func (f *fakeTx) Transaction(_ context.Context, fn func(tx db.Transaction) error) error {
	f.calls++
	return fn(fakeTransaction{})
}

func newTestService(t *testing.T) (*ProblemService, *fakeProblemRepo, *fakeTx) {
	t.Helper()
	repo := newFakeProblemRepo()
	tx := &fakeTx{}
	svc, err := NewProblemService(Config{Problems: repo, Languages: fakeLanguages{}, Tx: tx})
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	return svc, repo, tx
}

func sumCase(sample bool, a, b, out string) model.TestCase {
	return model.TestCase{IsSample: sample, Inputs: []model.ValueField{
		{Name: "a", Type: model.FieldInteger, Value: a},
		{Name: "b", Type: model.FieldInteger, Value: b},
		{Name: "output", Type: model.FieldInteger, Value: out},
	}}
}

func TestNewProblemServiceRequiresDeps(t *testing.T) {
	if _, err := NewProblemService(Config{}); err == nil {
		t.Fatalf("expected error for missing repository")
	}
}

func TestGetReturnsSamplesAndCodes(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.problems["sum"] = &model.Problem{
		PublicID:  "sum",
		Name:      "Sum",
		Published: true,
		TestCases: []model.TestCase{sumCase(true, "1", "2", "3"), sumCase(false, "5", "5", "10")},
	}

	detail, err := svc.Get(context.Background(), "sum")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	testutil.AssertEqual(t, len(detail.TestCases), 1)
	testutil.AssertEqual(t, len(detail.Codes), 3)
	testutil.AssertEqual(t, detail.Codes[0].Value, "class Solution:\n    def sum(self, a, b):\n        # write your code here\n")
	testutil.AssertEqual(t, len(detail.Tags), 0)
}

func TestGetErrors(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.problems["draft"] = &model.Problem{PublicID: "draft", Name: "Draft"}

	_, err := svc.Get(context.Background(), "missing")
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.ProblemNotFound)

	_, err = svc.Get(context.Background(), "draft")
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.ProblemNotPublished)
}

func TestListRejectsUnknownDifficulty(t *testing.T) {
	svc, repo, _ := newTestService(t)
	bad := model.Difficulty(9)
	_, err := svc.List(context.Background(), repository.ListFilter{Difficulty: &bad})
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.ValidationFailed)

	easy := model.DifficultyEasy
	if _, err := svc.List(context.Background(), repository.ListFilter{Difficulty: &easy, Search: "two"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	testutil.AssertEqual(t, repo.lastQuery.Search, "two")
}

func TestVote(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.problems["sum"] = &model.Problem{PublicID: "sum", Name: "Sum", Published: true}

	if err := svc.Vote(context.Background(), "sum", VoteLike); err != nil {
		t.Fatalf("like failed: %v", err)
	}
	if err := svc.Vote(context.Background(), "sum", VoteDislike); err != nil {
		t.Fatalf("dislike failed: %v", err)
	}
	testutil.AssertEqual(t, repo.votes["sum"], [2]int{1, 1})

	err := svc.Vote(context.Background(), "sum", 2)
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.InvalidParams)

	err = svc.Vote(context.Background(), "missing", VoteLike)
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.ProblemNotFound)
}

func TestCreateProblem(t *testing.T) {
	svc, repo, tx := newTestService(t)
	result, err := svc.Create(context.Background(), CreateInput{
		Name:       "Two Sum",
		Difficulty: model.DifficultyEasy,
		Tags:       []string{" Math", "array", "math", ""},
		TestCases:  []model.TestCase{sumCase(true, "1", "2", "3"), sumCase(false, "2", "2", "4")},
		Published:  true,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	testutil.AssertEqual(t, result.PublicID, "two-sum")
	testutil.AssertEqual(t, len(result.Codes), 3)
	testutil.AssertEqual(t, tx.calls, 1)
	testutil.AssertEqual(t, len(repo.created), 1)

	created := repo.created[0]
	testutil.AssertEqual(t, created.Tags, []string{"array", "math"})
	for _, tc := range created.TestCases {
		testutil.AssertTrue(t, tc.PublicID != "", "testcase public id should be assigned")
	}
	testutil.AssertTrue(t, created.TestCases[0].PublicID != created.TestCases[1].PublicID, "testcase ids should differ")
}

func parityCase(n, out string) model.TestCase {
	return model.TestCase{IsSample: true, Inputs: []model.ValueField{
		{Name: "n", Type: model.FieldInteger, Value: n},
		{Name: "output", Type: model.FieldBoolean, Value: out},
	}}
}

func TestCreateProblemCanonicalizesBooleans(t *testing.T) {
	svc, repo, _ := newTestService(t)
	_, err := svc.Create(context.Background(), CreateInput{
		Name:      "Is Even",
		TestCases: []model.TestCase{parityCase("4", "true"), parityCase("3", " FALSE ")},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	created := repo.created[0]
	testutil.AssertEqual(t, created.TestCases[0].Inputs[1].Value, "True")
	testutil.AssertEqual(t, created.TestCases[1].Inputs[1].Value, "False")
	testutil.AssertEqual(t, created.TestCases[0].Inputs[0].Value, "4")
}

func TestCreateProblemValidation(t *testing.T) {
	svc, _, tx := newTestService(t)
	mismatched := model.TestCase{Inputs: []model.ValueField{
		{Name: "x", Type: model.FieldInteger, Value: "1"},
		{Name: "output", Type: model.FieldInteger, Value: "1"},
	}}
	noOutput := model.TestCase{Inputs: []model.ValueField{{Name: "a", Type: model.FieldInteger, Value: "1"}}}
	matrix := model.TestCase{Inputs: []model.ValueField{
		{Name: "grid", Type: model.FieldArrayInt2D, Value: "[[1]]"},
		{Name: "output", Type: model.FieldInteger, Value: "1"},
	}}

	cases := []struct {
		name  string
		input CreateInput
		code  pkgerrors.ErrorCode
	}{
		{"empty name", CreateInput{Name: " ", TestCases: []model.TestCase{sumCase(true, "1", "1", "2")}}, pkgerrors.ValidationFailed},
		{"symbol name", CreateInput{Name: "--", TestCases: []model.TestCase{sumCase(true, "1", "1", "2")}}, pkgerrors.ValidationFailed},
		{"bad difficulty", CreateInput{Name: "A", Difficulty: 7, TestCases: []model.TestCase{sumCase(true, "1", "1", "2")}}, pkgerrors.ValidationFailed},
		{"no testcases", CreateInput{Name: "A"}, pkgerrors.ValidationFailed},
		{"missing output", CreateInput{Name: "A", TestCases: []model.TestCase{noOutput}}, pkgerrors.TestCaseInvalid},
		{"layout mismatch", CreateInput{Name: "A", TestCases: []model.TestCase{sumCase(true, "1", "1", "2"), mismatched}}, pkgerrors.TestCaseInvalid},
		{"2d field", CreateInput{Name: "A", TestCases: []model.TestCase{matrix}}, pkgerrors.UnsupportedFieldType},
		{"non boolean literal", CreateInput{Name: "A", TestCases: []model.TestCase{parityCase("4", "yes")}}, pkgerrors.TestCaseInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			testutil.AssertEqual(t, pkgerrors.GetCode(err), tc.code)
		})
	}
	testutil.AssertEqual(t, tx.calls, 0)
}

func TestCreateProblemDuplicate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.createErr = repository.ErrProblemExists
	_, err := svc.Create(context.Background(), CreateInput{Name: "Sum", TestCases: []model.TestCase{sumCase(true, "1", "1", "2")}})
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.RecordAlreadyExists)
	testutil.AssertTrue(t, strings.Contains(err.Error(), "already exists"), "message should mention duplicate")
}

func TestLanguages(t *testing.T) {
	svc, _, _ := newTestService(t)
	languages, err := svc.Languages(context.Background())
	if err != nil {
		t.Fatalf("languages failed: %v", err)
	}
	testutil.AssertEqual(t, languages[0], LanguageView{PublicID: "py", Name: "python"})
}
