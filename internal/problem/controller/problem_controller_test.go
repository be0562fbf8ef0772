package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
	"codejudge/internal/problem/repository"
	"codejudge/internal/problem/service"
	pkgerrors "codejudge/pkg/errors"

	"github.com/gin-gonic/gin"
)

type stubRepo struct {
	filter  repository.ListFilter
	likes   int
	created *model.Problem
}

func (s *stubRepo) List(_ context.Context, filter repository.ListFilter) ([]model.Problem, error) {
	s.filter = filter
	return []model.Problem{{PublicID: "two-sum", Name: "Two Sum", Published: true, Tags: []string{"array"}}}, nil
}

func (s *stubRepo) GetByPublicID(_ context.Context, publicID string) (*model.Problem, error) {
	if publicID != "two-sum" {
		return nil, repository.ErrProblemNotFound
	}
	return &model.Problem{PublicID: "two-sum", Name: "Two Sum", Published: true}, nil
}

func (s *stubRepo) ListTags(context.Context) ([]string, error) { return []string{"array"}, nil }

func (s *stubRepo) Vote(_ context.Context, _ string, like bool) error {
	if like {
		s.likes++
	}
	return nil
}

func (s *stubRepo) Create(_ context.Context, _ db.Transaction, problem *model.Problem) error {
	s.created = problem
	return nil
}

func (s *stubRepo) CountByDifficulty(context.Context) (map[model.Difficulty]int, error) {
	return nil, nil
}

type stubLanguages struct{}

func (stubLanguages) List(context.Context) ([]model.Language, error) {
	return []model.Language{{PublicID: "py", Name: "python"}}, nil
}

type stubTx struct{}

func (stubTx) Transaction(_ context.Context, fn func(tx db.Transaction) error) error {
	return fn(nil)
}

type envelope struct {
	Code pkgerrors.ErrorCode `json:"code"`
	Data json.RawMessage     `json:"data"`
}

func newRouter(t *testing.T) (*gin.Engine, *stubRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := &stubRepo{}
	svc, err := service.NewProblemService(service.Config{Problems: repo, Languages: stubLanguages{}, Tx: stubTx{}})
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	h := NewProblemController(svc)
	router := gin.New()
	router.GET("/api/v1/problems", h.List)
	router.GET("/api/v1/problems/tags", h.Tags)
	router.GET("/api/v1/problems/:id", h.Get)
	router.PUT("/api/v1/problems/:id/vote", h.Vote)
	router.POST("/api/v1/problems", h.Create)
	router.GET("/api/v1/languages", h.Languages)
	return router, repo
}

func serve(router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestListParsesFilters(t *testing.T) {
	router, repo := newRouter(t)
	rec, env := serve(router, http.MethodGet, "/api/v1/problems?difficulty=2&search=%20sum%20&tags=Array,%20math,&limit=500", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.filter.Difficulty == nil || *repo.filter.Difficulty != model.DifficultyMedium {
		t.Fatalf("difficulty not parsed: %+v", repo.filter)
	}
	if repo.filter.Search != "sum" || len(repo.filter.Tags) != 2 || repo.filter.Tags[0] != "array" {
		t.Fatalf("unexpected filter: %+v", repo.filter)
	}
	if repo.filter.Limit != maxPageSize {
		t.Fatalf("expected limit capped at %d, got %d", maxPageSize, repo.filter.Limit)
	}
	var problems []service.ProblemSummary
	if err := json.Unmarshal(env.Data, &problems); err != nil || len(problems) != 1 {
		t.Fatalf("unexpected data: %s", env.Data)
	}
}

func TestListRejectsBadQuery(t *testing.T) {
	router, _ := newRouter(t)
	for _, path := range []string{
		"/api/v1/problems?difficulty=hard",
		"/api/v1/problems?difficulty=9",
		"/api/v1/problems?limit=0",
		"/api/v1/problems?offset=-1",
	} {
		rec, _ := serve(router, http.MethodGet, path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestGetProblem(t *testing.T) {
	router, _ := newRouter(t)
	rec, _ := serve(router, http.MethodGet, "/api/v1/problems/two-sum", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec, env := serve(router, http.MethodGet, "/api/v1/problems/nope", nil)
	if rec.Code != http.StatusNotFound || env.Code != pkgerrors.ProblemNotFound {
		t.Fatalf("expected problem not found, got %d %d", rec.Code, env.Code)
	}
}

func TestVote(t *testing.T) {
	router, repo := newRouter(t)
	rec, _ := serve(router, http.MethodPut, "/api/v1/problems/two-sum/vote", map[string]int{"vote_type": 0})
	if rec.Code != http.StatusOK || repo.likes != 1 {
		t.Fatalf("vote failed: %d likes=%d", rec.Code, repo.likes)
	}
	rec, env := serve(router, http.MethodPut, "/api/v1/problems/two-sum/vote", map[string]int{"vote_type": 5})
	if rec.Code != http.StatusBadRequest || env.Code != pkgerrors.InvalidParams {
		t.Fatalf("expected invalid vote, got %d %d", rec.Code, env.Code)
	}
	rec, _ = serve(router, http.MethodPut, "/api/v1/problems/two-sum/vote", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing vote_type, got %d", rec.Code)
	}
}

func TestCreateProblem(t *testing.T) {
	router, repo := newRouter(t)
	body := map[string]interface{}{
		"name":       "Is Even",
		"difficulty": 0,
		"testcases": []model.TestCase{{IsSample: true, Inputs: []model.ValueField{
			{Name: "n", Type: model.FieldInteger, Value: "2"},
			{Name: "output", Type: model.FieldBoolean, Value: "true"},
		}}},
	}
	rec, env := serve(router, http.MethodPost, "/api/v1/problems", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result service.CreateResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if result.PublicID != "is-even" || repo.created == nil || len(result.Codes) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	rec, _ = serve(router, http.MethodPost, "/api/v1/problems", map[string]string{"difficulty": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTagsAndLanguages(t *testing.T) {
	router, _ := newRouter(t)
	for _, path := range []string{"/api/v1/problems/tags", "/api/v1/languages"} {
		rec, _ := serve(router, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
