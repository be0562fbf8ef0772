package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"codejudge/internal/judge/model"
	pkgerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/zeromicro/go-zero/core/breaker"
	"go.uber.org/zap"
)

const (
	batchPath       = "/submissions/batch"
	authTokenHeader = "X-Auth-Token"
	defaultTimeout  = 30 * time.Second
	resultFields    = "token,status,stdout,stderr,compile_output,time,memory"
)

// Config holds the backend connection settings.
type Config struct {
	BaseURL   string        `yaml:"baseURL"`
	AuthToken string        `yaml:"authToken"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Client talks to a Judge0-compatible batch API. It never retries on its own;
// a circuit breaker stops calling a backend that keeps failing.
type Client struct {
	baseURL   string
	authToken string
	http      *http.Client
	brk       breaker.Breaker
}

// responseInfo carries the parts of a response the client inspects.
type responseInfo struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// statusError is a non-2xx backend answer.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
}

// NewClient creates a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("judge0 base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid judge0 base url: %w", err)
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   base,
		authToken: cfg.AuthToken,
		http:      httpClient,
		brk:       breaker.NewBreaker(breaker.WithName("judge0:" + base)),
	}, nil
}

// SubmitBatch sends one program per entry and returns their tokens in the same order.
func (c *Client) SubmitBatch(ctx context.Context, programs []string, languageID int) ([]string, error) {
	req := batchRequest{Submissions: make([]submissionRequest, 0, len(programs))}
	for _, p := range programs {
		req.Submissions = append(req.Submissions, submissionRequest{SourceCode: p, LanguageID: languageID})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.DispatchFailed, "marshal batch failed")
	}

	info, err := c.call(ctx, http.MethodPost, batchPath, body)
	if err != nil {
		return nil, backendError(pkgerrors.DispatchFailed, "submit batch failed", err)
	}

	var tokens []tokenResponse
	if err := json.Unmarshal(info.Body, &tokens); err != nil {
		return nil, pkgerrors.BackendError(pkgerrors.DispatchFailed, string(info.Body), err).
			WithMessage("decode batch tokens failed")
	}
	if len(tokens) != len(programs) {
		return nil, pkgerrors.BackendError(pkgerrors.DispatchFailed, string(info.Body), nil).
			WithMessagef("backend returned %d tokens for %d programs", len(tokens), len(programs))
	}
	out := make([]string, len(tokens))
	for i, t := range tokens {
		if t.Token == "" {
			return nil, pkgerrors.BackendError(pkgerrors.DispatchFailed, string(info.Body), nil).
				WithMessagef("backend returned no token for program %d", i)
		}
		out[i] = t.Token
	}
	logger.Debug(ctx, "judge0 batch submitted", zap.Int("programs", len(programs)), zap.Int("language_id", languageID), zap.Duration("duration", info.Duration))
	return out, nil
}

// PollBatch fetches the current state of every token. Results follow the order of tokens.
func (c *Client) PollBatch(ctx context.Context, tokens []string) ([]model.ExecutionResult, error) {
	q := url.Values{}
	q.Set("tokens", strings.Join(tokens, ","))
	q.Set("fields", resultFields)
	info, err := c.call(ctx, http.MethodGet, batchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, backendError(pkgerrors.PollFailed, "poll batch failed", err)
	}

	var resp batchResponse
	if err := json.Unmarshal(info.Body, &resp); err != nil {
		return nil, pkgerrors.BackendError(pkgerrors.PollFailed, string(info.Body), err).
			WithMessage("decode batch results failed")
	}

	byToken := make(map[string]submissionDetails, len(resp.Submissions))
	for _, s := range resp.Submissions {
		byToken[s.Token] = s
	}
	results := make([]model.ExecutionResult, 0, len(tokens))
	for i, token := range tokens {
		s, ok := byToken[token]
		if !ok {
			// Some deployments omit the token field; fall back to position.
			if i >= len(resp.Submissions) {
				return nil, pkgerrors.BackendError(pkgerrors.PollFailed, string(info.Body), nil).
					WithMessagef("no result for token %s", token)
			}
			s = resp.Submissions[i]
		}
		results = append(results, toResult(token, s))
	}
	return results, nil
}

func toResult(token string, s submissionDetails) model.ExecutionResult {
	r := model.ExecutionResult{
		Token:             token,
		StatusID:          s.Status.ID,
		StatusDescription: s.Status.Description,
		Stdout:            s.Stdout,
		Stderr:            s.Stderr,
		CompileOutput:     s.CompileOutput,
		Memory:            s.Memory,
	}
	if s.Time != nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(*s.Time), 64); err == nil {
			r.Time = &v
		}
	}
	return r
}

// call performs one request through the breaker. 4xx answers do not count against the backend.
func (c *Client) call(ctx context.Context, method, path string, body []byte) (responseInfo, error) {
	var info responseInfo
	err := c.brk.DoWithAcceptable(func() error {
		var err error
		info, err = c.do(ctx, method, path, body)
		if err != nil {
			return err
		}
		if info.StatusCode < 200 || info.StatusCode >= 300 {
			return &statusError{StatusCode: info.StatusCode, Body: string(info.Body)}
		}
		return nil
	}, acceptable)
	return info, err
}

func acceptable(err error) bool {
	if err == nil {
		return true
	}
	if se, ok := err.(*statusError); ok {
		return se.StatusCode < http.StatusInternalServerError
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (responseInfo, error) {
	var info responseInfo
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return info, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set(authTokenHeader, c.authToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	info.Duration = time.Since(start)
	if err != nil {
		return info, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	info.StatusCode = resp.StatusCode
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return info, fmt.Errorf("read response body failed: %w", err)
	}
	info.Body = bodyBytes
	return info, nil
}

func backendError(code pkgerrors.ErrorCode, msg string, err error) error {
	if se, ok := err.(*statusError); ok {
		return pkgerrors.BackendError(code, se.Body, err).WithMessagef("%s: %s", msg, se.Error())
	}
	if err == breaker.ErrServiceUnavailable {
		return pkgerrors.BackendError(code, "", err).WithMessagef("%s: circuit open", msg)
	}
	return pkgerrors.BackendError(code, "", err).WithMessagef("%s: %v", msg, err)
}
