package service

import (
	"context"
	"encoding/base64"
	"strings"
	"time"
	"unicode/utf8"

	"codejudge/internal/judge/boilerplate"
	"codejudge/internal/judge/judge0"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// job is one built run or submit, ready for dispatch.
type job struct {
	problem   *model.Problem
	language  *model.Language
	source    string
	testcases []model.TestCase
	programs  []string
}

type outcome struct {
	verdict     model.Verdict
	errorString string
	reject      *model.RejectDetails
	results     []model.ExecutionResult
	avgTime     float64
	avgMemory   float64
}

func (s *JudgeService) build(ctx context.Context, problemID, languageID, code string, sampleOnly bool) (*job, error) {
	language, err := s.loadLanguage(ctx, languageID)
	if err != nil {
		return nil, err
	}
	problem, err := s.loadProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	source, err := s.decodeSource(code)
	if err != nil {
		return nil, err
	}
	testcases := problem.SelectTestCases(sampleOnly)
	if len(testcases) == 0 {
		return nil, appErr.Newf(appErr.InvalidProblem, "problem %s has no testcases to judge", problem.PublicID)
	}
	programs, err := boilerplate.Runnable(source, problem, *language, sampleOnly)
	if err != nil {
		return nil, err
	}
	for i := range programs {
		programs[i] = boilerplate.ExpandEscapes(programs[i])
	}
	return &job{
		problem:   problem,
		language:  language,
		source:    source,
		testcases: testcases,
		programs:  programs,
	}, nil
}

func (s *JudgeService) decodeSource(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", appErr.ValidationError("code", "required")
	}
	raw, err := base64.StdEncoding.DecodeString(code)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.InvalidSourceEncoding, "code is not valid base64")
	}
	if !utf8.Valid(raw) {
		return "", appErr.Newf(appErr.InvalidSourceEncoding, "code is not valid utf-8")
	}
	if s.maxCodeBytes > 0 && len(raw) > s.maxCodeBytes {
		return "", appErr.New(appErr.CodeTooLarge).WithMessage("source code too large")
	}
	return string(raw), nil
}

// execute dispatches the batch and polls until every program has finished.
func (s *JudgeService) execute(ctx context.Context, j *job) ([]model.ExecutionResult, error) {
	start := time.Now()
	tokens, err := s.backend.SubmitBatch(ctx, j.programs, j.language.BackendID)
	if err != nil {
		return nil, asBackendError(err, appErr.DispatchFailed)
	}
	results, err := s.awaitResults(ctx, tokens)
	if err != nil {
		return nil, err
	}
	if len(results) != len(j.testcases) {
		return nil, appErr.BackendError(appErr.PollFailed, "", nil).
			WithMessagef("backend returned %d results for %d testcases", len(results), len(j.testcases))
	}
	logger.Debug(ctx, "batch finished", zap.Int("programs", len(tokens)), logger.Since(start))
	return results, nil
}

func (s *JudgeService) awaitResults(ctx context.Context, tokens []string) ([]model.ExecutionResult, error) {
	for attempt := 1; ; attempt++ {
		results, err := s.backend.PollBatch(ctx, tokens)
		if err != nil {
			return nil, asBackendError(err, appErr.PollFailed)
		}
		if !anyRunning(results) {
			return results, nil
		}
		if attempt >= s.maxPollAttempts {
			return nil, appErr.Newf(appErr.PollTimeout, "programs still running after %d polls", attempt)
		}

		timer := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, appErr.Wrapf(ctx.Err(), appErr.PollTimeout, "stopped polling after %d polls", attempt)
		case <-timer.C:
		}
	}
}

func anyRunning(results []model.ExecutionResult) bool {
	for _, r := range results {
		if r.Running() {
			return true
		}
	}
	return false
}

// asBackendError keeps codes set by the backend client and recodes anything else.
func asBackendError(err error, code appErr.ErrorCode) error {
	if e, ok := err.(*appErr.Error); ok && (e.Code == appErr.DispatchFailed || e.Code == appErr.PollFailed) {
		return e
	}
	return appErr.BackendError(code, "", err).WithMessagef("%s: %v", code.Message(), err)
}

// classify normalizes every stdout and derives the verdict. results[i] belongs to testcases[i].
func classify(testcases []model.TestCase, results []model.ExecutionResult) outcome {
	out := outcome{verdict: model.VerdictAccepted, results: make([]model.ExecutionResult, len(results))}

	var totalTime, totalMemory float64
	for i, r := range results {
		r.Stdout = judge0.NormalizeOutput(r.Stdout)
		out.results[i] = r
		if r.Time != nil {
			totalTime += *r.Time
		}
		if r.Memory != nil {
			totalMemory += float64(*r.Memory)
		}
	}
	if n := len(results); n > 0 {
		out.avgTime = totalTime / float64(n)
		out.avgMemory = totalMemory / float64(n)
	}

	for _, r := range out.results {
		if msg := nonEmpty(r.Stderr); msg != "" {
			out.verdict = model.VerdictRuntimeError
			out.errorString = msg
			return out
		}
		if msg := nonEmpty(r.CompileOutput); msg != "" {
			out.verdict = model.VerdictRuntimeError
			out.errorString = msg
			return out
		}
	}

	for i, tc := range testcases {
		expected, _ := tc.Output()
		actual := out.results[i].Stdout
		if actual != nil && *actual == expected.Canonical() {
			continue
		}
		out.verdict = model.VerdictRejected
		out.reject = &model.RejectDetails{
			Inputs:         tc.Params(),
			ExpectedOutput: expected.Canonical(),
			OriginalOutput: actual,
		}
		return out
	}
	return out
}

func nonEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
