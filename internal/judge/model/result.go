package model

import "time"

// Execution backend status ids that mean the program has not finished.
const (
	StatusInQueue    = 1
	StatusProcessing = 2
)

// ExecutionResult is one program's outcome as reported by the execution backend.
type ExecutionResult struct {
	Token             string   `json:"token,omitempty"`
	StatusID          int      `json:"status_id"`
	StatusDescription string   `json:"status_description,omitempty"`
	Stdout            *string  `json:"stdout"`
	Stderr            *string  `json:"stderr"`
	CompileOutput     *string  `json:"compile_output"`
	Time              *float64 `json:"time"`
	Memory            *int64   `json:"memory"`
}

// Running reports whether the backend is still working on the program.
func (r ExecutionResult) Running() bool {
	return r.StatusID == StatusInQueue || r.StatusID == StatusProcessing
}

// Verdict classifies a judging run. The integer codes are persisted.
type Verdict int

const (
	VerdictAccepted     Verdict = 1
	VerdictRejected     Verdict = 2
	VerdictRuntimeError Verdict = 3
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "Accepted"
	case VerdictRejected:
		return "Rejected"
	case VerdictRuntimeError:
		return "Runtime Error"
	}
	return "Unknown"
}

// RejectDetails describes the first testcase whose output did not match.
// ExpectedOutput is the testcase's literal output and OriginalOutput is what the program printed.
type RejectDetails struct {
	Inputs         []ValueField `json:"inputs"`
	ExpectedOutput string       `json:"expected_output"`
	OriginalOutput *string      `json:"original_output"`
}

// Submission is the immutable record of one submit call.
type Submission struct {
	ID            int64          `json:"-"`
	PublicID      string         `json:"public_id"`
	ProblemID     int64          `json:"-"`
	ProblemPublic string         `json:"problem_id"`
	ProblemName   string         `json:"problem_name"`
	AccountID     int64          `json:"account_id"`
	Status        Verdict        `json:"status"`
	Code          string         `json:"code"`
	LanguageID    int64          `json:"-"`
	Language      string         `json:"language"`
	Time          float64        `json:"time"`
	Memory        float64        `json:"memory"`
	Date          time.Time      `json:"date"`
	TimePercent   float64        `json:"time_percent"`
	MemoryPercent float64        `json:"memory_percent"`
	ErrorString   string         `json:"error_string"`
	RejectDetails *RejectDetails `json:"reject_details"`
	SourceKey     string         `json:"-"`
}

// SubmissionJudgedEvent is published after a submission has been persisted.
type SubmissionJudgedEvent struct {
	SubmissionID string    `json:"submission_id"`
	AccountID    int64     `json:"account_id"`
	ProblemID    string    `json:"problem_id"`
	Status       Verdict   `json:"status"`
	Solved       bool      `json:"solved"`
	JudgedAt     time.Time `json:"judged_at"`
}
