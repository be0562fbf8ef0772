package errors

import "net/http"

// ErrorCode identifies an API error. Codes are grouped by thousand:
// 10xxx system, 11xxx account and auth, 12xxx problem catalogue, 13xxx submission and judge.
type ErrorCode int

const (
	Success ErrorCode = 10000

	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	DatabaseError       ErrorCode = 10100
	RecordAlreadyExists ErrorCode = 10102
	CacheError          ErrorCode = 10200
	ValidationFailed    ErrorCode = 10300

	TokenExpired       ErrorCode = 11003
	TokenInvalid       ErrorCode = 11004
	AccountNotFound    ErrorCode = 11201
	StreakUpdateFailed ErrorCode = 11202
	AccountSuspended   ErrorCode = 11203
	ProfileUnavailable ErrorCode = 11204

	ProblemNotFound     ErrorCode = 12000
	ProblemCreateFailed ErrorCode = 12002
	ProblemUpdateFailed ErrorCode = 12003
	ProblemNotPublished ErrorCode = 12005
	TestCaseInvalid     ErrorCode = 12102

	SubmissionNotFound     ErrorCode = 13000
	SubmissionCreateFailed ErrorCode = 13001
	CodeTooLarge           ErrorCode = 13002
	InvalidLanguage        ErrorCode = 13003
	SubmitTooFrequently    ErrorCode = 13004
	InvalidProblem         ErrorCode = 13005
	InvalidSourceEncoding  ErrorCode = 13006

	// Judge pipeline
	UnsupportedFieldType ErrorCode = 13100
	DispatchFailed       ErrorCode = 13101
	PollFailed           ErrorCode = 13102
	PollTimeout          ErrorCode = 13103
	JudgeSystemError     ErrorCode = 13104
)

type codeInfo struct {
	status  int
	message string
}

// Codes missing here answer 500 with "Unknown error".
var codes = map[ErrorCode]codeInfo{
	Success: {http.StatusOK, "Success"},

	InternalServerError: {http.StatusInternalServerError, "Internal server error"},
	InvalidParams:       {http.StatusBadRequest, "Invalid parameters"},
	NotFound:            {http.StatusNotFound, "Resource not found"},
	Unauthorized:        {http.StatusUnauthorized, "Unauthorized access"},
	Forbidden:           {http.StatusForbidden, "Access forbidden"},
	TooManyRequests:     {http.StatusTooManyRequests, "Too many requests, please try again later"},
	ServiceUnavailable:  {http.StatusServiceUnavailable, "Service temporarily unavailable"},
	Timeout:             {http.StatusGatewayTimeout, "Request timeout"},

	DatabaseError:       {http.StatusInternalServerError, "Database operation failed"},
	RecordAlreadyExists: {http.StatusConflict, "Record already exists"},
	CacheError:          {http.StatusInternalServerError, "Cache operation failed"},
	ValidationFailed:    {http.StatusBadRequest, "Validation failed"},

	TokenExpired:       {http.StatusUnauthorized, "Token has expired"},
	TokenInvalid:       {http.StatusUnauthorized, "Invalid token"},
	AccountNotFound:    {http.StatusNotFound, "Account not found"},
	StreakUpdateFailed: {http.StatusInternalServerError, "Failed to update streak"},
	AccountSuspended:   {http.StatusForbidden, "Account has been suspended"},
	ProfileUnavailable: {http.StatusInternalServerError, "Profile is temporarily unavailable"},

	ProblemNotFound:     {http.StatusNotFound, "Problem not found"},
	ProblemCreateFailed: {http.StatusInternalServerError, "Failed to create problem"},
	ProblemUpdateFailed: {http.StatusInternalServerError, "Failed to update problem"},
	ProblemNotPublished: {http.StatusNotFound, "Problem is not published yet"},
	TestCaseInvalid:     {http.StatusBadRequest, "Invalid test case format"},

	SubmissionNotFound:     {http.StatusNotFound, "Submission not found"},
	SubmissionCreateFailed: {http.StatusInternalServerError, "Failed to create submission"},
	CodeTooLarge:           {http.StatusBadRequest, "Code is too large"},
	InvalidLanguage:        {http.StatusBadRequest, "Invalid language ID"},
	SubmitTooFrequently:    {http.StatusTooManyRequests, "Submitting too frequently, please wait"},
	InvalidProblem:         {http.StatusBadRequest, "Invalid problem ID"},
	InvalidSourceEncoding:  {http.StatusBadRequest, "Source code is not valid base64"},

	UnsupportedFieldType: {http.StatusBadRequest, "Unsupported field type"},
	DispatchFailed:       {http.StatusBadGateway, "Failed to dispatch code to the execution backend"},
	PollFailed:           {http.StatusBadGateway, "Failed to fetch results from the execution backend"},
	PollTimeout:          {http.StatusGatewayTimeout, "Execution backend did not finish in time"},
	JudgeSystemError:     {http.StatusInternalServerError, "Judge system error"},
}

// Message returns the default message of c.
func (c ErrorCode) Message() string {
	if info, ok := codes[c]; ok {
		return info.message
	}
	return "Unknown error"
}

// HTTPStatus returns the status a response carrying c is sent with.
func (c ErrorCode) HTTPStatus() int {
	if info, ok := codes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
