package controller

import (
	"strconv"

	"codejudge/internal/common/http/middleware"
	"codejudge/internal/judge/service"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const (
	idempotencyHeader = "Idempotency-Key"
	defaultListSize   = 20
	maxListSize       = 100
)

// JudgeController handles run, submit and submission read requests.
type JudgeController struct {
	judgeService *service.JudgeService
}

// NewJudgeController creates a new controller.
func NewJudgeController(judgeService *service.JudgeService) *JudgeController {
	return &JudgeController{judgeService: judgeService}
}

// Run judges the code against the sample testcases without persisting anything.
func (h *JudgeController) Run(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	accountID, _ := middleware.AccountID(c)
	result, err := h.judgeService.Run(c.Request.Context(), service.RunInput{
		ProblemID:  c.Param("id"),
		LanguageID: req.LanguageID,
		Code:       req.Code,
		AccountID:  accountID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Submit judges the code against every testcase and stores the submission.
func (h *JudgeController) Submit(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Unauthorized(c, "Login required")
		return
	}
	submission, err := h.judgeService.Submit(c.Request.Context(), service.SubmitInput{
		ProblemID:      c.Param("id"),
		LanguageID:     req.LanguageID,
		Code:           req.Code,
		AccountID:      accountID,
		IdempotencyKey: c.GetHeader(idempotencyHeader),
		ClientIP:       c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, submission)
}

// ListSubmissions lists a problem's submissions, newest first.
func (h *JudgeController) ListSubmissions(c *gin.Context) {
	limit := defaultListSize
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			response.BadRequest(c, "Invalid limit")
			return
		}
		if v > maxListSize {
			v = maxListSize
		}
		limit = v
	}
	list, err := h.judgeService.ListSubmissions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// GetSubmission returns one submission.
func (h *JudgeController) GetSubmission(c *gin.Context) {
	submission, err := h.judgeService.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, submission)
}

// DefaultCode returns the starter code of every profile.
func (h *JudgeController) DefaultCode(c *gin.Context) {
	codes, err := h.judgeService.DefaultCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, codes)
}

// CodeRequest is the run and submit payload. Code is base64 encoded.
type CodeRequest struct {
	LanguageID string `json:"language_id" binding:"required"`
	Code       string `json:"code" binding:"required"`
}
