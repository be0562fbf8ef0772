package controller

import (
	"strconv"
	"strings"

	"codejudge/internal/judge/model"
	"codejudge/internal/problem/repository"
	"codejudge/internal/problem/service"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ProblemController handles problem catalogue HTTP endpoints.
type ProblemController struct {
	problemService *service.ProblemService
}

// NewProblemController creates a new ProblemController.
func NewProblemController(problemService *service.ProblemService) *ProblemController {
	return &ProblemController{problemService: problemService}
}

// List handles the filtered catalogue listing.
func (h *ProblemController) List(c *gin.Context) {
	filter := repository.ListFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  defaultPageSize,
	}
	if raw := c.Query("difficulty"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "Invalid difficulty")
			return
		}
		d := model.Difficulty(v)
		filter.Difficulty = &d
	}
	if raw := c.Query("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, strings.ToLower(tag))
			}
		}
	}
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			response.BadRequest(c, "Invalid limit")
			return
		}
		if v > maxPageSize {
			v = maxPageSize
		}
		filter.Limit = v
	}
	if raw := c.Query("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			response.BadRequest(c, "Invalid offset")
			return
		}
		filter.Offset = v
	}

	problems, err := h.problemService.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, problems)
}

// Get handles a single problem read.
func (h *ProblemController) Get(c *gin.Context) {
	problemID := c.Param("id")
	if problemID == "" {
		response.BadRequest(c, "Invalid problem id")
		return
	}
	detail, err := h.problemService.Get(c.Request.Context(), problemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

// Tags lists every tag.
func (h *ProblemController) Tags(c *gin.Context) {
	tags, err := h.problemService.Tags(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tags)
}

// Vote handles likes and dislikes.
func (h *ProblemController) Vote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.VoteType == nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	if err := h.problemService.Vote(c.Request.Context(), c.Param("id"), *req.VoteType); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Vote recorded", nil)
}

// Create handles problem creation.
func (h *ProblemController) Create(c *gin.Context) {
	var req CreateProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.problemService.Create(c.Request.Context(), service.CreateInput{
		Name:        req.Name,
		Difficulty:  req.Difficulty,
		Description: req.Description,
		Constraints: req.Constraints,
		Tags:        req.Tags,
		TestCases:   req.TestCases,
		Published:   req.Published,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Languages lists the languages a submission may use.
func (h *ProblemController) Languages(c *gin.Context) {
	languages, err := h.problemService.Languages(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, languages)
}

// VoteRequest defines the vote payload. 0 likes and 1 dislikes.
type VoteRequest struct {
	VoteType *int `json:"vote_type"`
}

// CreateProblemRequest defines problem creation payload.
type CreateProblemRequest struct {
	Name        string           `json:"name" binding:"required"`
	Difficulty  model.Difficulty `json:"difficulty"`
	Description string           `json:"description"`
	Constraints string           `json:"constraints"`
	Tags        []string         `json:"tags"`
	TestCases   []model.TestCase `json:"testcases" binding:"required"`
	Published   bool             `json:"published"`
}
