package controller

import (
	"strconv"

	"codecampus/internal/exercise/repository"
	"codecampus/internal/exercise/service"
	"codecampus/internal/judge"
	"codecampus/internal/trust"
	"codecampus/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// SubmitController handles submission HTTP endpoints.
type SubmitController struct {
	submitService *service.SubmitService
}

// NewSubmitController creates a new SubmitController.
func NewSubmitController(submitService *service.SubmitService) *SubmitController {
	return &SubmitController{submitService: submitService}
}

// RegisterRoutes mounts submission routes behind the trust middleware.
func (h *SubmitController) RegisterRoutes(r gin.IRouter, verifier *trust.Verifier) {
	group := r.Group("/submissions", trust.RequireAssertion(verifier))
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.GET("", h.List)
}

// Create judges a submission and records the verdict.
func (h *SubmitController) Create(c *gin.Context) {
	caller, ok := trust.CallerFromContext(c)
	if !ok {
		response.BadRequest(c, "Missing caller identity")
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.submitService.Submit(c.Request.Context(), service.SubmitInput{
		UserID:     caller.UserID,
		ProblemID:  req.ProblemID,
		Language:   req.Language,
		SourceCode: req.SourceCode,
		TestInputs: req.TestInputs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, SubmitResponse{
		SubmissionID: result.SubmissionID,
		Verdict:      result.Verdict,
		TimeMs:       result.TimeMs,
		MemoryKb:     result.MemoryKb,
		Results:      toTestResults(result.Results),
	})
}

// Get returns one submission record.
func (h *SubmitController) Get(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	submission, err := h.submitService.GetSubmission(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toSubmissionView(submission))
}

// List returns the caller's submissions, newest first.
func (h *SubmitController) List(c *gin.Context) {
	caller, ok := trust.CallerFromContext(c)
	if !ok {
		response.BadRequest(c, "Missing caller identity")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	submissions, err := h.submitService.ListSubmissions(c.Request.Context(), caller.UserID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]SubmissionView, 0, len(submissions))
	for _, s := range submissions {
		views = append(views, toSubmissionView(s))
	}
	response.Success(c, ListResponse{Items: views})
}

// SubmitRequest defines the submission payload.
type SubmitRequest struct {
	ProblemID  int64    `json:"problem_id" binding:"required"`
	Language   string   `json:"language" binding:"required"`
	SourceCode string   `json:"source_code" binding:"required"`
	TestInputs []string `json:"test_inputs" binding:"required"`
}

// TestResultView is one per-test verdict in the response.
type TestResultView struct {
	Status   string `json:"status"`
	Stdout   string `json:"stdout"`
	TimeMs   int64  `json:"time_ms"`
	MemoryKb int64  `json:"memory_kb"`
}

// SubmitResponse defines the submission response payload.
type SubmitResponse struct {
	SubmissionID string           `json:"submission_id"`
	Verdict      string           `json:"verdict"`
	TimeMs       int64            `json:"time_ms"`
	MemoryKb     int64            `json:"memory_kb"`
	Results      []TestResultView `json:"results"`
}

// SubmissionView is one stored submission in query responses.
type SubmissionView struct {
	SubmissionID string `json:"submission_id"`
	ProblemID    int64  `json:"problem_id"`
	UserID       int64  `json:"user_id"`
	Language     string `json:"language"`
	Verdict      string `json:"verdict"`
	TimeMs       int64  `json:"time_ms"`
	MemoryKb     int64  `json:"memory_kb"`
	CreatedAt    string `json:"created_at"`
}

// ListResponse wraps a submission listing.
type ListResponse struct {
	Items []SubmissionView `json:"items"`
}

func toTestResults(verdicts []judge.TestVerdict) []TestResultView {
	views := make([]TestResultView, 0, len(verdicts))
	for _, v := range verdicts {
		views = append(views, TestResultView{
			Status:   v.Status,
			Stdout:   v.Stdout,
			TimeMs:   v.TimeMs,
			MemoryKb: v.MemoryKb,
		})
	}
	return views
}

func toSubmissionView(s *repository.Submission) SubmissionView {
	return SubmissionView{
		SubmissionID: s.SubmissionID,
		ProblemID:    s.ProblemID,
		UserID:       s.UserID,
		Language:     s.Language,
		Verdict:      s.Verdict,
		TimeMs:       s.TimeMs,
		MemoryKb:     s.MemoryKb,
		CreatedAt:    s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
