package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lms-labs/quiz-service/internal/services"
	"github.com/lms-labs/quiz-service/internal/utils"
	"github.com/lms-labs/quiz-service/internal/validator"
)

// QuizHandler serves the creator-facing endpoints: attempt listings and
// results export.
type QuizHandler struct {
	BaseHandler
	reportService services.ReportService
	validator     *validator.Validator
}

func NewQuizHandler(
	reportService services.ReportService,
	validator *validator.Validator,
	logger utils.Logger,
) *QuizHandler {
	return &QuizHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
		validator:     validator,
	}
}

// ListAttempts lists attempts of a quiz for its creator
// @Summary List quiz attempts
// @Description Returns attempts of a quiz with filtering and pagination, creator only
// @Tags quizzes
// @Produce json
// @Param quiz_id path string true "Quiz ID"
// @Param completed_only query bool false "Only completed attempts"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Param sort_by query string false "Sort column"
// @Param sort_order query string false "Sort direction"
// @Success 200 {object} services.AttemptListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{quiz_id}/attempts [get]
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	quizID := ParseStringIDParam(c, "quiz_id")
	if quizID == "" {
		return
	}

	userID, ok := GetUserID(c)
	if !ok {
		return
	}

	var req services.ListAttemptsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	listing, err := h.reportService.ListAttempts(c.Request.Context(), quizID, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// ExportResults downloads the completed attempts of a quiz as a workbook
// @Summary Export quiz results
// @Description Exports all completed attempts of a quiz as an xlsx file, creator only
// @Tags quizzes
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param quiz_id path string true "Quiz ID"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{quiz_id}/export [get]
func (h *QuizHandler) ExportResults(c *gin.Context) {
	quizID := ParseStringIDParam(c, "quiz_id")
	if quizID == "" {
		return
	}

	userID, ok := GetUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting quiz results", "quiz_id", quizID)

	content, filename, err := h.reportService.ExportResults(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

// handleServiceError maps service errors to HTTP responses
func (h *QuizHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: validationErrors,
		})
		return
	}

	var permErr *services.PermissionError
	if errors.As(err, &permErr) {
		c.JSON(http.StatusForbidden, gin.H{
			"message":  permErr.Error(),
			"resource": permErr.Resource,
			"action":   permErr.Action,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Quiz not found"})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Unauthorized"})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
