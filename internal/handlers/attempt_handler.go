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

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      validator,
	}
}

// StartAttempt starts a new quiz attempt
// @Summary Start quiz attempt
// @Description Starts a new attempt on a published quiz for the authenticated user
// @Tags attempts
// @Accept json
// @Produce json
// @Param quiz_id path string true "Quiz ID"
// @Success 201 {object} models.QuizAttempt
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{quiz_id}/attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	quizID := ParseStringIDParam(c, "quiz_id")
	if quizID == "" {
		return
	}

	userID, ok := GetUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting quiz attempt", "quiz_id", quizID)

	attempt, err := h.attemptService.Start(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// SaveAnswer saves or replaces an answer on an open attempt
// @Summary Save answer
// @Description Upserts the answer for one question of an open attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param quiz_id path string true "Quiz ID"
// @Param attempt_id path string true "Attempt ID"
// @Param answer body services.SaveAnswerRequest true "Answer data"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{quiz_id}/attempts/{attempt_id}/answers [post]
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	quizID := ParseStringIDParam(c, "quiz_id")
	if quizID == "" {
		return
	}
	attemptID := ParseStringIDParam(c, "attempt_id")
	if attemptID == "" {
		return
	}

	userID, ok := GetUserID(c)
	if !ok {
		return
	}

	var req services.SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	err := h.attemptService.SaveAnswer(c.Request.Context(), quizID, attemptID, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Answer saved",
	})
}

// GetForTaking returns the attempt with quiz content for the taking view
// @Summary Get attempt for taking
// @Description Returns the open attempt, its quiz questions without answer keys, and previously saved answers
// @Tags attempts
// @Produce json
// @Param quiz_id path string true "Quiz ID"
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} services.TakingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{quiz_id}/attempts/{attempt_id}/take [get]
func (h *AttemptHandler) GetForTaking(c *gin.Context) {
	quizID := ParseStringIDParam(c, "quiz_id")
	if quizID == "" {
		return
	}
	attemptID := ParseStringIDParam(c, "attempt_id")
	if attemptID == "" {
		return
	}

	userID, ok := GetUserID(c)
	if !ok {
		return
	}

	taking, err := h.attemptService.GetForTaking(c.Request.Context(), quizID, attemptID, userID)
	if err != nil {
		// A completed attempt cannot be re-entered; point the client at the
		// results view instead.
		if errors.Is(err, services.ErrAttemptAlreadyCompleted) {
			c.JSON(http.StatusConflict, gin.H{
				"error":       "COMPLETED",
				"redirect_to": resultsPath(quizID, attemptID),
			})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, taking)
}

// SubmitAttempt submits an attempt for grading
// @Summary Submit quiz attempt
// @Description Grades all saved answers, closes the attempt and returns the score
// @Tags attempts
// @Produce json
// @Param quiz_id path string true "Quiz ID"
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} services.SubmitResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{quiz_id}/attempts/{attempt_id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	quizID := ParseStringIDParam(c, "quiz_id")
	if quizID == "" {
		return
	}
	attemptID := ParseStringIDParam(c, "attempt_id")
	if attemptID == "" {
		return
	}

	userID, ok := GetUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting quiz attempt", "attempt_id", attemptID)

	result, err := h.attemptService.Submit(c.Request.Context(), quizID, attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetResults returns the graded outcome of a completed attempt
// @Summary Get attempt results
// @Description Returns the completed attempt with per question results and aggregates
// @Tags attempts
// @Produce json
// @Param quiz_id path string true "Quiz ID"
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} services.ResultsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{quiz_id}/attempts/{attempt_id}/results [get]
func (h *AttemptHandler) GetResults(c *gin.Context) {
	quizID := ParseStringIDParam(c, "quiz_id")
	if quizID == "" {
		return
	}
	attemptID := ParseStringIDParam(c, "attempt_id")
	if attemptID == "" {
		return
	}

	userID, ok := GetUserID(c)
	if !ok {
		return
	}

	results, err := h.attemptService.GetResults(c.Request.Context(), quizID, attemptID, userID)
	if err != nil {
		// An open attempt has no results yet; point the client back at the
		// taking view.
		if errors.Is(err, services.ErrAttemptNotCompleted) {
			c.JSON(http.StatusConflict, gin.H{
				"error":       "NOT_COMPLETED",
				"redirect_to": takePath(quizID, attemptID),
			})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

func takePath(quizID, attemptID string) string {
	return fmt.Sprintf("/api/v1/quizzes/%s/attempts/%s/take", quizID, attemptID)
}

func resultsPath(quizID, attemptID string) string {
	return fmt.Sprintf("/api/v1/quizzes/%s/attempts/%s/results", quizID, attemptID)
}

// handleServiceError maps service errors to HTTP responses
func (h *AttemptHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: validationErrors,
		})
		return
	}

	var businessErr *services.BusinessRuleError
	if errors.As(err, &businessErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": businessErr.Message,
			"rule":    businessErr.Rule,
			"context": businessErr.Context,
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
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Attempt not found"})
	case errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Question not found"})
	case errors.Is(err, services.ErrAttemptAlreadyCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Attempt already completed"})
	case errors.Is(err, services.ErrAttemptNotCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Attempt not completed"})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Unauthorized"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Forbidden"})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
