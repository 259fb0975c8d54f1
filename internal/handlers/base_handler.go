package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lms-labs/quiz-service/internal/utils"
)

// BaseHandler provides shared helpers for all HTTP handlers
type BaseHandler struct {
	logger utils.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Message interface{} `json:"message"`
	Details string      `json:"details,omitempty"`
}

// SuccessResponse is the standard success payload
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// LogRequest logs a request-scoped info message with the request context
func (h *BaseHandler) LogRequest(c *gin.Context, message string, args ...interface{}) {
	logger := utils.GetLogger(c, h.logger)
	fields := append([]interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}, args...)
	logger.Info(message, fields...)
}

// LogError logs a request-scoped error with the request context
func (h *BaseHandler) LogError(c *gin.Context, err error, message string) {
	logger := utils.GetLogger(c, h.logger)
	logger.Error(message,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", err)
}

// ParseStringIDParam extracts and validates a UUID path parameter. On failure
// it writes a 400 response and returns an empty string; callers must check
// for "" and return.
func ParseStringIDParam(c *gin.Context, param string) string {
	value := c.Param(param)
	if value == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing " + param + " parameter",
		})
		return ""
	}
	if _, err := uuid.Parse(value); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param + " format",
			Details: "expected a UUID",
		})
		return ""
	}
	return value
}

// GetUserID extracts the authenticated user ID from the request context. On
// failure it writes a 401 response and returns false.
func GetUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	userID, ok := value.(string)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}
