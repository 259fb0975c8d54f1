package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lms-labs/quiz-service/internal/config"
	"github.com/lms-labs/quiz-service/internal/services"
	"github.com/lms-labs/quiz-service/internal/utils"
	"github.com/lms-labs/quiz-service/internal/validator"
)

type HandlerManager struct {
	attemptHandler *AttemptHandler
	quizHandler    *QuizHandler
	authMiddleware *CasdoorAuthMiddleware
	serviceManager services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig)

	return &HandlerManager{
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		quizHandler:    NewQuizHandler(serviceManager.Report(), validator, logger),
		authMiddleware: authMiddleware,
		serviceManager: serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", hm.HealthCheck)

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		quizzes := v1.Group("/quizzes")
		{
			// Taking routes - any authenticated user, attempts are scoped
			// to their owner in the service layer
			quizzes.POST("/:quiz_id/attempts", hm.attemptHandler.StartAttempt)
			quizzes.GET("/:quiz_id/attempts/:attempt_id/take", hm.attemptHandler.GetForTaking)
			quizzes.POST("/:quiz_id/attempts/:attempt_id/answers", hm.attemptHandler.SaveAnswer)
			quizzes.POST("/:quiz_id/attempts/:attempt_id/submit", hm.attemptHandler.SubmitAttempt)
			quizzes.GET("/:quiz_id/attempts/:attempt_id/results", hm.attemptHandler.GetResults)

			// Creator routes - ownership is checked against the quiz record
			quizzes.GET("/:quiz_id/attempts", hm.quizHandler.ListAttempts)
			quizzes.GET("/:quiz_id/export", hm.quizHandler.ExportResults)
		}
	}
}

// HealthCheck reports service health
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "quiz-service",
	})
}
