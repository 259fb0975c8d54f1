package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lms-labs/quiz-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	UserID        *string    `json:"user_id"`
	CompletedOnly bool       `json:"completed_only"`
	DateFrom      *time.Time `json:"date_from"`
	DateTo        *time.Time `json:"date_to"`
	Limit         int        `json:"limit"`
	Offset        int        `json:"offset"`
	SortBy        string     `json:"sort_by"`    // "created_at", "started_at", "score"
	SortOrder     string     `json:"sort_order"` // "asc", "desc"
}

// ===== REPOSITORY INTERFACES =====

// QuizRepository is read-only: quiz authoring lives in another service.
type QuizRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error)
	// GetByIDWithQuestions preloads ordered questions and their ordered options.
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error)
	GetPublished(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.QuizAttempt, error)
	// GetOwned scopes the lookup to (id, userID, quizID) so a stranger's
	// attempt is indistinguishable from a missing one.
	GetOwned(ctx context.Context, tx *gorm.DB, id, userID, quizID string) (*models.QuizAttempt, error)
	GetOwnedWithAnswers(ctx context.Context, tx *gorm.DB, id, userID, quizID string) (*models.QuizAttempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID string, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
}

type AnswerRepository interface {
	// Upsert writes the answer keyed on (attempt_id, question_id),
	// replacing the payload when a row already exists.
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.Answer) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID string) ([]*models.Answer, error)
	Update(ctx context.Context, tx *gorm.DB, answer *models.Answer) error
}

// IsNotFoundError reports whether err is a gorm record miss.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
