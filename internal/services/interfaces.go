package services

import (
	"context"
	"time"

	"github.com/lms-labs/quiz-service/internal/models"
	"github.com/lms-labs/quiz-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use validator request types
type SaveAnswerRequest = validator.SaveAnswerRequest
type AnswerValueRequest = validator.AnswerValueRequest
type ListAttemptsRequest = validator.ListAttemptsRequest
type ValidationErrors = validator.ValidationErrors

// QuizInfo is the taker-facing view of a quiz definition
type QuizInfo struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	PassingScore int     `json:"passing_score"`
	TimeLimit    *int    `json:"time_limit"`
}

// TakingOption is an option with its correctness flag stripped
type TakingOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// TakingQuestion is a question as shown during taking
type TakingQuestion struct {
	ID      string              `json:"id"`
	Type    models.QuestionType `json:"type"`
	Text    string              `json:"text"`
	Points  int                 `json:"points"`
	Order   int                 `json:"order"`
	Options []TakingOption      `json:"options"`
}

// SavedAnswer echoes a previously saved answer back to the taking client
type SavedAnswer struct {
	QuestionID string             `json:"question_id"`
	Value      models.AnswerValue `json:"value"`
}

// TakingResponse is everything the taking client needs to render and resume
// an open attempt
type TakingResponse struct {
	Attempt   *models.QuizAttempt `json:"attempt"`
	Quiz      QuizInfo            `json:"quiz"`
	Questions []TakingQuestion    `json:"questions"`
	Answers   []SavedAnswer       `json:"answers"`
}

// SubmitResponse reports the graded outcome of a submit
type SubmitResponse struct {
	AttemptID     string    `json:"attempt_id"`
	Score         float64   `json:"score"`
	IsPassed      bool      `json:"is_passed"`
	CompletedAt   time.Time `json:"completed_at"`
	PendingReview int       `json:"pending_review"`
}

// ResultsResponse aggregates a completed attempt for the results view
type ResultsResponse struct {
	Attempt           *models.QuizAttempt `json:"attempt"`
	TotalQuestions    int                 `json:"total_questions"`
	AnsweredQuestions int                 `json:"answered_questions"`
	CorrectAnswers    int                 `json:"correct_answers"`
	TotalPoints       int                 `json:"total_points"`
}

// AttemptListResponse is the creator-facing attempt listing
type AttemptListResponse struct {
	Attempts []*models.QuizAttempt `json:"attempts"`
	Total    int64                 `json:"total"`
}

// ===== GRADING TYPES =====

// QuestionGrade is the grading outcome for one question
type QuestionGrade struct {
	QuestionID    string
	Result        models.Correctness
	PointsAwarded int
	Answered      bool
}

// AttemptGrade is the aggregate grading outcome for a whole attempt
type AttemptGrade struct {
	TotalPoints  int
	EarnedPoints int
	ScorePercent float64
	Passed       bool
	Questions    []QuestionGrade
}

// GradeFor returns the grade for one question, or nil when absent.
func (g *AttemptGrade) GradeFor(questionID string) *QuestionGrade {
	for i := range g.Questions {
		if g.Questions[i].QuestionID == questionID {
			return &g.Questions[i]
		}
	}
	return nil
}

// PendingCount counts questions awaiting manual review.
func (g *AttemptGrade) PendingCount() int {
	count := 0
	for i := range g.Questions {
		if g.Questions[i].Result == models.PendingReview {
			count++
		}
	}
	return count
}

// ===== SERVICE INTERFACES =====

// AttemptService owns the attempt lifecycle: start, autosave, taking view,
// submit and results. All lookups are scoped to the calling user.
type AttemptService interface {
	Start(ctx context.Context, quizID, userID string) (*models.QuizAttempt, error)
	SaveAnswer(ctx context.Context, quizID, attemptID, userID string, req *SaveAnswerRequest) error
	GetForTaking(ctx context.Context, quizID, attemptID, userID string) (*TakingResponse, error)
	Submit(ctx context.Context, quizID, attemptID, userID string) (*SubmitResponse, error)
	GetResults(ctx context.Context, quizID, attemptID, userID string) (*ResultsResponse, error)
}

// GradingService grades an attempt from the quiz definition and the stored
// answers. Pure and deterministic: no I/O, no clock.
type GradingService interface {
	Grade(quiz *models.Quiz, answers []*models.Answer) (*AttemptGrade, error)
}

// ReportService serves quiz creators: attempt listings and results export.
type ReportService interface {
	ListAttempts(ctx context.Context, quizID, requesterID string, req *ListAttemptsRequest) (*AttemptListResponse, error)
	ExportResults(ctx context.Context, quizID, requesterID string) ([]byte, string, error)
}

// ServiceManager wires all services together behind one lifecycle
type ServiceManager interface {
	Attempt() AttemptService
	Grading() GradingService
	Report() ReportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
