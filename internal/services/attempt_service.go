package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lms-labs/quiz-service/internal/events"
	"github.com/lms-labs/quiz-service/internal/models"
	"github.com/lms-labs/quiz-service/internal/repositories"
	"github.com/lms-labs/quiz-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	grading   GradingService
	publisher events.EventPublisher

	// injectable clock for deterministic tests
	now func() time.Time
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, grading GradingService, publisher events.EventPublisher) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		grading:   grading,
		publisher: publisher,
		now:       time.Now,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// Start opens a new attempt against a published quiz. Retakes are
// unrestricted: every call creates a fresh attempt.
func (s *attemptService) Start(ctx context.Context, quizID, userID string) (*models.QuizAttempt, error) {
	s.logger.Info("Starting quiz attempt",
		"quiz_id", quizID,
		"user_id", userID)

	// An unpublished quiz is indistinguishable from a missing one
	if _, err := s.repo.Quiz().GetPublished(ctx, nil, quizID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	attempt := &models.QuizAttempt{
		ID:        uuid.NewString(),
		QuizID:    quizID,
		UserID:    userID,
		StartedAt: s.now(),
	}

	if err := s.repo.Attempt().Create(ctx, nil, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info("Quiz attempt started",
		"attempt_id", attempt.ID,
		"quiz_id", quizID,
		"user_id", userID)

	return attempt, nil
}

// SaveAnswer upserts one answer of an open attempt. Saving never grades:
// the stored result stays ungraded until submit.
func (s *attemptService) SaveAnswer(ctx context.Context, quizID, attemptID, userID string, req *SaveAnswerRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	attempt, err := s.getOwnedAttempt(ctx, quizID, attemptID, userID)
	if err != nil {
		return err
	}

	if attempt.IsCompleted() {
		return ErrAttemptAlreadyCompleted
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	question := findQuestion(quiz, req.QuestionID)
	if question == nil {
		return ErrQuestionNotFound
	}

	if verrs := s.validator.ValidateAnswerForQuestion(question.Type, req.Value); verrs.HasErrors() {
		return verrs
	}

	value, err := models.EncodeAnswerValue(models.AnswerValue{
		OptionID: req.Value.OptionID,
		Text:     req.Value.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode answer: %w", err)
	}

	answer := &models.Answer{
		AttemptID:  attemptID,
		QuestionID: req.QuestionID,
		Value:      value,
		Result:     models.Ungraded,
	}

	if err := s.repo.Answer().Upsert(ctx, nil, answer); err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}

	s.logger.Debug("Answer saved",
		"attempt_id", attemptID,
		"question_id", req.QuestionID)

	return nil
}

// GetForTaking loads everything the taking view needs. Option correctness
// flags never leave the service here.
func (s *attemptService) GetForTaking(ctx context.Context, quizID, attemptID, userID string) (*TakingResponse, error) {
	attempt, err := s.getOwnedAttemptWithAnswers(ctx, quizID, attemptID, userID)
	if err != nil {
		return nil, err
	}

	if attempt.IsCompleted() {
		return nil, ErrAttemptAlreadyCompleted
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	resp := &TakingResponse{
		Attempt: attempt,
		Quiz: QuizInfo{
			ID:           quiz.ID,
			Title:        quiz.Title,
			Description:  quiz.Description,
			PassingScore: quiz.PassingScore,
			TimeLimit:    quiz.TimeLimit,
		},
		Questions: make([]TakingQuestion, 0, len(quiz.Questions)),
		Answers:   make([]SavedAnswer, 0, len(attempt.Answers)),
	}

	for _, q := range quiz.Questions {
		tq := TakingQuestion{
			ID:      q.ID,
			Type:    q.Type,
			Text:    q.Text,
			Points:  q.Points,
			Order:   q.Order,
			Options: make([]TakingOption, 0, len(q.Options)),
		}
		for _, opt := range q.Options {
			tq.Options = append(tq.Options, TakingOption{
				ID:    opt.ID,
				Text:  opt.Text,
				Order: opt.Order,
			})
		}
		resp.Questions = append(resp.Questions, tq)
	}

	for i := range attempt.Answers {
		value, err := attempt.Answers[i].DecodeValue()
		if err != nil {
			return nil, fmt.Errorf("failed to decode saved answer: %w", err)
		}
		resp.Answers = append(resp.Answers, SavedAnswer{
			QuestionID: attempt.Answers[i].QuestionID,
			Value:      value,
		})
	}

	return resp, nil
}

// Submit is the only open-to-closed transition. It grades the attempt and
// persists answer results plus the attempt aggregate in one transaction,
// then publishes attempt.completed.
func (s *attemptService) Submit(ctx context.Context, quizID, attemptID, userID string) (*SubmitResponse, error) {
	s.logger.Info("Submitting quiz attempt",
		"attempt_id", attemptID,
		"user_id", userID)

	var resp *SubmitResponse
	var eventData events.AttemptCompletedData

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := txRepo.Attempt().GetOwned(ctx, nil, attemptID, userID, quizID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if attempt.IsCompleted() {
			return ErrAttemptAlreadyCompleted
		}

		quiz, err := txRepo.Quiz().GetByIDWithQuestions(ctx, nil, quizID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuizNotFound
			}
			return fmt.Errorf("failed to get quiz: %w", err)
		}

		answers, err := txRepo.Answer().GetByAttempt(ctx, nil, attemptID)
		if err != nil {
			return fmt.Errorf("failed to get answers: %w", err)
		}

		grade, err := s.grading.Grade(quiz, answers)
		if err != nil {
			return fmt.Errorf("failed to grade attempt: %w", err)
		}

		// Persist per-answer results. Only existing rows are written:
		// unanswered questions count in the aggregate but leave no row.
		for _, ans := range answers {
			qGrade := grade.GradeFor(ans.QuestionID)
			if qGrade == nil {
				continue
			}
			ans.Result = qGrade.Result
			ans.PointsAwarded = qGrade.PointsAwarded
			if err := txRepo.Answer().Update(ctx, nil, ans); err != nil {
				return fmt.Errorf("failed to update answer result: %w", err)
			}
		}

		completedAt := s.now()
		score := grade.ScorePercent
		attempt.CompletedAt = &completedAt
		attempt.Score = &score
		attempt.IsPassed = grade.Passed

		if err := txRepo.Attempt().Update(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}

		resp = &SubmitResponse{
			AttemptID:     attempt.ID,
			Score:         score,
			IsPassed:      grade.Passed,
			CompletedAt:   completedAt,
			PendingReview: grade.PendingCount(),
		}
		eventData = events.AttemptCompletedData{
			AttemptID: attempt.ID,
			QuizID:    quizID,
			UserID:    userID,
			Score:     score,
			Passed:    grade.Passed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Publish only after the transaction committed. A publish failure is
	// logged, not surfaced: the submit already succeeded.
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewEvent(events.EventAttemptCompleted, eventData)); err != nil {
			s.logger.Error("Failed to publish attempt completed event",
				"attempt_id", attemptID,
				"error", err)
		}
	}

	s.logger.Info("Quiz attempt submitted",
		"attempt_id", attemptID,
		"score", resp.Score,
		"is_passed", resp.IsPassed)

	return resp, nil
}

// GetResults aggregates a completed attempt for the results view.
func (s *attemptService) GetResults(ctx context.Context, quizID, attemptID, userID string) (*ResultsResponse, error) {
	attempt, err := s.getOwnedAttemptWithAnswers(ctx, quizID, attemptID, userID)
	if err != nil {
		return nil, err
	}

	if !attempt.IsCompleted() {
		return nil, ErrAttemptNotCompleted
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	resp := &ResultsResponse{
		Attempt:           attempt,
		TotalQuestions:    len(quiz.Questions),
		AnsweredQuestions: len(attempt.Answers),
		// TotalPoints is the quiz maximum, not the points earned; the
		// earned side is already folded into Attempt.Score.
		TotalPoints: quiz.TotalPoints(),
	}
	for i := range attempt.Answers {
		if attempt.Answers[i].Result == models.Correct {
			resp.CorrectAnswers++
		}
	}

	return resp, nil
}

// ===== HELPERS =====

func (s *attemptService) getOwnedAttempt(ctx context.Context, quizID, attemptID, userID string) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetOwned(ctx, nil, attemptID, userID, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

func (s *attemptService) getOwnedAttemptWithAnswers(ctx context.Context, quizID, attemptID, userID string) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetOwnedWithAnswers(ctx, nil, attemptID, userID, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

func findQuestion(quiz *models.Quiz, questionID string) *models.Question {
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == questionID {
			return &quiz.Questions[i]
		}
	}
	return nil
}
