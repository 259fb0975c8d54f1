package services

import (
	"fmt"
	"log/slog"

	"github.com/lms-labs/quiz-service/internal/models"
)

type gradingService struct {
	logger *slog.Logger
}

func NewGradingService(logger *slog.Logger) GradingService {
	return &gradingService{logger: logger}
}

// Grade computes the grading outcome for every question of the quiz.
//
// Choice questions award full points when the selected option belongs to the
// question and is marked correct, zero otherwise. An option id from another
// question grades as incorrect rather than erroring. Text questions always
// grade to pending review with zero points; manual review happens elsewhere
// and never changes the score recorded here. Unanswered questions grade as
// incorrect with zero points.
//
// The score is the earned share of total points as a percentage. A quiz whose
// questions carry zero total points scores 0, and passes only when the
// passing score is also 0.
func (s *gradingService) Grade(quiz *models.Quiz, answers []*models.Answer) (*AttemptGrade, error) {
	byQuestion := make(map[string]*models.Answer, len(answers))
	for _, ans := range answers {
		byQuestion[ans.QuestionID] = ans
	}

	grade := &AttemptGrade{
		Questions: make([]QuestionGrade, 0, len(quiz.Questions)),
	}

	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		grade.TotalPoints += question.Points

		qGrade, err := s.gradeQuestion(question, byQuestion[question.ID])
		if err != nil {
			return nil, err
		}

		grade.EarnedPoints += qGrade.PointsAwarded
		grade.Questions = append(grade.Questions, qGrade)
	}

	if grade.TotalPoints > 0 {
		grade.ScorePercent = float64(grade.EarnedPoints) / float64(grade.TotalPoints) * 100
	}
	grade.Passed = grade.ScorePercent >= float64(quiz.PassingScore)

	return grade, nil
}

func (s *gradingService) gradeQuestion(question *models.Question, answer *models.Answer) (QuestionGrade, error) {
	qGrade := QuestionGrade{
		QuestionID: question.ID,
		Result:     models.Incorrect,
		Answered:   answer != nil,
	}

	if answer == nil {
		return qGrade, nil
	}

	value, err := answer.DecodeValue()
	if err != nil {
		return qGrade, fmt.Errorf("failed to decode answer for question %s: %w", question.ID, err)
	}

	if question.Type.IsAutoGradable() {
		option := question.FindOption(value.OptionID)
		if option != nil && option.IsCorrect {
			qGrade.Result = models.Correct
			qGrade.PointsAwarded = question.Points
		}
		return qGrade, nil
	}

	// Free-text answers wait for a reviewer and earn nothing at submit time
	qGrade.Result = models.PendingReview
	return qGrade, nil
}
