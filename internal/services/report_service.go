package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/lms-labs/quiz-service/internal/repositories"
	"github.com/lms-labs/quiz-service/internal/validator"
)

type reportService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewReportService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ReportService {
	return &reportService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ListAttempts returns attempts of a quiz for its creator.
func (s *reportService) ListAttempts(ctx context.Context, quizID, requesterID string, req *ListAttemptsRequest) (*AttemptListResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.CreatedBy != requesterID {
		return nil, NewPermissionError("quiz", "list_attempts", "not the quiz creator")
	}

	filters := repositories.AttemptFilters{
		CompletedOnly: req.CompletedOnly,
		Limit:         req.Limit,
		Offset:        req.Offset,
		SortBy:        req.SortBy,
		SortOrder:     req.SortOrder,
	}

	attempts, total, err := s.repo.Attempt().ListByQuiz(ctx, nil, quizID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return &AttemptListResponse{
		Attempts: attempts,
		Total:    total,
	}, nil
}

// ExportResults writes all completed attempts of a quiz into an xlsx
// workbook, one row per attempt. Only the quiz creator may export.
func (s *reportService) ExportResults(ctx context.Context, quizID, requesterID string) ([]byte, string, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrQuizNotFound
		}
		return nil, "", fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.CreatedBy != requesterID {
		return nil, "", NewPermissionError("quiz", "export_results", "not the quiz creator")
	}

	attempts, _, err := s.repo.Attempt().ListByQuiz(ctx, nil, quizID, repositories.AttemptFilters{
		CompletedOnly: true,
		SortBy:        "started_at",
		SortOrder:     "asc",
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to list attempts: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Attempt ID", "User ID", "Started At", "Completed At", "Score (%)", "Passed"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, "", fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, attempt := range attempts {
		score := 0.0
		if attempt.Score != nil {
			score = *attempt.Score
		}
		completedAt := ""
		if attempt.CompletedAt != nil {
			completedAt = attempt.CompletedAt.UTC().Format("2006-01-02 15:04:05")
		}

		values := []interface{}{
			attempt.ID,
			attempt.UserID,
			attempt.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			completedAt,
			score,
			attempt.IsPassed,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, "", fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	filename := fmt.Sprintf("quiz-results-%s.xlsx", quizID)

	s.logger.Info("Results exported",
		"quiz_id", quizID,
		"attempts", len(attempts))

	return buf.Bytes(), filename, nil
}
