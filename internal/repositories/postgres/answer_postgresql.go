package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lms-labs/quiz-service/internal/models"
	"github.com/lms-labs/quiz-service/internal/repositories"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB, _ *redis.Client) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Upsert keys on (attempt_id, question_id). Re-answering a question replaces
// the payload and resets its grading state; it never creates a second row.
func (a *AnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	db := a.getDB(tx)

	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}

	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"value", "result", "points_awarded", "updated_at",
			}),
		}).
		Create(answer).Error
}

func (a *AnswerPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID string) ([]*models.Answer, error) {
	db := a.getDB(tx)
	var answers []*models.Answer
	if err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) Update(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Save(answer).Error
}
