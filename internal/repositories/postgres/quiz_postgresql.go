package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/lms-labs/quiz-service/internal/cache"
	"github.com/lms-labs/quiz-service/internal/models"
	"github.com/lms-labs/quiz-service/internal/repositories"
)

type QuizPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuizPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuizPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

func (q *QuizPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error) {
	db := q.getDB(tx)
	var quiz models.Quiz
	if err := db.WithContext(ctx).First(&quiz, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error) {
	db := q.getDB(tx)

	// Quiz definitions are read-mostly during taking, cache the full graph
	cacheKey := fmt.Sprintf("details:%s", id)
	var quiz models.Quiz

	err := q.cacheManager.Quiz.CacheOrExecute(ctx, cacheKey, &quiz, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var dbQuiz models.Quiz
		if err := db.WithContext(ctx).
			Preload("Questions", func(db *gorm.DB) *gorm.DB {
				return db.Order("quiz_questions.\"order\" ASC")
			}).
			Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
				return db.Order("quiz_options.\"order\" ASC")
			}).
			First(&dbQuiz, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &dbQuiz, nil
	})
	if err != nil {
		return nil, err
	}

	return &quiz, nil
}

func (q *QuizPostgreSQL) GetPublished(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error) {
	db := q.getDB(tx)
	var quiz models.Quiz
	if err := db.WithContext(ctx).
		Where("id = ? AND is_published = ?", id, true).
		First(&quiz).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}
