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

type AttemptPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.QuizAttempt, error) {
	db := a.getDB(tx)

	// Cache attempts on the hot taking path. Writes invalidate via
	// InvalidateAttemptCache so completion state is never stale.
	cacheKey := fmt.Sprintf("attempt:id:%s", id)
	var attempt models.QuizAttempt

	err := a.cacheManager.Fast.CacheOrExecute(ctx, cacheKey, &attempt, cache.FastCacheConfig.TTL, func() (interface{}, error) {
		var dbAttempt models.QuizAttempt
		if err := db.WithContext(ctx).First(&dbAttempt, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &dbAttempt, nil
	})
	if err != nil {
		return nil, err
	}

	return &attempt, nil
}

// GetOwned serves the taking-path reads through the cached lookup. The
// ownership check happens after the fetch; a stranger's attempt is
// indistinguishable from a missing one.
func (a *AttemptPostgreSQL) GetOwned(ctx context.Context, tx *gorm.DB, id, userID, quizID string) (*models.QuizAttempt, error) {
	attempt, err := a.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID || attempt.QuizID != quizID {
		return nil, gorm.ErrRecordNotFound
	}
	return attempt, nil
}

func (a *AttemptPostgreSQL) GetOwnedWithAnswers(ctx context.Context, tx *gorm.DB, id, userID, quizID string) (*models.QuizAttempt, error) {
	attempt, err := a.GetOwned(ctx, tx, id, userID, quizID)
	if err != nil {
		return nil, err
	}

	// Answers change on every autosave, read them fresh.
	db := a.getDB(tx)
	var answers []models.Answer
	if err := db.WithContext(ctx).
		Where("attempt_id = ?", id).
		Order("created_at ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	attempt.Answers = answers
	return attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(attempt).Error; err != nil {
		return err
	}
	cache.InvalidateAttemptCache(ctx, a.cacheManager, attempt.ID)
	return nil
}

func (a *AttemptPostgreSQL) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	db := a.getDB(tx)
	var attempts []*models.QuizAttempt
	var total int64

	// apply filters first
	query := db.WithContext(ctx).Model(&models.QuizAttempt{}).Where("quiz_id = ?", quizID)
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.applyPaginationAndSort(query, filters)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.CompletedOnly {
		query = query.Where("completed_at IS NOT NULL")
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}
	return query
}

func (a *AttemptPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	// Whitelist sort columns
	allowedSortColumns := map[string]bool{
		"created_at": true,
		"started_at": true,
		"score":      true,
	}

	sortBy := filters.SortBy
	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "started_at"
	}

	sortOrder := "DESC"
	if filters.SortOrder == "asc" || filters.SortOrder == "ASC" {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	return query
}
