package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateAttemptCache drops cached attempt state after a write
func InvalidateAttemptCache(ctx context.Context, cm *CacheManager, attemptID string) {
	SafeDelete(ctx, cm.Fast, fmt.Sprintf("attempt:id:%s", attemptID))
}
