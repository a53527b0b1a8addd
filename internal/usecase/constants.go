package usecase

import "time"

const (
	// DefaultStoreWriteTimeout bounds the conditional store write. The write
	// is detached from the caller's cancellation once started.
	DefaultStoreWriteTimeout = 10 * time.Second

	// DefaultNotifyTimeout bounds a single notification call.
	DefaultNotifyTimeout = 5 * time.Second

	// DefaultOutboxWriteTimeout bounds recording a failed notification.
	DefaultOutboxWriteTimeout = 5 * time.Second

	// DefaultViewCacheTTL is how long decided views stay cached.
	DefaultViewCacheTTL = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// ViewCacheKey is the cache key of an expense view.
func ViewCacheKey(expenseID string) string {
	return "expense:view:" + expenseID
}
