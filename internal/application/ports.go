// Package application defines the ports the engine consumes and the
// service-level error envelope returned to route handlers.
package application

import (
	"context"
	"time"

	"github.com/adetunji-o/relaypay/internal/connector"
	"github.com/adetunji-o/relaypay/internal/domain"
)

// AttemptRepository is the persistence port for payment attempts.
type AttemptRepository interface {
	InsertAttempt(ctx context.Context, attempt *domain.PaymentAttempt) error
	FindAttemptByID(ctx context.Context, id string) (*domain.PaymentAttempt, error)
	UpdateAttempt(ctx context.Context, attempt *domain.PaymentAttempt) error
}

// IntentRepository is the persistence port for payment intents.
type IntentRepository interface {
	FindIntentByID(ctx context.Context, id string) (*domain.PaymentIntent, error)
	UpdateIntent(ctx context.Context, intent *domain.PaymentIntent) error
}

// RefundRepository is the persistence port for refunds.
type RefundRepository interface {
	FindRefundByID(ctx context.Context, id string) (*domain.Refund, error)
	UpdateRefund(ctx context.Context, refund *domain.Refund) error
}

// ConfigRepository serves free-form configuration rows (backoff mappings,
// connector credentials).
type ConfigRepository interface {
	FindConfigByKey(ctx context.Context, key string) (string, error)
}

// WireClient executes a prepared connector request over HTTPS.
type WireClient interface {
	Send(ctx context.Context, req connector.WireRequest) (connector.WireResponse, error)
}

// TokenCache is the shared, keyed access-token store. Reads treat errors as
// absence; writes are set-if-refreshed. Duplicate refreshes from concurrent
// misses are accepted since tokens carry their own expiry.
type TokenCache interface {
	GetAccessToken(ctx context.Context, key string) (*connector.AccessToken, error)
	SetAccessToken(ctx context.Context, key string, token connector.AccessToken, ttl time.Duration) error
}

// ResourceLock is the distributed mutual-exclusion contract used when two
// attempts must not run the same idempotent external operation concurrently.
type ResourceLock interface {
	Acquire(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

// ProcessTrackerTask is the retry-state record owned by the scheduler. The
// engine only ever asks for "retry at T" or "finish with status S".
type ProcessTrackerTask struct {
	ID             string
	Name           string
	AttemptID      string
	MerchantID     string
	RetryCount     int
	ScheduleTime   time.Time
	BusinessStatus string
}

// RetryScheduler is the narrow contract the engine consumes; schedule-time
// computation is opaque and nil means the retry budget is exhausted.
type RetryScheduler interface {
	NextScheduleTime(ctx context.Context, connectorName, merchantID string, retryCount int) (*time.Time, error)
	RetryProcess(ctx context.Context, task *ProcessTrackerTask, scheduleTime time.Time) error
	FinishProcessWithBusinessStatus(ctx context.Context, task *ProcessTrackerTask, status string) error
}
