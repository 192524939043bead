// Package handlers holds the HTTP route handlers for payments, refunds and
// analytics.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/adetunji-o/relaypay/internal/analytics"
	"github.com/adetunji-o/relaypay/internal/application"
	"github.com/adetunji-o/relaypay/internal/application/flows"
	"github.com/adetunji-o/relaypay/internal/domain"
	"github.com/adetunji-o/relaypay/internal/telemetry"
)

// IntentStore is the intent persistence surface the handlers need beyond the
// engine's read/update port.
type IntentStore interface {
	application.IntentRepository
	InsertIntent(ctx context.Context, intent *domain.PaymentIntent) error
}

type AttemptStore interface {
	application.AttemptRepository
}

type RefundStore interface {
	application.RefundRepository
	InsertRefund(ctx context.Context, refund *domain.Refund) error
}

// MetricsProvider bundles the three analytics stores the metrics routes
// query.
type MetricsProvider struct {
	Payments  analytics.PaymentMetricsStore
	Refunds   analytics.RefundMetricsStore
	APIEvents analytics.APIEventMetricsStore
}

type Handlers struct {
	engine       *flows.Engine
	intents      IntentStore
	attempts     AttemptStore
	refunds      RefundStore
	configs      application.ConfigRepository
	provider     MetricsProvider
	queryTimeout time.Duration
	metrics      *telemetry.Metrics
	logger       *slog.Logger
}

func NewHandlers(
	engine *flows.Engine,
	intents IntentStore,
	attempts AttemptStore,
	refunds RefundStore,
	configs application.ConfigRepository,
	provider MetricsProvider,
	queryTimeout time.Duration,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		engine:       engine,
		intents:      intents,
		attempts:     attempts,
		refunds:      refunds,
		configs:      configs,
		provider:     provider,
		queryTimeout: queryTimeout,
		metrics:      metrics,
		logger:       logger,
	}
}

// metricsContext bounds one analytics query to the configured timeout. A zero
// timeout leaves the request context as is.
func (h *Handlers) metricsContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.queryTimeout)
}
