package analytics

import (
	"context"
	"log/slog"
)

// Combined queries a primary and a secondary store for the same metric and
// always serves the primary's rows. The secondary result is only compared
// against the primary and any divergence is logged; secondary rows are never
// merged into the response, even when the primary returns fewer buckets.
type Combined struct {
	PrimaryPayments    PaymentMetricsStore
	SecondaryPayments  PaymentMetricsStore
	PrimaryRefunds     RefundMetricsStore
	SecondaryRefunds   RefundMetricsStore
	PrimaryAPIEvents   APIEventMetricsStore
	SecondaryAPIEvents APIEventMetricsStore
	Logger             *slog.Logger
}

func (c *Combined) Name() string { return "combined" }

func (c *Combined) LoadPaymentMetrics(ctx context.Context, metric MetricType, merchantID string, req MetricsRequest) ([]BucketRow[PaymentMetricRow], error) {
	return combinedLoad(c.Logger, metric,
		c.PrimaryPayments.Name(), c.SecondaryPayments.Name(),
		func() ([]BucketRow[PaymentMetricRow], error) {
			return c.PrimaryPayments.LoadPaymentMetrics(ctx, metric, merchantID, req)
		},
		func() ([]BucketRow[PaymentMetricRow], error) {
			return c.SecondaryPayments.LoadPaymentMetrics(ctx, metric, merchantID, req)
		})
}

func (c *Combined) LoadRefundMetrics(ctx context.Context, metric MetricType, merchantID string, req MetricsRequest) ([]BucketRow[RefundMetricRow], error) {
	return combinedLoad(c.Logger, metric,
		c.PrimaryRefunds.Name(), c.SecondaryRefunds.Name(),
		func() ([]BucketRow[RefundMetricRow], error) {
			return c.PrimaryRefunds.LoadRefundMetrics(ctx, metric, merchantID, req)
		},
		func() ([]BucketRow[RefundMetricRow], error) {
			return c.SecondaryRefunds.LoadRefundMetrics(ctx, metric, merchantID, req)
		})
}

func (c *Combined) LoadAPIEventMetrics(ctx context.Context, metric MetricType, merchantID string, req MetricsRequest) ([]BucketRow[APIEventMetricRow], error) {
	return combinedLoad(c.Logger, metric,
		c.PrimaryAPIEvents.Name(), c.SecondaryAPIEvents.Name(),
		func() ([]BucketRow[APIEventMetricRow], error) {
			return c.PrimaryAPIEvents.LoadAPIEventMetrics(ctx, metric, merchantID, req)
		},
		func() ([]BucketRow[APIEventMetricRow], error) {
			return c.SecondaryAPIEvents.LoadAPIEventMetrics(ctx, metric, merchantID, req)
		})
}

// combinedLoad runs both loads, reports divergence and returns the primary
// result. A secondary failure is logged and ignored; a primary failure fails
// the load.
func combinedLoad[R any](
	logger *slog.Logger,
	metric MetricType,
	primaryName, secondaryName string,
	loadPrimary func() ([]BucketRow[R], error),
	loadSecondary func() ([]BucketRow[R], error),
) ([]BucketRow[R], error) {
	primary, err := loadPrimary()
	if err != nil {
		return nil, err
	}

	secondary, secErr := loadSecondary()
	if secErr != nil {
		logger.Warn("secondary metrics store failed",
			"metric_type", metric,
			"secondary", secondaryName,
			"error", secErr)
		return primary, nil
	}

	if missing := divergentBuckets(primary, secondary); missing > 0 || len(primary) != len(secondary) {
		logger.Warn("metrics stores diverge, serving primary",
			"metric_type", metric,
			"primary", primaryName,
			"secondary", secondaryName,
			"primary_buckets", len(primary),
			"secondary_buckets", len(secondary),
			"unmatched_secondary_buckets", missing)
	}

	return primary, nil
}

// divergentBuckets counts secondary buckets whose identifier has no match in
// the primary result.
func divergentBuckets[R any](primary, secondary []BucketRow[R]) int {
	seen := make(map[uint64]struct{}, len(primary))
	for _, br := range primary {
		seen[br.ID.Hash()] = struct{}{}
	}
	missing := 0
	for _, br := range secondary {
		if _, ok := seen[br.ID.Hash()]; !ok {
			missing++
		}
	}
	return missing
}
