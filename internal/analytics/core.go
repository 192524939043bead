package analytics

import (
	"context"
	"log/slog"

	"github.com/adetunji-o/relaypay/internal/telemetry"
)

// PaymentMetricsStore executes one scoped aggregate query per metric type
// over persisted attempt rows.
type PaymentMetricsStore interface {
	Name() string
	LoadPaymentMetrics(ctx context.Context, metric MetricType, merchantID string, req MetricsRequest) ([]BucketRow[PaymentMetricRow], error)
}

type RefundMetricsStore interface {
	Name() string
	LoadRefundMetrics(ctx context.Context, metric MetricType, merchantID string, req MetricsRequest) ([]BucketRow[RefundMetricRow], error)
}

type APIEventMetricsStore interface {
	Name() string
	LoadAPIEventMetrics(ctx context.Context, metric MetricType, merchantID string, req MetricsRequest) ([]BucketRow[APIEventMetricRow], error)
}

type MetricsMetadata struct {
	CurrentTimeRange TimeRange `json:"current_time_range"`
}

type MetricsResponse[T any] struct {
	QueryData []T             `json:"query_data"`
	MetaData  MetricsMetadata `json:"meta_data"`
}

type PaymentMetricsBucketResponse struct {
	PaymentMetricRow
	MetricsBucketIdentifier
}

type RefundMetricsBucketResponse struct {
	RefundMetricRow
	MetricsBucketIdentifier
}

type APIEventMetricsBucketResponse struct {
	APIEventMetricRow
	MetricsBucketIdentifier
}

// GetPaymentMetrics computes the requested payment aggregates for one
// merchant and renders them as bucket responses.
func GetPaymentMetrics(
	ctx context.Context,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
	store PaymentMetricsStore,
	merchantID string,
	req MetricsRequest,
) (*MetricsResponse[PaymentMetricsBucketResponse], error) {
	rows, err := Accumulate(ctx, logger, metrics, store.Name(), req,
		func(ctx context.Context, metric MetricType) ([]BucketRow[PaymentMetricRow], error) {
			return store.LoadPaymentMetrics(ctx, metric, merchantID, req)
		})
	if err != nil {
		return nil, err
	}

	out := make([]PaymentMetricsBucketResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, PaymentMetricsBucketResponse{
			PaymentMetricRow:        r.Row,
			MetricsBucketIdentifier: r.ID,
		})
	}

	return &MetricsResponse[PaymentMetricsBucketResponse]{
		QueryData: out,
		MetaData:  MetricsMetadata{CurrentTimeRange: req.TimeRange},
	}, nil
}

func GetRefundMetrics(
	ctx context.Context,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
	store RefundMetricsStore,
	merchantID string,
	req MetricsRequest,
) (*MetricsResponse[RefundMetricsBucketResponse], error) {
	rows, err := Accumulate(ctx, logger, metrics, store.Name(), req,
		func(ctx context.Context, metric MetricType) ([]BucketRow[RefundMetricRow], error) {
			return store.LoadRefundMetrics(ctx, metric, merchantID, req)
		})
	if err != nil {
		return nil, err
	}

	out := make([]RefundMetricsBucketResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, RefundMetricsBucketResponse{
			RefundMetricRow:         r.Row,
			MetricsBucketIdentifier: r.ID,
		})
	}

	return &MetricsResponse[RefundMetricsBucketResponse]{
		QueryData: out,
		MetaData:  MetricsMetadata{CurrentTimeRange: req.TimeRange},
	}, nil
}

func GetAPIEventMetrics(
	ctx context.Context,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
	store APIEventMetricsStore,
	merchantID string,
	req MetricsRequest,
) (*MetricsResponse[APIEventMetricsBucketResponse], error) {
	rows, err := Accumulate(ctx, logger, metrics, store.Name(), req,
		func(ctx context.Context, metric MetricType) ([]BucketRow[APIEventMetricRow], error) {
			return store.LoadAPIEventMetrics(ctx, metric, merchantID, req)
		})
	if err != nil {
		return nil, err
	}

	out := make([]APIEventMetricsBucketResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, APIEventMetricsBucketResponse{
			APIEventMetricRow:       r.Row,
			MetricsBucketIdentifier: r.ID,
		})
	}

	return &MetricsResponse[APIEventMetricsBucketResponse]{
		QueryData: out,
		MetaData:  MetricsMetadata{CurrentTimeRange: req.TimeRange},
	}, nil
}
