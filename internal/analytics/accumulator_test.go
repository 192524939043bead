package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adetunji-o/relaypay/internal/telemetry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

var testRange = TimeRange{
	StartTime: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	EndTime:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
}

func paymentRequest(metrics ...MetricType) MetricsRequest {
	return MetricsRequest{Metrics: metrics, TimeRange: testRange}
}

func TestAccumulateMergesRowsAcrossMetricTypes(t *testing.T) {
	metrics := telemetry.New(prometheus.NewRegistry())

	id := MetricsBucketIdentifier{Currency: strPtr("USD")}

	rows, err := Accumulate(context.Background(), testLogger(), metrics, "test",
		paymentRequest(MetricPaymentCount, MetricPaymentSuccessCount),
		func(_ context.Context, metric MetricType) ([]BucketRow[PaymentMetricRow], error) {
			switch metric {
			case MetricPaymentCount:
				return []BucketRow[PaymentMetricRow]{{ID: id, Row: PaymentMetricRow{PaymentCount: i64Ptr(10)}}}, nil
			default:
				return []BucketRow[PaymentMetricRow]{{ID: id, Row: PaymentMetricRow{PaymentSuccessCount: i64Ptr(7)}}}, nil
			}
		})
	require.NoError(t, err)

	// Both metric results land in one bucket.
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Row.PaymentCount)
	require.NotNil(t, rows[0].Row.PaymentSuccessCount)
	assert.Equal(t, int64(10), *rows[0].Row.PaymentCount)
	assert.Equal(t, int64(7), *rows[0].Row.PaymentSuccessCount)
}

func TestAccumulateFirstNonNullWins(t *testing.T) {
	metrics := telemetry.New(prometheus.NewRegistry())
	id := MetricsBucketIdentifier{Currency: strPtr("USD")}

	// Two tasks both populate PaymentCount for the same bucket; whichever
	// lands second must not overwrite the field.
	rows, err := Accumulate(context.Background(), testLogger(), metrics, "test",
		paymentRequest(MetricPaymentCount, MetricRetriesCount),
		func(_ context.Context, metric MetricType) ([]BucketRow[PaymentMetricRow], error) {
			if metric == MetricPaymentCount {
				return []BucketRow[PaymentMetricRow]{{ID: id, Row: PaymentMetricRow{PaymentCount: i64Ptr(1)}}}, nil
			}
			return []BucketRow[PaymentMetricRow]{{ID: id, Row: PaymentMetricRow{PaymentCount: i64Ptr(99)}}}, nil
		})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Row.PaymentCount)
	got := *rows[0].Row.PaymentCount
	assert.True(t, got == 1 || got == 99, "field must hold exactly one of the two values, got %d", got)
}

func TestAccumulateDistinctBucketsStaySeparate(t *testing.T) {
	metrics := telemetry.New(prometheus.NewRegistry())

	rows, err := Accumulate(context.Background(), testLogger(), metrics, "test",
		paymentRequest(MetricPaymentCount),
		func(context.Context, MetricType) ([]BucketRow[PaymentMetricRow], error) {
			return []BucketRow[PaymentMetricRow]{
				{ID: MetricsBucketIdentifier{Currency: strPtr("USD")}, Row: PaymentMetricRow{PaymentCount: i64Ptr(1)}},
				{ID: MetricsBucketIdentifier{Currency: strPtr("EUR")}, Row: PaymentMetricRow{PaymentCount: i64Ptr(2)}},
				{ID: MetricsBucketIdentifier{Currency: nil}, Row: PaymentMetricRow{PaymentCount: i64Ptr(3)}},
			}, nil
		})
	require.NoError(t, err)

	assert.Len(t, rows, 3)
}

func TestAccumulateTaskErrorAbortsEverything(t *testing.T) {
	metrics := telemetry.New(prometheus.NewRegistry())
	boom := errors.New("query exploded")

	rows, err := Accumulate(context.Background(), testLogger(), metrics, "test",
		paymentRequest(MetricPaymentCount, MetricPaymentSuccessCount, MetricRetriesCount),
		func(_ context.Context, metric MetricType) ([]BucketRow[PaymentMetricRow], error) {
			if metric == MetricPaymentSuccessCount {
				return nil, boom
			}
			return []BucketRow[PaymentMetricRow]{
				{ID: MetricsBucketIdentifier{Currency: strPtr("USD")}, Row: PaymentMetricRow{PaymentCount: i64Ptr(1)}},
			}, nil
		})

	require.Error(t, err)
	assert.Nil(t, rows, "partial results must be discarded")

	var me *MetricsError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, QueryExecutionFailure, me.Kind)
	assert.ErrorIs(t, err, boom)
}

func TestAccumulateValidatesRequest(t *testing.T) {
	metrics := telemetry.New(prometheus.NewRegistry())

	_, err := Accumulate(context.Background(), testLogger(), metrics, "test",
		MetricsRequest{TimeRange: testRange},
		func(context.Context, MetricType) ([]BucketRow[PaymentMetricRow], error) {
			t.Fatal("must not run")
			return nil, nil
		})

	var me *MetricsError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, QueryBuildingError, me.Kind)
}

func TestAccumulateGranularityClipsBuckets(t *testing.T) {
	metrics := telemetry.New(prometheus.NewRegistry())
	hour := GranularityHour

	raw := time.Date(2025, 6, 1, 13, 47, 31, 0, time.UTC)
	req := MetricsRequest{
		Metrics:     []MetricType{MetricPaymentCount},
		Granularity: &hour,
		TimeRange:   testRange,
	}

	rows, err := Accumulate(context.Background(), testLogger(), metrics, "test", req,
		func(context.Context, MetricType) ([]BucketRow[PaymentMetricRow], error) {
			return []BucketRow[PaymentMetricRow]{
				{ID: MetricsBucketIdentifier{TimeBucket: TimeBucket{Start: raw, End: raw}}, Row: PaymentMetricRow{PaymentCount: i64Ptr(1)}},
			}, nil
		})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC), rows[0].ID.TimeBucket.Start)
	assert.Equal(t, time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC), rows[0].ID.TimeBucket.End)
}

func TestAccumulateNoGranularityUsesFullRange(t *testing.T) {
	metrics := telemetry.New(prometheus.NewRegistry())
	raw := time.Date(2025, 6, 1, 13, 47, 31, 0, time.UTC)

	rows, err := Accumulate(context.Background(), testLogger(), metrics, "test",
		paymentRequest(MetricPaymentCount),
		func(context.Context, MetricType) ([]BucketRow[PaymentMetricRow], error) {
			return []BucketRow[PaymentMetricRow]{
				{ID: MetricsBucketIdentifier{TimeBucket: TimeBucket{Start: raw, End: raw}}, Row: PaymentMetricRow{PaymentCount: i64Ptr(1)}},
			}, nil
		})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, testRange.StartTime, rows[0].ID.TimeBucket.Start)
	assert.Equal(t, testRange.EndTime, rows[0].ID.TimeBucket.End)
}

func TestAccumulateCountsFetchedBuckets(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.New(reg)

	_, err := Accumulate(context.Background(), testLogger(), metrics, "postgres",
		paymentRequest(MetricPaymentCount),
		func(context.Context, MetricType) ([]BucketRow[PaymentMetricRow], error) {
			return []BucketRow[PaymentMetricRow]{
				{ID: MetricsBucketIdentifier{Currency: strPtr("USD")}, Row: PaymentMetricRow{PaymentCount: i64Ptr(1)}},
				{ID: MetricsBucketIdentifier{Currency: strPtr("EUR")}, Row: PaymentMetricRow{PaymentCount: i64Ptr(2)}},
			}, nil
		})
	require.NoError(t, err)

	count := testutil.ToFloat64(metrics.BucketsFetched.WithLabelValues(string(MetricPaymentCount), "postgres"))
	assert.Equal(t, 2.0, count)
}

func TestBucketIdentifierHashEquality(t *testing.T) {
	a := MetricsBucketIdentifier{Currency: strPtr("USD"), Connector: strPtr("atlaspay")}
	b := MetricsBucketIdentifier{Currency: strPtr("USD"), Connector: strPtr("atlaspay")}
	c := MetricsBucketIdentifier{Currency: strPtr("USD"), Connector: strPtr("zenithpay")}

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))

	// A nil dimension and the literal string "none" must not collide with
	// differently-shaped identifiers by accident of concatenation order.
	d := MetricsBucketIdentifier{Currency: nil, Status: strPtr("charged")}
	e := MetricsBucketIdentifier{Currency: strPtr("none"), Status: strPtr("charged")}
	assert.True(t, d.Equal(e), "nil renders as the literal none sentinel")
}
