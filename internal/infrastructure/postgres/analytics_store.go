package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/adetunji-o/relaypay/internal/analytics"
)

// AnalyticsStore computes metric aggregates directly over the transactional
// tables. One GROUP BY query per metric type; dimensions the caller did not
// group by stay NULL in the bucket identifier.
type AnalyticsStore struct {
	db *pgxpool.Pool
}

func NewAnalyticsStore(db *pgxpool.Pool) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

func (s *AnalyticsStore) Name() string { return "postgres" }

var attemptDimensionColumns = map[analytics.Dimension]string{
	analytics.DimCurrency:          "currency",
	analytics.DimStatus:            "status",
	analytics.DimConnector:         "connector",
	analytics.DimAuthType:          "auth_type",
	analytics.DimPaymentMethod:     "payment_method",
	analytics.DimPaymentMethodType: "payment_method_type",
}

var refundDimensionColumns = map[analytics.Dimension]string{
	analytics.DimCurrency:  "currency",
	analytics.DimStatus:    "status",
	analytics.DimConnector: "connector",
}

var apiEventDimensionColumns = map[analytics.Dimension]string{
	analytics.DimConnector: "connector",
	analytics.DimStatus:    "status",
}

func paymentAggregate(metric analytics.MetricType) (string, error) {
	switch metric {
	case analytics.MetricPaymentCount:
		return "COUNT(*)", nil
	case analytics.MetricPaymentSuccessCount:
		return "COUNT(*) FILTER (WHERE status = 'charged')", nil
	case analytics.MetricPaymentProcessedAmount:
		return "COALESCE(SUM(amount_minor) FILTER (WHERE status = 'charged'), 0)", nil
	case analytics.MetricAvgTicketSize:
		return "AVG(amount_minor)", nil
	case analytics.MetricRetriesCount:
		return "COALESCE(SUM(retry_count), 0)", nil
	default:
		return "", analytics.NewQueryBuildingError(fmt.Errorf("unsupported payment metric %q", metric))
	}
}

func refundAggregate(metric analytics.MetricType) (string, error) {
	switch metric {
	case analytics.MetricRefundCount:
		return "COUNT(*)", nil
	case analytics.MetricRefundSuccessCount:
		return "COUNT(*) FILTER (WHERE status = 'success')", nil
	case analytics.MetricRefundProcessedAmount:
		return "COALESCE(SUM(amount_minor) FILTER (WHERE status = 'success'), 0)", nil
	default:
		return "", analytics.NewQueryBuildingError(fmt.Errorf("unsupported refund metric %q", metric))
	}
}

func apiEventAggregate(metric analytics.MetricType) (string, error) {
	switch metric {
	case analytics.MetricAPIEventCount:
		return "COUNT(*)", nil
	case analytics.MetricAPIEventLatencyAvg:
		return "AVG(latency_ms)", nil
	default:
		return "", analytics.NewQueryBuildingError(fmt.Errorf("unsupported api event metric %q", metric))
	}
}

// bucketQuery assembles the shared SELECT shape: grouped dimension columns,
// an optional date_trunc time column, one aggregate, and the filter clauses.
type bucketQuery struct {
	sql         string
	args        []any
	dims        []analytics.Dimension
	granularity *analytics.Granularity
}

func buildBucketQuery(
	table string,
	columns map[analytics.Dimension]string,
	aggregate string,
	merchantID string,
	req analytics.MetricsRequest,
) bucketQuery {
	var (
		selectCols []string
		groupCols  []string
		dims       []analytics.Dimension
	)

	for _, dim := range req.GroupBy {
		col, ok := columns[dim]
		if !ok {
			continue
		}
		selectCols = append(selectCols, col)
		groupCols = append(groupCols, col)
		dims = append(dims, dim)
	}

	args := []any{merchantID, req.TimeRange.StartTime, req.TimeRange.EndTime}
	where := []string{"merchant_id = $1", "created_at >= $2", "created_at < $3"}

	addFilter := func(dim analytics.Dimension, values []string) {
		col, ok := columns[dim]
		if !ok || len(values) == 0 {
			return
		}
		args = append(args, values)
		where = append(where, fmt.Sprintf("%s = ANY($%d)", col, len(args)))
	}
	addFilter(analytics.DimCurrency, req.Filters.Currency)
	addFilter(analytics.DimStatus, req.Filters.Status)
	addFilter(analytics.DimConnector, req.Filters.Connector)
	addFilter(analytics.DimAuthType, req.Filters.AuthType)
	addFilter(analytics.DimPaymentMethod, req.Filters.PaymentMethod)

	if req.Granularity != nil {
		args = append(args, string(*req.Granularity))
		bucketExpr := fmt.Sprintf("date_trunc($%d, created_at)", len(args))
		selectCols = append(selectCols, bucketExpr)
		groupCols = append(groupCols, bucketExpr)
	}

	selectCols = append(selectCols, aggregate)

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selectCols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(table)
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(where, " AND "))
	if len(groupCols) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupCols, ", "))
	}

	return bucketQuery{
		sql:         b.String(),
		args:        args,
		dims:        dims,
		granularity: req.Granularity,
	}
}

// scanBucketRows drains one aggregate query: for each row it scans the
// grouped dimension values, the optional bucket start and the aggregate value.
func scanBucketRows[R any](
	rows pgx.Rows,
	q bucketQuery,
	assign func(row *R, value decimal.NullDecimal),
) ([]analytics.BucketRow[R], error) {
	var out []analytics.BucketRow[R]

	for rows.Next() {
		dimValues := make([]*string, len(q.dims))
		targets := make([]any, 0, len(q.dims)+2)
		for i := range dimValues {
			targets = append(targets, &dimValues[i])
		}

		var bucketStart *time.Time
		if q.granularity != nil {
			targets = append(targets, &bucketStart)
		}

		var value decimal.NullDecimal
		targets = append(targets, &value)

		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan metric bucket: %w", err)
		}

		var id analytics.MetricsBucketIdentifier
		for i, dim := range q.dims {
			switch dim {
			case analytics.DimCurrency:
				id.Currency = dimValues[i]
			case analytics.DimStatus:
				id.Status = dimValues[i]
			case analytics.DimConnector:
				id.Connector = dimValues[i]
			case analytics.DimAuthType:
				id.AuthType = dimValues[i]
			case analytics.DimPaymentMethod:
				id.PaymentMethod = dimValues[i]
			case analytics.DimPaymentMethodType:
				id.PaymentMethodType = dimValues[i]
			}
		}
		if bucketStart != nil {
			id.TimeBucket = analytics.TimeBucket{Start: *bucketStart, End: *bucketStart}
		}

		var row R
		assign(&row, value)
		out = append(out, analytics.BucketRow[R]{ID: id, Row: row})
	}

	return out, rows.Err()
}

func intPtr(v decimal.NullDecimal) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Decimal.IntPart()
	return &n
}

func decimalPtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func (s *AnalyticsStore) LoadPaymentMetrics(ctx context.Context, metric analytics.MetricType, merchantID string, req analytics.MetricsRequest) ([]analytics.BucketRow[analytics.PaymentMetricRow], error) {
	aggregate, err := paymentAggregate(metric)
	if err != nil {
		return nil, err
	}

	q := buildBucketQuery("payment_attempts", attemptDimensionColumns, aggregate, merchantID, req)
	rows, err := s.db.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment metric %q: %w", metric, err)
	}
	defer rows.Close()

	return scanBucketRows(rows, q, func(row *analytics.PaymentMetricRow, value decimal.NullDecimal) {
		switch metric {
		case analytics.MetricPaymentCount:
			row.PaymentCount = intPtr(value)
		case analytics.MetricPaymentSuccessCount:
			row.PaymentSuccessCount = intPtr(value)
		case analytics.MetricPaymentProcessedAmount:
			row.PaymentProcessedAmount = decimalPtr(value)
		case analytics.MetricAvgTicketSize:
			row.AvgTicketSize = decimalPtr(value)
		case analytics.MetricRetriesCount:
			row.RetriesCount = intPtr(value)
		}
	})
}

func (s *AnalyticsStore) LoadRefundMetrics(ctx context.Context, metric analytics.MetricType, merchantID string, req analytics.MetricsRequest) ([]analytics.BucketRow[analytics.RefundMetricRow], error) {
	aggregate, err := refundAggregate(metric)
	if err != nil {
		return nil, err
	}

	q := buildBucketQuery("refunds", refundDimensionColumns, aggregate, merchantID, req)
	rows, err := s.db.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query refund metric %q: %w", metric, err)
	}
	defer rows.Close()

	return scanBucketRows(rows, q, func(row *analytics.RefundMetricRow, value decimal.NullDecimal) {
		switch metric {
		case analytics.MetricRefundCount:
			row.RefundCount = intPtr(value)
		case analytics.MetricRefundSuccessCount:
			row.RefundSuccessCount = intPtr(value)
		case analytics.MetricRefundProcessedAmount:
			row.RefundProcessedAmount = decimalPtr(value)
		}
	})
}

func (s *AnalyticsStore) LoadAPIEventMetrics(ctx context.Context, metric analytics.MetricType, merchantID string, req analytics.MetricsRequest) ([]analytics.BucketRow[analytics.APIEventMetricRow], error) {
	aggregate, err := apiEventAggregate(metric)
	if err != nil {
		return nil, err
	}

	q := buildBucketQuery("api_events", apiEventDimensionColumns, aggregate, merchantID, req)
	rows, err := s.db.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query api event metric %q: %w", metric, err)
	}
	defer rows.Close()

	return scanBucketRows(rows, q, func(row *analytics.APIEventMetricRow, value decimal.NullDecimal) {
		switch metric {
		case analytics.MetricAPIEventCount:
			row.APICount = intPtr(value)
		case analytics.MetricAPIEventLatencyAvg:
			row.LatencyAvgMs = decimalPtr(value)
		}
	})
}

// APIEvent is one recorded inbound API call, the raw material for the
// api_count and api_latency_avg metrics.
type APIEvent struct {
	ID         string
	MerchantID string
	Connector  *string
	Status     string
	LatencyMs  int64
	CreatedAt  time.Time
}

func (s *AnalyticsStore) InsertAPIEvent(ctx context.Context, event *APIEvent) error {
	query := `
		INSERT INTO api_events (id, merchant_id, connector, status, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.Exec(ctx, query,
		event.ID,
		event.MerchantID,
		event.Connector,
		event.Status,
		event.LatencyMs,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert api event: %w", err)
	}

	return nil
}
