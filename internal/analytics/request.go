// Package analytics aggregates persisted attempt, refund and API-event rows
// into bucketed metric responses.
package analytics

import (
	"time"
)

// MetricType names one aggregate a caller can request.
type MetricType string

const (
	MetricPaymentCount           MetricType = "payment_count"
	MetricPaymentSuccessCount    MetricType = "payment_success_count"
	MetricPaymentProcessedAmount MetricType = "payment_processed_amount"
	MetricAvgTicketSize          MetricType = "avg_ticket_size"
	MetricRetriesCount           MetricType = "retries_count"

	MetricRefundCount           MetricType = "refund_count"
	MetricRefundSuccessCount    MetricType = "refund_success_count"
	MetricRefundProcessedAmount MetricType = "refund_processed_amount"

	MetricAPIEventCount      MetricType = "api_count"
	MetricAPIEventLatencyAvg MetricType = "api_latency_avg"
)

// Granularity is the time-bucket width applied to results.
type Granularity string

const (
	GranularityMinute Granularity = "minute"
	GranularityHour   Granularity = "hour"
	GranularityDay    Granularity = "day"
)

// Truncate clips a timestamp to the granularity boundary it falls in.
func (g Granularity) Truncate(t time.Time) time.Time {
	switch g {
	case GranularityMinute:
		return t.UTC().Truncate(time.Minute)
	case GranularityHour:
		return t.UTC().Truncate(time.Hour)
	case GranularityDay:
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	default:
		return t.UTC()
	}
}

func (g Granularity) Duration() time.Duration {
	switch g {
	case GranularityMinute:
		return time.Minute
	case GranularityHour:
		return time.Hour
	case GranularityDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

type TimeRange struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Dimension is a group-by axis.
type Dimension string

const (
	DimCurrency          Dimension = "currency"
	DimStatus            Dimension = "status"
	DimConnector         Dimension = "connector"
	DimAuthType          Dimension = "auth_type"
	DimPaymentMethod     Dimension = "payment_method"
	DimPaymentMethodType Dimension = "payment_method_type"
)

// Filters narrows which rows feed the aggregates; empty slices mean "all".
type Filters struct {
	Currency      []string `json:"currency,omitempty"`
	Status        []string `json:"status,omitempty"`
	Connector     []string `json:"connector,omitempty"`
	AuthType      []string `json:"auth_type,omitempty"`
	PaymentMethod []string `json:"payment_method,omitempty"`
}

type MetricsRequest struct {
	Metrics     []MetricType `json:"metrics"`
	GroupBy     []Dimension  `json:"group_by_names,omitempty"`
	Filters     Filters      `json:"filters,omitempty"`
	Granularity *Granularity `json:"granularity,omitempty"`
	TimeRange   TimeRange    `json:"time_range"`
}

func (r MetricsRequest) validate() error {
	if len(r.Metrics) == 0 {
		return NewQueryBuildingError(errMissingMetrics)
	}
	if !r.TimeRange.EndTime.After(r.TimeRange.StartTime) {
		return NewQueryBuildingError(errBadTimeRange)
	}
	return nil
}

var (
	errMissingMetrics = errorString("at least one metric is required")
	errBadTimeRange   = errorString("time range end must be after start")
)

type errorString string

func (e errorString) Error() string { return string(e) }
