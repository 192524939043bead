package analytics

import (
	"github.com/shopspring/decimal"
)

// The Merge implementations below are first-non-null-wins per field: when
// several metric-type queries land rows under the same bucket identifier,
// each field keeps whichever value arrived first and later values for an
// already-populated field are discarded. This is NOT summation. Metric
// definitions in this package populate disjoint fields per metric type, so
// completion order cannot change the merged row.

type PaymentMetricRow struct {
	PaymentCount           *int64           `json:"payment_count,omitempty"`
	PaymentSuccessCount    *int64           `json:"payment_success_count,omitempty"`
	PaymentProcessedAmount *decimal.Decimal `json:"payment_processed_amount,omitempty"`
	AvgTicketSize          *decimal.Decimal `json:"avg_ticket_size,omitempty"`
	RetriesCount           *int64           `json:"retries_count,omitempty"`
}

func (r PaymentMetricRow) Merge(in PaymentMetricRow) PaymentMetricRow {
	if r.PaymentCount == nil {
		r.PaymentCount = in.PaymentCount
	}
	if r.PaymentSuccessCount == nil {
		r.PaymentSuccessCount = in.PaymentSuccessCount
	}
	if r.PaymentProcessedAmount == nil {
		r.PaymentProcessedAmount = in.PaymentProcessedAmount
	}
	if r.AvgTicketSize == nil {
		r.AvgTicketSize = in.AvgTicketSize
	}
	if r.RetriesCount == nil {
		r.RetriesCount = in.RetriesCount
	}
	return r
}

type RefundMetricRow struct {
	RefundCount           *int64           `json:"refund_count,omitempty"`
	RefundSuccessCount    *int64           `json:"refund_success_count,omitempty"`
	RefundProcessedAmount *decimal.Decimal `json:"refund_processed_amount,omitempty"`
}

func (r RefundMetricRow) Merge(in RefundMetricRow) RefundMetricRow {
	if r.RefundCount == nil {
		r.RefundCount = in.RefundCount
	}
	if r.RefundSuccessCount == nil {
		r.RefundSuccessCount = in.RefundSuccessCount
	}
	if r.RefundProcessedAmount == nil {
		r.RefundProcessedAmount = in.RefundProcessedAmount
	}
	return r
}

type APIEventMetricRow struct {
	APICount     *int64           `json:"api_count,omitempty"`
	LatencyAvgMs *decimal.Decimal `json:"latency_avg_ms,omitempty"`
}

func (r APIEventMetricRow) Merge(in APIEventMetricRow) APIEventMetricRow {
	if r.APICount == nil {
		r.APICount = in.APICount
	}
	if r.LatencyAvgMs == nil {
		r.LatencyAvgMs = in.LatencyAvgMs
	}
	return r
}
