package handlers

import (
	"time"

	"github.com/adetunji-o/relaypay/internal/connector"
	"github.com/adetunji-o/relaypay/internal/domain"
)

type PaymentResponse struct {
	PaymentID              string    `json:"payment_id"`
	AttemptID              string    `json:"attempt_id"`
	MerchantID             string    `json:"merchant_id"`
	Connector              string    `json:"connector"`
	Status                 string    `json:"status"`
	IntentStatus           string    `json:"intent_status"`
	AmountMinor            int64     `json:"amount_minor"`
	Currency               string    `json:"currency"`
	ConnectorTransactionID string    `json:"connector_transaction_id,omitempty"`
	ErrorCode              string    `json:"error_code,omitempty"`
	ErrorMessage           string    `json:"error_message,omitempty"`
	RetryCount             int       `json:"retry_count"`
	RedirectURL            string    `json:"redirect_url,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	ModifiedAt             time.Time `json:"modified_at"`
}

func toPaymentResponse(intent *domain.PaymentIntent, attempt *domain.PaymentAttempt, rd *connector.RouterData) PaymentResponse {
	resp := PaymentResponse{
		PaymentID:    attempt.PaymentID,
		AttemptID:    attempt.ID,
		MerchantID:   attempt.MerchantID,
		Connector:    attempt.Connector,
		Status:       string(attempt.Status),
		IntentStatus: string(intent.Status),
		AmountMinor:  attempt.AmountMinor,
		Currency:     attempt.Currency,
		RetryCount:   attempt.RetryCount,
		CreatedAt:    attempt.CreatedAt,
		ModifiedAt:   attempt.ModifiedAt,
	}

	if attempt.ConnectorTransactionID != nil {
		resp.ConnectorTransactionID = *attempt.ConnectorTransactionID
	}
	if attempt.ErrorCode != nil {
		resp.ErrorCode = *attempt.ErrorCode
	}
	if attempt.ErrorMessage != nil {
		resp.ErrorMessage = *attempt.ErrorMessage
	}
	if rd != nil && rd.ResponseOK() {
		resp.RedirectURL = rd.Response.RedirectURL
	}

	return resp
}

type RefundResponse struct {
	RefundID          string    `json:"refund_id"`
	PaymentID         string    `json:"payment_id"`
	AttemptID         string    `json:"attempt_id"`
	Connector         string    `json:"connector"`
	Status            string    `json:"status"`
	AmountMinor       int64     `json:"amount_minor"`
	Currency          string    `json:"currency"`
	ConnectorRefundID string    `json:"connector_refund_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	ModifiedAt        time.Time `json:"modified_at"`
}

func toRefundResponse(refund *domain.Refund) RefundResponse {
	resp := RefundResponse{
		RefundID:    refund.ID,
		PaymentID:   refund.PaymentID,
		AttemptID:   refund.AttemptID,
		Connector:   refund.Connector,
		Status:      string(refund.Status),
		AmountMinor: refund.AmountMinor,
		Currency:    refund.Currency,
		CreatedAt:   refund.CreatedAt,
		ModifiedAt:  refund.ModifiedAt,
	}

	if refund.ConnectorRefundID != nil {
		resp.ConnectorRefundID = *refund.ConnectorRefundID
	}

	return resp
}
