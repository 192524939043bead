package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/adetunji-o/relaypay/internal/application"
	"github.com/adetunji-o/relaypay/internal/connector"
	"github.com/adetunji-o/relaypay/internal/domain"
	"github.com/adetunji-o/relaypay/internal/infrastructure/postgres"
	"github.com/adetunji-o/relaypay/internal/interfaces/rest"
)

type RefundRequest struct {
	PaymentID   string `json:"payment_id"`
	AmountMinor int64  `json:"amount_minor"`
}

// CreateRefund executes a refund against the charged attempt's connector.
func (h *Handlers) CreateRefund(w http.ResponseWriter, r *http.Request) {
	merchantID := merchantFrom(r)
	ctx := r.Context()

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidRequestDataError("malformed request body"), h.logger)
		return
	}
	if req.PaymentID == "" {
		rest.WriteError(w, application.NewInvalidRequestDataError("payment_id is required"), h.logger)
		return
	}

	intent, err := h.intents.FindIntentByID(ctx, req.PaymentID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			rest.WriteError(w, application.NewPaymentNotFoundError(req.PaymentID), h.logger)
			return
		}
		rest.WriteError(w, application.NewInternalError(err), h.logger)
		return
	}
	if intent.Status != domain.IntentSucceeded {
		rest.WriteError(w, application.NewInvalidRequestDataError("only a succeeded payment can be refunded"), h.logger)
		return
	}

	attempt, err := h.attempts.FindAttemptByID(ctx, intent.ActiveAttemptID)
	if err != nil {
		rest.WriteError(w, application.NewInternalError(err), h.logger)
		return
	}

	amount := req.AmountMinor
	if amount == 0 {
		amount = attempt.AmountMinor
	}
	if amount > attempt.AmountMinor {
		rest.WriteError(w, application.NewInvalidRequestDataError("refund amount exceeds captured amount"), h.logger)
		return
	}

	now := timeNow()
	refund := &domain.Refund{
		ID:          uuid.New().String(),
		PaymentID:   intent.ID,
		AttemptID:   attempt.ID,
		MerchantID:  intent.MerchantID,
		Connector:   attempt.Connector,
		Status:      domain.RefundPending,
		AmountMinor: amount,
		Currency:    attempt.Currency,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	if err := h.refunds.InsertRefund(ctx, refund); err != nil {
		rest.WriteError(w, application.NewInternalError(err), h.logger)
		return
	}

	auth, err := application.LoadConnectorAuth(ctx, h.configs, intent.MerchantID, attempt.Connector)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	var txnID string
	if attempt.ConnectorTransactionID != nil {
		txnID = *attempt.ConnectorTransactionID
	}

	rd := connector.NewRouterData(connector.FlowRefundExecute, merchantID, intent.ID, attempt.ID, attempt.Connector, auth, connector.RequestData{
		AmountMinor:            amount,
		Currency:               attempt.Currency,
		ConnectorTransactionID: txnID,
		RefundID:               refund.ID,
	})

	if _, err := h.engine.ExecuteRefund(ctx, refund, rd, connector.CallConnectorActionTrigger, nil); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, toRefundResponse(refund))
}

// SyncRefund re-reads a pending refund from the connector.
func (h *Handlers) SyncRefund(w http.ResponseWriter, r *http.Request) {
	refundID := r.PathValue("id")
	ctx := r.Context()

	refund, err := h.refunds.FindRefundByID(ctx, refundID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			rest.WriteError(w, domain.NewRefundNotFoundError(refundID), h.logger)
			return
		}
		rest.WriteError(w, application.NewInternalError(err), h.logger)
		return
	}

	action := connector.CallConnectorActionStatusUpdate
	if r.URL.Query().Get("force_sync") == "true" {
		action = connector.CallConnectorActionTrigger
	}

	auth, err := application.LoadConnectorAuth(ctx, h.configs, refund.MerchantID, refund.Connector)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	var connectorRefundID string
	if refund.ConnectorRefundID != nil {
		connectorRefundID = *refund.ConnectorRefundID
	}

	rd := connector.NewRouterData(connector.FlowRSync, refund.MerchantID, refund.PaymentID, refund.AttemptID, refund.Connector, auth, connector.RequestData{
		AmountMinor:            refund.AmountMinor,
		Currency:               refund.Currency,
		ConnectorTransactionID: connectorRefundID,
		RefundID:               refund.ID,
	})

	if _, err := h.engine.ExecuteRefund(ctx, refund, rd, action, nil); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, toRefundResponse(refund))
}
