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

type AuthorizeRequest struct {
	Connector         string `json:"connector"`
	AmountMinor       int64  `json:"amount_minor"`
	Currency          string `json:"currency"`
	PaymentMethod     string `json:"payment_method"`
	PaymentMethodType string `json:"payment_method_type"`
	CaptureMethod     string `json:"capture_method"`
	ReturnURL         string `json:"return_url"`
}

func (h *Handlers) AuthorizePayment(w http.ResponseWriter, r *http.Request) {
	merchantID := merchantFrom(r)
	if merchantID == "" {
		rest.WriteError(w, application.NewInvalidRequestDataError("missing X-Merchant-Id header"), h.logger)
		return
	}

	var req AuthorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidRequestDataError("malformed request body"), h.logger)
		return
	}
	if req.Connector == "" {
		rest.WriteError(w, application.NewInvalidRequestDataError("connector is required"), h.logger)
		return
	}

	ctx := r.Context()
	now := timeNow()

	intent := &domain.PaymentIntent{
		ID:          uuid.New().String(),
		MerchantID:  merchantID,
		Status:      domain.IntentRequiresConfirmation,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		CreatedAt:   now,
		ModifiedAt:  now,
	}

	attempt, err := domain.NewPaymentAttempt(uuid.New().String(), intent.ID, merchantID, req.Connector, req.AmountMinor, req.Currency)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	attempt.PaymentMethod = req.PaymentMethod
	attempt.PaymentMethodType = req.PaymentMethodType
	intent.ActiveAttemptID = attempt.ID

	if err := h.intents.InsertIntent(ctx, intent); err != nil {
		rest.WriteError(w, application.NewInternalError(err), h.logger)
		return
	}
	if err := h.attempts.InsertAttempt(ctx, attempt); err != nil {
		rest.WriteError(w, application.NewInternalError(err), h.logger)
		return
	}

	auth, err := application.LoadConnectorAuth(ctx, h.configs, merchantID, req.Connector)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rd := connector.NewRouterData(connector.FlowAuthorize, merchantID, intent.ID, attempt.ID, req.Connector, auth, connector.RequestData{
		AmountMinor:       req.AmountMinor,
		Currency:          req.Currency,
		PaymentMethod:     req.PaymentMethod,
		PaymentMethodType: req.PaymentMethodType,
		CaptureMethod:     req.CaptureMethod,
		ReturnURL:         req.ReturnURL,
	})

	rd, err = h.engine.ExecutePayment(ctx, intent, attempt, rd, connector.CallConnectorActionTrigger, nil)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, toPaymentResponse(intent, attempt, rd))
}

func (h *Handlers) CapturePayment(w http.ResponseWriter, r *http.Request) {
	h.runAttemptFlow(w, r, connector.FlowCapture, connector.CallConnectorActionTrigger)
}

func (h *Handlers) VoidPayment(w http.ResponseWriter, r *http.Request) {
	h.runAttemptFlow(w, r, connector.FlowVoid, connector.CallConnectorActionTrigger)
}

// SyncPayment re-reads the attempt from the connector. Without force_sync the
// stored state is returned and no wire call happens.
func (h *Handlers) SyncPayment(w http.ResponseWriter, r *http.Request) {
	action := connector.CallConnectorActionStatusUpdate
	if r.URL.Query().Get("force_sync") == "true" {
		action = connector.CallConnectorActionTrigger
	}
	h.runAttemptFlow(w, r, connector.FlowPSync, action)
}

func (h *Handlers) runAttemptFlow(w http.ResponseWriter, r *http.Request, flow connector.Flow, action connector.CallConnectorAction) {
	merchantID := merchantFrom(r)
	paymentID := r.PathValue("id")
	ctx := r.Context()

	intent, err := h.intents.FindIntentByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			rest.WriteError(w, application.NewPaymentNotFoundError(paymentID), h.logger)
			return
		}
		rest.WriteError(w, application.NewInternalError(err), h.logger)
		return
	}
	if merchantID != "" && intent.MerchantID != merchantID {
		rest.WriteError(w, application.NewPaymentNotFoundError(paymentID), h.logger)
		return
	}

	attempt, err := h.attempts.FindAttemptByID(ctx, intent.ActiveAttemptID)
	if err != nil {
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

	rd := connector.NewRouterData(flow, intent.MerchantID, intent.ID, attempt.ID, attempt.Connector, auth, connector.RequestData{
		AmountMinor:            attempt.AmountMinor,
		Currency:               attempt.Currency,
		ConnectorTransactionID: txnID,
	})

	rd, err = h.engine.ExecutePayment(ctx, intent, attempt, rd, action, nil)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, toPaymentResponse(intent, attempt, rd))
}

func merchantFrom(r *http.Request) string {
	return r.Header.Get("X-Merchant-Id")
}
