package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/adetunji-o/relaypay/internal/analytics"
	"github.com/adetunji-o/relaypay/internal/application"
	"github.com/adetunji-o/relaypay/internal/interfaces/rest"
)

func (h *Handlers) decodeMetricsRequest(w http.ResponseWriter, r *http.Request) (string, analytics.MetricsRequest, bool) {
	merchantID := merchantFrom(r)
	if merchantID == "" {
		rest.WriteError(w, application.NewInvalidRequestDataError("missing X-Merchant-Id header"), h.logger)
		return "", analytics.MetricsRequest{}, false
	}

	var req analytics.MetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidRequestDataError("malformed request body"), h.logger)
		return "", analytics.MetricsRequest{}, false
	}

	return merchantID, req, true
}

func (h *Handlers) PaymentMetrics(w http.ResponseWriter, r *http.Request) {
	merchantID, req, ok := h.decodeMetricsRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.metricsContext(r.Context())
	defer cancel()

	resp, err := analytics.GetPaymentMetrics(ctx, h.logger, h.metrics, h.provider.Payments, merchantID, req)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handlers) RefundMetrics(w http.ResponseWriter, r *http.Request) {
	merchantID, req, ok := h.decodeMetricsRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.metricsContext(r.Context())
	defer cancel()

	resp, err := analytics.GetRefundMetrics(ctx, h.logger, h.metrics, h.provider.Refunds, merchantID, req)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handlers) APIEventMetrics(w http.ResponseWriter, r *http.Request) {
	merchantID, req, ok := h.decodeMetricsRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.metricsContext(r.Context())
	defer cancel()

	resp, err := analytics.GetAPIEventMetrics(ctx, h.logger, h.metrics, h.provider.APIEvents, merchantID, req)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, resp)
}
