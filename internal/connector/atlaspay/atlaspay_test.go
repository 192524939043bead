package atlaspay

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adetunji-o/relaypay/internal/connector"
)

const baseURL = "https://api.atlaspay.test"

func newRouterData(flow connector.Flow, req connector.RequestData) *connector.RouterData {
	auth := connector.Auth{Kind: connector.AuthHeaderKey, APIKey: "sk_test_123"}
	return connector.NewRouterData(flow, "merchant_1", "pay_1", "att_1", "atlaspay", auth, req)
}

func integration(t *testing.T, flow connector.Flow) connector.Integration {
	t.Helper()
	integ, ok := New(baseURL).Integration(flow)
	require.True(t, ok, "flow %s must be supported", flow)
	return integ
}

func TestIntegrationCoversAllFlows(t *testing.T) {
	a := New(baseURL)

	for _, flow := range []connector.Flow{
		connector.FlowAuthorize,
		connector.FlowCapture,
		connector.FlowVoid,
		connector.FlowPSync,
		connector.FlowRefundExecute,
		connector.FlowRSync,
	} {
		_, ok := a.Integration(flow)
		assert.True(t, ok, "flow %s", flow)
	}

	_, ok := a.Integration(connector.FlowAuthenticate)
	assert.False(t, ok)
}

func TestGetHeadersRequiresHeaderKeyAuth(t *testing.T) {
	integ := integration(t, connector.FlowAuthorize)

	rd := newRouterData(connector.FlowAuthorize, connector.RequestData{})
	h, err := integ.GetHeaders(context.Background(), rd)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk_test_123", h.Get("Authorization"))

	rd.Auth = connector.Auth{Kind: connector.AuthBodyKey, APIKey: "sk_test_123"}
	_, err = integ.GetHeaders(context.Background(), rd)
	assert.True(t, connector.IsCode(err, connector.CodeFailedToObtainAuthType))

	rd.Auth = connector.Auth{Kind: connector.AuthHeaderKey}
	_, err = integ.GetHeaders(context.Background(), rd)
	assert.True(t, connector.IsCode(err, connector.CodeFailedToObtainAuthType))
}

func TestAuthorizeBuildRequest(t *testing.T) {
	integ := integration(t, connector.FlowAuthorize)
	rd := newRouterData(connector.FlowAuthorize, connector.RequestData{
		AmountMinor:   1000,
		Currency:      "USD",
		PaymentMethod: "card",
		CaptureMethod: "manual",
	})

	req, err := integ.BuildRequest(context.Background(), rd)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, baseURL+"/v1/payments", req.URL)
	assert.Equal(t, "application/json", req.ContentType)
	assert.JSONEq(t, `{
		"amount": 1000,
		"currency": "USD",
		"method": "card",
		"capture": false,
		"reference": "pay_1"
	}`, string(req.Body))
}

func TestAuthorizeAutomaticCaptureFlag(t *testing.T) {
	integ := integration(t, connector.FlowAuthorize)
	rd := newRouterData(connector.FlowAuthorize, connector.RequestData{
		AmountMinor:   500,
		Currency:      "EUR",
		PaymentMethod: "card",
		CaptureMethod: "automatic",
	})

	req, err := integ.BuildRequest(context.Background(), rd)
	require.NoError(t, err)
	assert.Contains(t, string(req.Body), `"capture":true`)
}

func TestAuthorizeRejectsNonPositiveAmount(t *testing.T) {
	integ := integration(t, connector.FlowAuthorize)
	rd := newRouterData(connector.FlowAuthorize, connector.RequestData{Currency: "USD"})

	_, err := integ.BuildRequest(context.Background(), rd)
	assert.True(t, connector.IsCode(err, connector.CodeMissingRequiredField))
}

func TestTransactionScopedURLs(t *testing.T) {
	cases := []struct {
		flow    connector.Flow
		method  string
		wantURL string
	}{
		{connector.FlowCapture, http.MethodPost, baseURL + "/v1/payments/txn_9/capture"},
		{connector.FlowVoid, http.MethodPost, baseURL + "/v1/payments/txn_9/void"},
		{connector.FlowPSync, http.MethodGet, baseURL + "/v1/payments/txn_9"},
		{connector.FlowRefundExecute, http.MethodPost, baseURL + "/v1/payments/txn_9/refunds"},
	}

	for _, tc := range cases {
		t.Run(string(tc.flow), func(t *testing.T) {
			integ := integration(t, tc.flow)
			rd := newRouterData(tc.flow, connector.RequestData{
				AmountMinor:            1000,
				ConnectorTransactionID: "txn_9",
				RefundID:               "ref_1",
			})

			req, err := integ.BuildRequest(context.Background(), rd)
			require.NoError(t, err)
			assert.Equal(t, tc.method, req.Method)
			assert.Equal(t, tc.wantURL, req.URL)

			// The connector transaction id is mandatory on these flows.
			rd.Request.ConnectorTransactionID = ""
			_, err = integ.BuildRequest(context.Background(), rd)
			assert.True(t, connector.IsCode(err, connector.CodeMissingRequiredField))
		})
	}
}

func TestRSyncURLRequiresRefundID(t *testing.T) {
	integ := integration(t, connector.FlowRSync)
	rd := newRouterData(connector.FlowRSync, connector.RequestData{RefundID: "ref_1"})

	req, err := integ.BuildRequest(context.Background(), rd)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, baseURL+"/v1/refunds/ref_1", req.URL)

	rd.Request.RefundID = ""
	_, err = integ.BuildRequest(context.Background(), rd)
	assert.True(t, connector.IsCode(err, connector.CodeMissingRequiredField))
}

func TestHandleResponseMapsPaymentStatuses(t *testing.T) {
	cases := map[string]connector.TransactionStatus{
		"paid":       connector.TxnPaid,
		"authorized": connector.TxnAuthorized,
		"pending":    connector.TxnPending,
		"processing": connector.TxnPending,
		"canceled":   connector.TxnCanceled,
		"expired":    connector.TxnExpired,
		"invalid":    connector.TxnInvalid,
		"voided":     connector.TxnVoided,
		"declined":   connector.TxnDeclined,
		"garbage":    connector.TxnDeclined,
	}

	integ := integration(t, connector.FlowPSync)
	for raw, want := range cases {
		rd := newRouterData(connector.FlowPSync, connector.RequestData{ConnectorTransactionID: "txn_9"})
		resp := connector.WireResponse{
			StatusCode: 200,
			Body:       []byte(`{"transaction_id":"txn_9","status":"` + raw + `","amount":1000,"currency":"USD"}`),
		}

		data, err := integ.HandleResponse(context.Background(), rd, resp)
		require.NoError(t, err, "status %s", raw)
		assert.Equal(t, want, data.Status, "status %s", raw)
		assert.Equal(t, "txn_9", data.ConnectorTransactionID)
		assert.Equal(t, int64(1000), data.AmountMinor)
		assert.Equal(t, "USD", data.Currency)
	}
}

func TestHandleResponseMapsRefundStatuses(t *testing.T) {
	cases := map[string]connector.TransactionStatus{
		"refunded":   connector.TxnRefunded,
		"pending":    connector.TxnRefundPending,
		"processing": connector.TxnRefundPending,
		"failed":     connector.TxnRefundFailed,
	}

	integ := integration(t, connector.FlowRSync)
	for raw, want := range cases {
		rd := newRouterData(connector.FlowRSync, connector.RequestData{RefundID: "ref_1"})
		resp := connector.WireResponse{
			StatusCode: 200,
			Body:       []byte(`{"refund_id":"ref_1","status":"` + raw + `","amount":250,"currency":"USD"}`),
		}

		data, err := integ.HandleResponse(context.Background(), rd, resp)
		require.NoError(t, err, "status %s", raw)
		assert.Equal(t, want, data.Status, "status %s", raw)
		assert.Equal(t, "ref_1", data.ConnectorTransactionID)
	}
}

func TestHandleResponseMalformedBody(t *testing.T) {
	integ := integration(t, connector.FlowAuthorize)
	rd := newRouterData(connector.FlowAuthorize, connector.RequestData{AmountMinor: 1000})

	_, err := integ.HandleResponse(context.Background(), rd, connector.WireResponse{
		StatusCode: 200,
		Body:       []byte(`<html>not json</html>`),
	})
	assert.True(t, connector.IsCode(err, connector.CodeResponseDeserializationFailed))
}

func TestRefundExecuteBody(t *testing.T) {
	integ := integration(t, connector.FlowRefundExecute)
	rd := newRouterData(connector.FlowRefundExecute, connector.RequestData{
		AmountMinor:            250,
		ConnectorTransactionID: "txn_9",
		RefundID:               "ref_1",
	})

	req, err := integ.BuildRequest(context.Background(), rd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":250,"reference":"ref_1"}`, string(req.Body))
}
