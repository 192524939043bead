// Package atlaspay integrates the Atlaspay processor: bearer-key auth, JSON
// API, synchronous captures and voids.
package atlaspay

import (
	"context"
	"fmt"
	"net/http"

	"github.com/adetunji-o/relaypay/internal/connector"
)

type Atlaspay struct {
	baseURL      string
	integrations map[connector.Flow]connector.Integration
}

func New(baseURL string) *Atlaspay {
	a := &Atlaspay{baseURL: baseURL}
	a.integrations = map[connector.Flow]connector.Integration{
		connector.FlowAuthorize:     authorize{base(a, connector.FlowAuthorize)},
		connector.FlowCapture:       capture{base(a, connector.FlowCapture)},
		connector.FlowVoid:          void{base(a, connector.FlowVoid)},
		connector.FlowPSync:         psync{base(a, connector.FlowPSync)},
		connector.FlowRefundExecute: refundExecute{base(a, connector.FlowRefundExecute)},
		connector.FlowRSync:         rsync{base(a, connector.FlowRSync)},
	}
	return a
}

func (a *Atlaspay) Name() string {
	return "atlaspay"
}

func (a *Atlaspay) Integration(flow connector.Flow) (connector.Integration, bool) {
	integ, ok := a.integrations[flow]
	return integ, ok
}

// common holds the pieces every atlaspay flow shares.
type common struct {
	connector.Base
	conn *Atlaspay
}

func base(a *Atlaspay, flow connector.Flow) common {
	return common{
		Base: connector.Base{Connector: a.Name(), Flow: flow},
		conn: a,
	}
}

func (c common) GetHeaders(_ context.Context, rd *connector.RouterData) (http.Header, error) {
	if rd.Auth.Kind != connector.AuthHeaderKey || rd.Auth.APIKey == "" {
		return nil, connector.NewFailedToObtainAuthTypeError(c.conn.Name())
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+rd.Auth.APIKey)
	return h, nil
}

// mapStatus normalizes atlaspay transaction statuses.
func mapStatus(s string) connector.TransactionStatus {
	switch s {
	case "paid":
		return connector.TxnPaid
	case "authorized":
		return connector.TxnAuthorized
	case "pending", "processing":
		return connector.TxnPending
	case "canceled":
		return connector.TxnCanceled
	case "expired":
		return connector.TxnExpired
	case "invalid":
		return connector.TxnInvalid
	case "voided":
		return connector.TxnVoided
	default:
		return connector.TxnDeclined
	}
}

func mapRefundStatus(s string) connector.TransactionStatus {
	switch s {
	case "refunded":
		return connector.TxnRefunded
	case "pending", "processing":
		return connector.TxnRefundPending
	default:
		return connector.TxnRefundFailed
	}
}

type paymentRequest struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Method    string `json:"method"`
	Capture   bool   `json:"capture"`
	Reference string `json:"reference"`
}

type paymentResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

type refundResponse struct {
	RefundID string `json:"refund_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func handlePayment(resp connector.WireResponse) (connector.ResponseData, error) {
	var body paymentResponse
	if err := connector.DecodeJSON(resp.Body, &body); err != nil {
		return connector.ResponseData{}, err
	}
	return connector.ResponseData{
		Status:                 mapStatus(body.Status),
		ConnectorTransactionID: body.TransactionID,
		AmountMinor:            body.Amount,
		Currency:               body.Currency,
	}, nil
}

type authorize struct{ common }

func (i authorize) GetURL(_ context.Context, _ *connector.RouterData) (string, error) {
	return i.conn.baseURL + "/v1/payments", nil
}

func (i authorize) GetRequestBody(_ context.Context, rd *connector.RouterData) ([]byte, error) {
	if rd.Request.AmountMinor <= 0 {
		return nil, connector.NewMissingRequiredFieldError("amount")
	}
	return connector.EncodeJSON(paymentRequest{
		Amount:    rd.Request.AmountMinor,
		Currency:  rd.Request.Currency,
		Method:    rd.Request.PaymentMethod,
		Capture:   rd.Request.CaptureMethod != "manual",
		Reference: rd.PaymentID,
	})
}

func (i authorize) BuildRequest(ctx context.Context, rd *connector.RouterData) (*connector.WireRequest, error) {
	return connector.ComposeRequest(ctx, i, rd)
}

func (i authorize) HandleResponse(_ context.Context, _ *connector.RouterData, resp connector.WireResponse) (connector.ResponseData, error) {
	return handlePayment(resp)
}

type capture struct{ common }

func (i capture) GetURL(_ context.Context, rd *connector.RouterData) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.NewMissingRequiredFieldError("connector_transaction_id")
	}
	return fmt.Sprintf("%s/v1/payments/%s/capture", i.conn.baseURL, rd.Request.ConnectorTransactionID), nil
}

func (i capture) GetRequestBody(_ context.Context, rd *connector.RouterData) ([]byte, error) {
	return connector.EncodeJSON(map[string]int64{"amount": rd.Request.AmountMinor})
}

func (i capture) BuildRequest(ctx context.Context, rd *connector.RouterData) (*connector.WireRequest, error) {
	return connector.ComposeRequest(ctx, i, rd)
}

func (i capture) HandleResponse(_ context.Context, _ *connector.RouterData, resp connector.WireResponse) (connector.ResponseData, error) {
	return handlePayment(resp)
}

type void struct{ common }

func (i void) GetURL(_ context.Context, rd *connector.RouterData) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.NewMissingRequiredFieldError("connector_transaction_id")
	}
	return fmt.Sprintf("%s/v1/payments/%s/void", i.conn.baseURL, rd.Request.ConnectorTransactionID), nil
}

func (i void) BuildRequest(ctx context.Context, rd *connector.RouterData) (*connector.WireRequest, error) {
	return connector.ComposeRequest(ctx, i, rd)
}

func (i void) HandleResponse(_ context.Context, _ *connector.RouterData, resp connector.WireResponse) (connector.ResponseData, error) {
	return handlePayment(resp)
}

type psync struct{ common }

func (i psync) GetHTTPMethod() string {
	return http.MethodGet
}

func (i psync) GetURL(_ context.Context, rd *connector.RouterData) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.NewMissingRequiredFieldError("connector_transaction_id")
	}
	return fmt.Sprintf("%s/v1/payments/%s", i.conn.baseURL, rd.Request.ConnectorTransactionID), nil
}

func (i psync) BuildRequest(ctx context.Context, rd *connector.RouterData) (*connector.WireRequest, error) {
	return connector.ComposeRequest(ctx, i, rd)
}

func (i psync) HandleResponse(_ context.Context, _ *connector.RouterData, resp connector.WireResponse) (connector.ResponseData, error) {
	return handlePayment(resp)
}

type refundExecute struct{ common }

func (i refundExecute) GetURL(_ context.Context, rd *connector.RouterData) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.NewMissingRequiredFieldError("connector_transaction_id")
	}
	return fmt.Sprintf("%s/v1/payments/%s/refunds", i.conn.baseURL, rd.Request.ConnectorTransactionID), nil
}

func (i refundExecute) GetRequestBody(_ context.Context, rd *connector.RouterData) ([]byte, error) {
	return connector.EncodeJSON(map[string]any{
		"amount":    rd.Request.AmountMinor,
		"reference": rd.Request.RefundID,
	})
}

func (i refundExecute) BuildRequest(ctx context.Context, rd *connector.RouterData) (*connector.WireRequest, error) {
	return connector.ComposeRequest(ctx, i, rd)
}

func (i refundExecute) HandleResponse(_ context.Context, _ *connector.RouterData, resp connector.WireResponse) (connector.ResponseData, error) {
	var body refundResponse
	if err := connector.DecodeJSON(resp.Body, &body); err != nil {
		return connector.ResponseData{}, err
	}
	return connector.ResponseData{
		Status:                 mapRefundStatus(body.Status),
		ConnectorTransactionID: body.RefundID,
		AmountMinor:            body.Amount,
		Currency:               body.Currency,
	}, nil
}

type rsync struct{ common }

func (i rsync) GetHTTPMethod() string {
	return http.MethodGet
}

func (i rsync) GetURL(_ context.Context, rd *connector.RouterData) (string, error) {
	if rd.Request.RefundID == "" {
		return "", connector.NewMissingRequiredFieldError("refund_id")
	}
	return fmt.Sprintf("%s/v1/refunds/%s", i.conn.baseURL, rd.Request.RefundID), nil
}

func (i rsync) BuildRequest(ctx context.Context, rd *connector.RouterData) (*connector.WireRequest, error) {
	return connector.ComposeRequest(ctx, i, rd)
}

func (i rsync) HandleResponse(_ context.Context, _ *connector.RouterData, resp connector.WireResponse) (connector.ResponseData, error) {
	var body refundResponse
	if err := connector.DecodeJSON(resp.Body, &body); err != nil {
		return connector.ResponseData{}, err
	}
	return connector.ResponseData{
		Status:                 mapRefundStatus(body.Status),
		ConnectorTransactionID: body.RefundID,
		AmountMinor:            body.Amount,
		Currency:               body.Currency,
	}, nil
}
