// Package zenithpay integrates the Zenithpay processor. Zenithpay issues
// short-lived OAuth-style access tokens (client credentials in the body) and
// only supports automatic capture, so the integration surface is Authorize,
// PSync and the refund pair.
package zenithpay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adetunji-o/relaypay/internal/connector"
)

type Zenithpay struct {
	baseURL      string
	integrations map[connector.Flow]connector.Integration
}

func New(baseURL string) *Zenithpay {
	z := &Zenithpay{baseURL: baseURL}
	z.integrations = map[connector.Flow]connector.Integration{
		connector.FlowAuthorize:     authorize{base(z, connector.FlowAuthorize)},
		connector.FlowPSync:         psync{base(z, connector.FlowPSync)},
		connector.FlowRefundExecute: refundExecute{base(z, connector.FlowRefundExecute)},
		connector.FlowRSync:         rsync{base(z, connector.FlowRSync)},
	}
	return z
}

func (z *Zenithpay) Name() string {
	return "zenithpay"
}

func (z *Zenithpay) Integration(flow connector.Flow) (connector.Integration, bool) {
	integ, ok := z.integrations[flow]
	return integ, ok
}

// BuildAccessTokenRequest exchanges the body-key credentials for a token.
func (z *Zenithpay) BuildAccessTokenRequest(_ context.Context, rd *connector.RouterData) (*connector.WireRequest, error) {
	if rd.Auth.Kind != connector.AuthBodyKey || rd.Auth.APIKey == "" || rd.Auth.Key1 == "" {
		return nil, connector.NewFailedToObtainAuthTypeError(z.Name())
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", rd.Auth.APIKey)
	form.Set("client_secret", rd.Auth.Key1)

	return &connector.WireRequest{
		Method:      http.MethodPost,
		URL:         z.baseURL + "/oauth/token",
		Headers:     http.Header{},
		ContentType: "application/x-www-form-urlencoded",
		Body:        []byte(form.Encode()),
	}, nil
}

func (z *Zenithpay) HandleAccessTokenResponse(resp connector.WireResponse) (connector.AccessToken, error) {
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := connector.DecodeJSON(resp.Body, &body); err != nil {
		return connector.AccessToken{}, err
	}
	if body.AccessToken == "" {
		return connector.AccessToken{}, connector.NewMissingRequiredFieldError("access_token")
	}
	return connector.AccessToken{
		Token:     body.AccessToken,
		ExpiresIn: body.ExpiresIn,
		CreatedAt: time.Now().UTC(),
	}, nil
}

type common struct {
	connector.Base
	conn *Zenithpay
}

func base(z *Zenithpay, flow connector.Flow) common {
	return common{
		Base: connector.Base{Connector: z.Name(), Flow: flow},
		conn: z,
	}
}

func (c common) GetHeaders(_ context.Context, rd *connector.RouterData) (http.Header, error) {
	if rd.AccessToken == nil {
		return nil, connector.NewMissingRequiredFieldError("access_token")
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+rd.AccessToken.Token)
	return h, nil
}

func mapStatus(s string) connector.TransactionStatus {
	switch strings.ToLower(s) {
	case "succeeded", "settled":
		return connector.TxnPaid
	case "in_progress", "requires_action":
		return connector.TxnPending
	case "cancelled":
		return connector.TxnCanceled
	case "timed_out":
		return connector.TxnExpired
	case "rejected":
		return connector.TxnInvalid
	default:
		return connector.TxnDeclined
	}
}

func mapRefundStatus(s string) connector.TransactionStatus {
	switch strings.ToLower(s) {
	case "succeeded", "settled":
		return connector.TxnRefunded
	case "in_progress":
		return connector.TxnRefundPending
	default:
		return connector.TxnRefundFailed
	}
}

type chargeResponse struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func handleCharge(resp connector.WireResponse) (connector.ResponseData, error) {
	var body chargeResponse
	if err := connector.DecodeJSON(resp.Body, &body); err != nil {
		return connector.ResponseData{}, err
	}
	return connector.ResponseData{
		Status:                 mapStatus(body.State),
		ConnectorTransactionID: body.ID,
		AmountMinor:            body.Amount,
		Currency:               body.Currency,
	}, nil
}

type authorize struct{ common }

func (i authorize) GetURL(_ context.Context, _ *connector.RouterData) (string, error) {
	return i.conn.baseURL + "/v2/charges", nil
}

func (i authorize) GetRequestBody(_ context.Context, rd *connector.RouterData) ([]byte, error) {
	if rd.Request.Currency == "" {
		return nil, connector.NewMissingRequiredFieldError("currency")
	}
	return connector.EncodeJSON(map[string]any{
		"amount":       rd.Request.AmountMinor,
		"currency":     rd.Request.Currency,
		"method":       rd.Request.PaymentMethod,
		"redirect_url": rd.Request.ReturnURL,
		"reference":    rd.PaymentID,
	})
}

func (i authorize) BuildRequest(ctx context.Context, rd *connector.RouterData) (*connector.WireRequest, error) {
	return connector.ComposeRequest(ctx, i, rd)
}

func (i authorize) HandleResponse(_ context.Context, _ *connector.RouterData, resp connector.WireResponse) (connector.ResponseData, error) {
	return handleCharge(resp)
}

type psync struct{ common }

func (i psync) GetHTTPMethod() string {
	return http.MethodGet
}

func (i psync) GetURL(_ context.Context, rd *connector.RouterData) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.NewMissingRequiredFieldError("connector_transaction_id")
	}
	return fmt.Sprintf("%s/v2/charges/%s", i.conn.baseURL, rd.Request.ConnectorTransactionID), nil
}

func (i psync) BuildRequest(ctx context.Context, rd *connector.RouterData) (*connector.WireRequest, error) {
	return connector.ComposeRequest(ctx, i, rd)
}

func (i psync) HandleResponse(_ context.Context, _ *connector.RouterData, resp connector.WireResponse) (connector.ResponseData, error) {
	return handleCharge(resp)
}

type refundExecute struct{ common }

func (i refundExecute) GetURL(_ context.Context, rd *connector.RouterData) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", connector.NewMissingRequiredFieldError("connector_transaction_id")
	}
	return fmt.Sprintf("%s/v2/charges/%s/refunds", i.conn.baseURL, rd.Request.ConnectorTransactionID), nil
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
	var body chargeResponse
	if err := connector.DecodeJSON(resp.Body, &body); err != nil {
		return connector.ResponseData{}, err
	}
	return connector.ResponseData{
		Status:                 mapRefundStatus(body.State),
		ConnectorTransactionID: body.ID,
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
	return fmt.Sprintf("%s/v2/refunds/%s", i.conn.baseURL, rd.Request.RefundID), nil
}

func (i rsync) BuildRequest(ctx context.Context, rd *connector.RouterData) (*connector.WireRequest, error) {
	return connector.ComposeRequest(ctx, i, rd)
}

func (i rsync) HandleResponse(_ context.Context, _ *connector.RouterData, resp connector.WireResponse) (connector.ResponseData, error) {
	var body chargeResponse
	if err := connector.DecodeJSON(resp.Body, &body); err != nil {
		return connector.ResponseData{}, err
	}
	return connector.ResponseData{
		Status:                 mapRefundStatus(body.State),
		ConnectorTransactionID: body.ID,
		AmountMinor:            body.Amount,
		Currency:               body.Currency,
	}, nil
}
