// Package connector defines the contract every payment processor integration
// implements, plus the RouterData execution context threaded through the
// per-flow pipeline.
package connector

import (
	"net/http"
	"time"
)

// Flow is a typed operation category dispatched against a connector.
type Flow string

const (
	FlowAuthorize        Flow = "authorize"
	FlowCapture          Flow = "capture"
	FlowVoid             Flow = "void"
	FlowPSync            Flow = "psync"
	FlowRSync            Flow = "rsync"
	FlowRefundExecute    Flow = "refund_execute"
	FlowAuthenticate     Flow = "authenticate"
	FlowPostAuthenticate Flow = "post_authenticate"
	FlowAccessTokenAuth  Flow = "access_token_auth"
)

// AuthKind discriminates the credential shapes connectors accept.
type AuthKind string

const (
	AuthHeaderKey    AuthKind = "header_key"
	AuthBodyKey      AuthKind = "body_key"
	AuthSignatureKey AuthKind = "signature_key"
	AuthNoKey        AuthKind = "no_key"
)

// Auth is a tagged union over per-connector credential shapes. Which fields
// are meaningful depends on Kind.
type Auth struct {
	Kind      AuthKind `json:"kind"`
	APIKey    string   `json:"api_key,omitempty"`
	Key1      string   `json:"key1,omitempty"`
	APISecret string   `json:"api_secret,omitempty"`
}

type AccessToken struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired applies a small safety margin so a token is never used in the last
// seconds of its validity window.
func (t AccessToken) Expired(now time.Time) bool {
	return now.After(t.CreatedAt.Add(time.Duration(t.ExpiresIn-15) * time.Second))
}

// TransactionStatus is the connector-agnostic status each integration maps
// its bespoke wire statuses into.
type TransactionStatus string

const (
	TxnAuthorized    TransactionStatus = "authorized"
	TxnPaid          TransactionStatus = "paid"
	TxnPending       TransactionStatus = "pending"
	TxnCanceled      TransactionStatus = "canceled"
	TxnExpired       TransactionStatus = "expired"
	TxnInvalid       TransactionStatus = "invalid"
	TxnDeclined      TransactionStatus = "declined"
	TxnVoided        TransactionStatus = "voided"
	TxnRefundPending TransactionStatus = "refund_pending"
	TxnRefunded      TransactionStatus = "refunded"
	TxnRefundFailed  TransactionStatus = "refund_failed"
)

type CallConnectorAction string

const (
	// CallConnectorActionTrigger performs the wire call.
	CallConnectorActionTrigger CallConnectorAction = "trigger"
	// CallConnectorActionStatusUpdate skips the wire call; used on
	// status-only paths where the response is already known.
	CallConnectorActionStatusUpdate CallConnectorAction = "status_update"
)

type CaptureSyncMethod string

const (
	CaptureSyncIndividual CaptureSyncMethod = "individual"
	CaptureSyncBulk       CaptureSyncMethod = "bulk"
)

// RequestData carries the flow-specific request payload. Which fields are
// populated depends on RouterData.Flow.
type RequestData struct {
	AmountMinor            int64
	Currency               string
	PaymentMethod          string
	PaymentMethodType      string
	CaptureMethod          string
	ConnectorTransactionID string
	RefundID               string
	ReturnURL              string
}

// ResponseData is the parsed, connector-agnostic response.
type ResponseData struct {
	Status                 TransactionStatus
	ConnectorTransactionID string
	AmountMinor            int64
	Currency               string
	RedirectURL            string
}

// ErrorResponse captures a connector-side failure as data. StatusCode 0 means
// the call never reached the connector (transport failure).
type ErrorResponse struct {
	Code                   string
	Message                string
	Reason                 string
	StatusCode             int
	ConnectorTransactionID string
}

const (
	NoErrorCode    = "no_error_code"
	NoErrorMessage = "no_error_message"
)

// DefaultErrorResponse seeds the RouterData response slot before any stage
// has run; it is replaced by either a parsed response or a real error.
func DefaultErrorResponse() ErrorResponse {
	return ErrorResponse{
		Code:    NoErrorCode,
		Message: NoErrorMessage,
		Reason:  "connector call not executed",
	}
}

type WireRequest struct {
	Method      string
	URL         string
	Headers     http.Header
	ContentType string
	Body        []byte
	Certificate string
	CertKey     string
}

type WireResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// RouterData is the per-call execution context. It is created fresh per flow
// invocation, never shared across concurrent calls, and mutated in place as
// each pipeline stage completes.
type RouterData struct {
	Flow       Flow
	MerchantID string
	PaymentID  string
	AttemptID  string
	Connector  string

	Auth        Auth
	AccessToken *AccessToken
	Metadata    map[string]string

	Request RequestData

	// Response slot: exactly one of Response / ErrorResponse is set once the
	// pipeline has run. It starts out as Err(default).
	Response      *ResponseData
	ErrorResponse *ErrorResponse

	IntegrityCheck *IntegrityCheckError
}

func NewRouterData(flow Flow, merchantID, paymentID, attemptID, connectorName string, auth Auth, req RequestData) *RouterData {
	def := DefaultErrorResponse()
	return &RouterData{
		Flow:          flow,
		MerchantID:    merchantID,
		PaymentID:     paymentID,
		AttemptID:     attemptID,
		Connector:     connectorName,
		Auth:          auth,
		Request:       req,
		ErrorResponse: &def,
	}
}

func (rd *RouterData) SetResponse(resp ResponseData) {
	rd.Response = &resp
	rd.ErrorResponse = nil
}

func (rd *RouterData) SetError(er ErrorResponse) {
	rd.ErrorResponse = &er
	rd.Response = nil
}

func (rd *RouterData) ResponseOK() bool {
	return rd.Response != nil && rd.ErrorResponse == nil
}
