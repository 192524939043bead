package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

// Integration is the per-flow capability set a connector implements. Every
// method has a safe default on Base so a connector only overrides the flows
// and hooks it actually supports.
type Integration interface {
	GetHeaders(ctx context.Context, rd *RouterData) (http.Header, error)
	GetContentType() string
	GetHTTPMethod() string
	GetURL(ctx context.Context, rd *RouterData) (string, error)
	GetRequestBody(ctx context.Context, rd *RouterData) ([]byte, error)
	BuildRequest(ctx context.Context, rd *RouterData) (*WireRequest, error)
	HandleResponse(ctx context.Context, rd *RouterData, resp WireResponse) (ResponseData, error)
	GetErrorResponse(resp WireResponse) ErrorResponse
	Get5xxErrorResponse(resp WireResponse) ErrorResponse
	GetMultipleCaptureSyncMethod() CaptureSyncMethod
	GetCertificate(rd *RouterData) string
	GetCertificateKey(rd *RouterData) string
}

// PreProcessor is implemented by integrations that need a pre-task
// (tokenization, pre-authentication) before the main wire call.
type PreProcessor interface {
	PreProcess(ctx context.Context, rd *RouterData, send func(context.Context, WireRequest) (WireResponse, error)) error
}

// PostProcessor runs after the main response has been parsed.
type PostProcessor interface {
	PostProcess(ctx context.Context, rd *RouterData, send func(context.Context, WireRequest) (WireResponse, error)) error
}

// AccessTokenProvider is implemented by connectors that authenticate wire
// calls with a time-bounded token acquired via the AccessTokenAuth flow.
type AccessTokenProvider interface {
	BuildAccessTokenRequest(ctx context.Context, rd *RouterData) (*WireRequest, error)
	HandleAccessTokenResponse(resp WireResponse) (AccessToken, error)
}

// Base carries the default behaviour for every Integration method. Defaults
// are explicit not-implemented sentinels, never silent no-ops.
type Base struct {
	Connector string
	Flow      Flow
}

func (b Base) GetHeaders(context.Context, *RouterData) (http.Header, error) {
	return http.Header{}, nil
}

func (b Base) GetContentType() string {
	return "application/json"
}

func (b Base) GetHTTPMethod() string {
	return http.MethodPost
}

func (b Base) GetURL(context.Context, *RouterData) (string, error) {
	return "", NewNotImplementedError(string(b.Flow))
}

func (b Base) GetRequestBody(context.Context, *RouterData) ([]byte, error) {
	return nil, nil
}

func (b Base) BuildRequest(context.Context, *RouterData) (*WireRequest, error) {
	return nil, NewNotImplementedError(string(b.Flow))
}

func (b Base) HandleResponse(context.Context, *RouterData, WireResponse) (ResponseData, error) {
	return ResponseData{}, NewNotImplementedError(string(b.Flow))
}

// GetErrorResponse parses the conventional {code, message} error body; bodies
// that do not match come back verbatim as the message.
func (b Base) GetErrorResponse(resp WireResponse) ErrorResponse {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	er := ErrorResponse{
		Code:       NoErrorCode,
		Message:    NoErrorMessage,
		StatusCode: resp.StatusCode,
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		er.Reason = string(resp.Body)
		return er
	}
	if body.Code != "" {
		er.Code = body.Code
	} else if body.Error != "" {
		er.Code = body.Error
	}
	if body.Message != "" {
		er.Message = body.Message
	}
	return er
}

func (b Base) Get5xxErrorResponse(resp WireResponse) ErrorResponse {
	return ErrorResponseFor5xx(resp.StatusCode)
}

func (b Base) GetMultipleCaptureSyncMethod() CaptureSyncMethod {
	return CaptureSyncIndividual
}

func (b Base) GetCertificate(*RouterData) string {
	return ""
}

func (b Base) GetCertificateKey(*RouterData) string {
	return ""
}

// ComposeRequest is the standard BuildRequest body: URL, headers and payload
// from the integration's own getters folded into a WireRequest. Concrete
// integrations call it so their overrides participate.
func ComposeRequest(ctx context.Context, integ Integration, rd *RouterData) (*WireRequest, error) {
	url, err := integ.GetURL(ctx, rd)
	if err != nil {
		return nil, err
	}

	headers, err := integ.GetHeaders(ctx, rd)
	if err != nil {
		return nil, err
	}

	body, err := integ.GetRequestBody(ctx, rd)
	if err != nil {
		return nil, err
	}

	return &WireRequest{
		Method:      integ.GetHTTPMethod(),
		URL:         url,
		Headers:     headers,
		ContentType: integ.GetContentType(),
		Body:        body,
		Certificate: integ.GetCertificate(rd),
		CertKey:     integ.GetCertificateKey(rd),
	}, nil
}

// EncodeJSON marshals a connector payload, wrapping failures in the
// request-encoding error code.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, NewRequestEncodingFailedError(err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeJSON unmarshals a connector response body, wrapping failures in the
// deserialization error code.
func DecodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return NewResponseDeserializationFailedError(err)
	}
	return nil
}
