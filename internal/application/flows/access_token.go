package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/adetunji-o/relaypay/internal/connector"
)

// AccessTokenResult is what AddAccessToken hands back: either a live token,
// or the error response that should abort the connector call, plus whether
// the connector uses tokens at all.
type AccessTokenResult struct {
	Token                        *connector.AccessToken
	Err                          *connector.ErrorResponse
	ConnectorSupportsAccessToken bool
}

func accessTokenKey(merchantID, connectorName string) string {
	return fmt.Sprintf("access_token_%s_%s", merchantID, connectorName)
}

// AddAccessToken returns a live token for (merchant, connector), refreshing
// through the AccessTokenAuth flow on a cache miss. The cache write after a
// successful refresh is best-effort: a persist failure is swallowed and the
// next call simply refreshes again. Concurrent misses may both refresh; that
// is accepted, tokens are validated by expiry anyway.
func (e *Engine) AddAccessToken(ctx context.Context, rd *connector.RouterData) (AccessTokenResult, error) {
	conn, ok := e.registry.Connector(rd.Connector)
	if !ok {
		return AccessTokenResult{}, connector.NewNotImplementedError("connector " + rd.Connector)
	}

	provider, ok := conn.(connector.AccessTokenProvider)
	if !ok {
		return AccessTokenResult{ConnectorSupportsAccessToken: false}, nil
	}

	key := accessTokenKey(rd.MerchantID, rd.Connector)

	cached, err := e.tokens.GetAccessToken(ctx, key)
	if err != nil {
		// Cache trouble reads as a miss.
		e.logger.Debug("access token cache read failed",
			"merchant_id", rd.MerchantID,
			"connector", rd.Connector,
			"error", err)
	}
	if cached != nil && !cached.Expired(e.clock()) {
		return AccessTokenResult{Token: cached, ConnectorSupportsAccessToken: true}, nil
	}

	tokenRD := connector.NewRouterData(
		connector.FlowAccessTokenAuth,
		rd.MerchantID, rd.PaymentID, rd.AttemptID, rd.Connector,
		rd.Auth, connector.RequestData{},
	)

	req, err := provider.BuildAccessTokenRequest(ctx, tokenRD)
	if err != nil {
		return AccessTokenResult{}, err
	}

	resp, err := e.wire.Send(ctx, *req)
	if err != nil {
		e.metrics.AccessTokenRefresh.WithLabelValues(rd.Connector, "connection_error").Inc()
		er := connector.ConnectionErrorResponse(err)
		return AccessTokenResult{Err: &er, ConnectorSupportsAccessToken: true}, nil
	}

	if resp.StatusCode >= 500 {
		e.metrics.AccessTokenRefresh.WithLabelValues(rd.Connector, "server_error").Inc()
		er := connector.ErrorResponseFor5xx(resp.StatusCode)
		return AccessTokenResult{Err: &er, ConnectorSupportsAccessToken: true}, nil
	}
	if resp.StatusCode >= 400 {
		e.metrics.AccessTokenRefresh.WithLabelValues(rd.Connector, "denied").Inc()
		er := connector.ErrorResponse{
			Code:       "ACCESS_TOKEN_DENIED",
			Message:    "access token request rejected",
			Reason:     string(resp.Body),
			StatusCode: resp.StatusCode,
		}
		return AccessTokenResult{Err: &er, ConnectorSupportsAccessToken: true}, nil
	}

	token, err := provider.HandleAccessTokenResponse(resp)
	if err != nil {
		return AccessTokenResult{}, err
	}

	ttl := time.Duration(token.ExpiresIn) * time.Second
	if err := e.tokens.SetAccessToken(ctx, key, token, ttl); err != nil {
		// Swallowed: the next miss re-refreshes.
		e.logger.Warn("access token cache write failed",
			"merchant_id", rd.MerchantID,
			"connector", rd.Connector,
			"error", err)
	}

	e.metrics.AccessTokenRefresh.WithLabelValues(rd.Connector, "success").Inc()
	return AccessTokenResult{Token: &token, ConnectorSupportsAccessToken: true}, nil
}

// UpdateRouterDataWithAccessTokenResult folds the token result into the
// RouterData. The returned bool says whether the connector call may proceed:
// a token failure lands in the response slot and aborts the call.
func UpdateRouterDataWithAccessTokenResult(rd *connector.RouterData, res AccessTokenResult) bool {
	if !res.ConnectorSupportsAccessToken {
		return true
	}
	if res.Err != nil {
		rd.SetError(*res.Err)
		return false
	}
	rd.AccessToken = res.Token
	return true
}
