package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adetunji-o/relaypay/internal/connector"
)

// LoadConnectorAuth reads the merchant's credentials for one connector from
// the config store. A missing or malformed row is a credential failure, not
// an infrastructure one.
func LoadConnectorAuth(ctx context.Context, configs ConfigRepository, merchantID, connectorName string) (connector.Auth, error) {
	key := fmt.Sprintf("connector_auth_%s_%s", merchantID, connectorName)

	raw, err := configs.FindConfigByKey(ctx, key)
	if err != nil {
		return connector.Auth{}, connector.NewFailedToObtainAuthTypeError(connectorName)
	}

	var auth connector.Auth
	if err := json.Unmarshal([]byte(raw), &auth); err != nil {
		return connector.Auth{}, connector.NewFailedToObtainAuthTypeError(connectorName)
	}

	return auth, nil
}
