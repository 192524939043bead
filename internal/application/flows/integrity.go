package flows

import (
	"github.com/adetunji-o/relaypay/internal/connector"
)

// integrityFlows are the flows whose responses declare amount/currency and
// therefore carry an integrity object.
func carriesIntegrityObject(flow connector.Flow) bool {
	return flow == connector.FlowAuthorize || flow == connector.FlowPSync
}

// CheckIntegrity compares what the request declared against what the
// connector echoed back. Every mismatched field is reported, not just the
// first. A nil return means the response passed.
func CheckIntegrity(rd *connector.RouterData) *connector.IntegrityCheckError {
	if !carriesIntegrityObject(rd.Flow) || !rd.ResponseOK() {
		return nil
	}

	var mismatched []string
	resp := rd.Response

	if resp.AmountMinor != 0 && resp.AmountMinor != rd.Request.AmountMinor {
		mismatched = append(mismatched, "amount")
	}
	if resp.Currency != "" && rd.Request.Currency != "" && resp.Currency != rd.Request.Currency {
		mismatched = append(mismatched, "currency")
	}

	if len(mismatched) == 0 {
		return nil
	}

	return &connector.IntegrityCheckError{
		FieldNames:             mismatched,
		ConnectorTransactionID: resp.ConnectorTransactionID,
	}
}
