// pkg/rpc/response.go
package rpc

import (
	"encoding/json"

	"github.com/meridianledger/meridian-go/pkg/errors"
)

// Result field names and well-known values of the node protocol.
const (
	statusField  = "status"
	statusOK     = "success"
	errorField   = "error"
	errorMsgJSON = "error_message"

	// EngineResultAccepted is the only admission verdict code that means the
	// transaction was provisionally accepted. All other codes are rejections
	// and are compared by equality only.
	EngineResultAccepted = "tesSUCCESS"

	// ErrTxNotFound is the result error code the node returns when it has no
	// knowledge of a looked-up transaction. This is a valid domain outcome
	// (not yet known), not a failure.
	ErrTxNotFound = "txnNotFound"

	// ValidatedField marks a transaction as included in a validated ledger.
	ValidatedField = "validated"
	// ExpiryHeightField carries the transaction's declared expiry height.
	ExpiryHeightField = "LastLedgerSequence"
	// LedgerIndexField carries a ledger's sequence height.
	LedgerIndexField = "ledger_index"
)

// Verdict is the node's immediate admission verdict on a submit request.
// Codes are opaque protocol tags.
type Verdict struct {
	Code    string
	Message string
}

// Accepted reports whether the verdict carries the canonical accepted code.
func (v Verdict) Accepted() bool {
	return v.Code == EngineResultAccepted
}

// Response is one decoded node response. Result holds the raw field mapping;
// fields are only guaranteed present when the node has knowledge of the
// subject of the request.
type Response struct {
	Result map[string]interface{}
}

// IsSuccessful reports whether the node processed the request successfully.
func (r *Response) IsSuccessful() bool {
	status, _ := r.Result[statusField].(string)
	return status == statusOK
}

// ErrorCode returns the result error code of a failed response, or the empty
// string.
func (r *Response) ErrorCode() string {
	code, _ := r.Result[errorField].(string)
	return code
}

// IsNotFound reports whether a failed lookup means "transaction not yet
// known to the node".
func (r *Response) IsNotFound() bool {
	return r.ErrorCode() == ErrTxNotFound
}

// Err converts a failed response into an rpc domain error. It returns nil
// for successful responses.
func (r *Response) Err() error {
	if r.IsSuccessful() {
		return nil
	}
	msg, _ := r.Result[errorMsgJSON].(string)
	return errors.RPCErrorf(errors.RPCErrRequestFailed,
		"request failed with %q: %s", r.ErrorCode(), msg)
}

// Verdict extracts the admission verdict from a submit response.
func (r *Response) Verdict() Verdict {
	code, _ := r.Result["engine_result"].(string)
	msg, _ := r.Result["engine_result_message"].(string)
	return Verdict{Code: code, Message: msg}
}

// Validated reports whether the response marks its transaction as included
// in a validated ledger. Absence of the field means not validated.
func (r *Response) Validated() bool {
	v, _ := r.Result[ValidatedField].(bool)
	return v
}

// Uint32Field extracts a numeric result field as a ledger height. The
// second return value reports presence.
func (r *Response) Uint32Field(name string) (uint32, bool) {
	raw, ok := r.Result[name]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return uint32(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return uint32(n), true
	case int:
		return uint32(v), true
	case uint32:
		return v, true
	default:
		return 0, false
	}
}

// ExpiryHeight extracts the transaction's declared expiry height.
func (r *Response) ExpiryHeight() (uint32, bool) {
	return r.Uint32Field(ExpiryHeightField)
}

// LedgerIndex extracts the ledger sequence height.
func (r *Response) LedgerIndex() (uint32, bool) {
	return r.Uint32Field(LedgerIndexField)
}
