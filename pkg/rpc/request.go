// pkg/rpc/request.go
package rpc

import (
	"github.com/meridianledger/meridian-go/pkg/errors"
)

// MaxLedgerRangeSpan is the widest min/max ledger range the node accepts on
// a transaction lookup. The node uses the range to confirm whether it was
// able to search every ledger in it when the transaction is not found.
const MaxLedgerRangeSpan = 1000

// ValidatedLedgerIndex selects the latest validated ledger on a ledger query.
const ValidatedLedgerIndex = "validated"

// Request is one typed request the node understands. Requests are
// validation-only data carriers: construct, validate, send. They hold no
// connection state.
type Request interface {
	// Method returns the protocol method name.
	Method() string
	// Validate reports whether the request is well-formed. A request that
	// fails validation is never sent.
	Validate() error
}

// SubmitRequest asks the node to admit a signed transaction.
type SubmitRequest struct {
	// TxBlob is the signed transaction serialized to hexadecimal.
	TxBlob string `json:"tx_blob,omitempty"`
	// TxJSON is the signed transaction in field form. Exactly one of TxBlob
	// and TxJSON must be set.
	TxJSON map[string]interface{} `json:"tx_json,omitempty"`
}

// NewSubmitRequest creates a submit request from a transaction in field form.
func NewSubmitRequest(txJSON map[string]interface{}) *SubmitRequest {
	return &SubmitRequest{TxJSON: txJSON}
}

// Method implements Request.
func (r *SubmitRequest) Method() string { return "submit" }

// Validate implements Request.
func (r *SubmitRequest) Validate() error {
	if r.TxBlob == "" && r.TxJSON == nil {
		return errors.RPCErrorf(errors.RPCErrInvalidRequest,
			"submit request requires tx_blob or tx_json")
	}
	if r.TxBlob != "" && r.TxJSON != nil {
		return errors.RPCErrorf(errors.RPCErrInvalidRequest,
			"submit request must not carry both tx_blob and tx_json")
	}
	return nil
}

// TxRequest looks up a transaction by hash.
type TxRequest struct {
	// Transaction is the transaction hash, required.
	Transaction string `json:"transaction"`
	// Binary selects hexadecimal encoding of the returned transaction data.
	Binary bool `json:"binary,omitempty"`
	// MinLedger and MaxLedger optionally bound the search to a ledger range
	// of at most MaxLedgerRangeSpan. Both must be set or both unset.
	MinLedger uint32 `json:"min_ledger,omitempty"`
	MaxLedger uint32 `json:"max_ledger,omitempty"`
}

// NewTxRequest creates a lookup request for the given transaction hash.
func NewTxRequest(hash string) *TxRequest {
	return &TxRequest{Transaction: hash}
}

// WithRange bounds the lookup to the given inclusive ledger range.
func (r *TxRequest) WithRange(minLedger, maxLedger uint32) *TxRequest {
	r.MinLedger = minLedger
	r.MaxLedger = maxLedger
	return r
}

// Method implements Request.
func (r *TxRequest) Method() string { return "tx" }

// Validate implements Request.
func (r *TxRequest) Validate() error {
	if r.Transaction == "" {
		return errors.RPCErrorf(errors.RPCErrInvalidRequest,
			"tx request requires a transaction hash")
	}
	if (r.MinLedger == 0) != (r.MaxLedger == 0) {
		return errors.RPCErrorf(errors.RPCErrInvalidRequest,
			"tx request ledger range requires both min_ledger and max_ledger")
	}
	if r.MinLedger != 0 {
		if r.MinLedger > r.MaxLedger {
			return errors.RPCErrorf(errors.RPCErrInvalidRequest,
				"tx request min_ledger %d exceeds max_ledger %d", r.MinLedger, r.MaxLedger)
		}
		if span := r.MaxLedger - r.MinLedger + 1; span > MaxLedgerRangeSpan {
			return errors.RPCErrorf(errors.RPCErrInvalidRequest,
				"tx request ledger range spans %d ledgers, maximum is %d", span, MaxLedgerRangeSpan)
		}
	}
	return nil
}

// LedgerRequest queries a ledger by index. With LedgerIndex set to
// ValidatedLedgerIndex it acts as the latest-validated-height oracle.
type LedgerRequest struct {
	LedgerIndex string `json:"ledger_index"`
}

// NewValidatedLedgerRequest creates a request for the latest validated ledger.
func NewValidatedLedgerRequest() *LedgerRequest {
	return &LedgerRequest{LedgerIndex: ValidatedLedgerIndex}
}

// Method implements Request.
func (r *LedgerRequest) Method() string { return "ledger" }

// Validate implements Request.
func (r *LedgerRequest) Validate() error {
	if r.LedgerIndex == "" {
		return errors.RPCErrorf(errors.RPCErrInvalidRequest,
			"ledger request requires a ledger_index")
	}
	return nil
}
