// pkg/submit/lookup.go
package submit

import (
	"context"

	"github.com/meridianledger/meridian-go/pkg/errors"
	"github.com/meridianledger/meridian-go/pkg/rpc"
)

// LookupOptions tune a transaction lookup.
type LookupOptions struct {
	// Binary selects hexadecimal encoding of the returned transaction data.
	Binary bool
	// MinLedger and MaxLedger bound the search to a range of at most
	// rpc.MaxLedgerRangeSpan ledgers. When the node cannot find the
	// transaction, it confirms whether it searched the whole range.
	MinLedger uint32
	MaxLedger uint32
}

// GetTransactionFromHash fetches a transaction from the ledger by hash. A
// failed result, including an unknown transaction, is returned as an error;
// callers that need to distinguish "not yet known" should inspect the error
// code or use a Submitter resolution instead.
func GetTransactionFromHash(ctx context.Context, client rpc.Client, hash string, opts *LookupOptions) (*rpc.Response, error) {
	req := rpc.NewTxRequest(hash)
	if opts != nil {
		req.Binary = opts.Binary
		if opts.MinLedger != 0 || opts.MaxLedger != 0 {
			req.WithRange(opts.MinLedger, opts.MaxLedger)
		}
	}

	resp, err := client.Request(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, errors.WrapWithOperation(err, errors.OpLookupTx)
	}
	return resp, nil
}

// GetLatestValidatedLedgerSequence returns the sequence height of the most
// recently validated ledger.
func GetLatestValidatedLedgerSequence(ctx context.Context, client rpc.Client) (uint32, error) {
	resp, err := client.Request(ctx, rpc.NewValidatedLedgerRequest())
	if err != nil {
		return 0, err
	}
	if err := resp.Err(); err != nil {
		return 0, errors.WrapWithOperation(err, errors.OpLatestLedger)
	}
	height, ok := resp.LedgerIndex()
	if !ok {
		return 0, errors.RPCErrorf(errors.RPCErrMalformedResponse,
			"ledger response carries no ledger_index")
	}
	return height, nil
}
