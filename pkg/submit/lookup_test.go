package submit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianledger/meridian-go/pkg/errors"
	"github.com/meridianledger/meridian-go/pkg/rpc"
)

// capturingClient records the last request and answers from a script.
type capturingClient struct {
	last     rpc.Request
	response *rpc.Response
	err      error
}

func (c *capturingClient) Request(ctx context.Context, req rpc.Request) (*rpc.Response, error) {
	c.last = req
	return c.response, c.err
}

func TestGetTransactionFromHash(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		client := &capturingClient{response: lookupValidated(50)}

		resp, err := GetTransactionFromHash(context.Background(), client, "ABC123", nil)
		require.NoError(t, err)
		assert.True(t, resp.Validated())

		req, ok := client.last.(*rpc.TxRequest)
		require.True(t, ok)
		assert.Equal(t, "ABC123", req.Transaction)
		assert.False(t, req.Binary)
	})

	t.Run("options applied", func(t *testing.T) {
		client := &capturingClient{response: lookupValidated(50)}

		_, err := GetTransactionFromHash(context.Background(), client, "ABC123",
			&LookupOptions{Binary: true, MinLedger: 100, MaxLedger: 200})
		require.NoError(t, err)

		req := client.last.(*rpc.TxRequest)
		assert.True(t, req.Binary)
		assert.Equal(t, uint32(100), req.MinLedger)
		assert.Equal(t, uint32(200), req.MaxLedger)
	})

	t.Run("not found is an error", func(t *testing.T) {
		client := &capturingClient{response: lookupNotFound()}

		_, err := GetTransactionFromHash(context.Background(), client, "ABC123", nil)
		require.Error(t, err)
		assert.True(t, errors.IsRPCError(err, errors.RPCErrRequestFailed))
	})

	t.Run("transport error propagates", func(t *testing.T) {
		transportErr := errors.RPCErrorf(errors.RPCErrTransport, "connection refused")
		client := &capturingClient{err: transportErr}

		_, err := GetTransactionFromHash(context.Background(), client, "ABC123", nil)
		assert.Equal(t, transportErr, err)
	})
}

func TestGetLatestValidatedLedgerSequence(t *testing.T) {
	t.Run("returns height", func(t *testing.T) {
		client := &capturingClient{response: ledgerResponse(90000)}

		height, err := GetLatestValidatedLedgerSequence(context.Background(), client)
		require.NoError(t, err)
		assert.Equal(t, uint32(90000), height)

		req, ok := client.last.(*rpc.LedgerRequest)
		require.True(t, ok)
		assert.Equal(t, rpc.ValidatedLedgerIndex, req.LedgerIndex)
	})

	t.Run("missing height is malformed", func(t *testing.T) {
		client := &capturingClient{response: &rpc.Response{
			Result: map[string]interface{}{"status": "success"},
		}}

		_, err := GetLatestValidatedLedgerSequence(context.Background(), client)
		require.Error(t, err)
		assert.True(t, errors.IsRPCError(err, errors.RPCErrMalformedResponse))
	})
}
