package submit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianledger/meridian-go/pkg/errors"
	"github.com/meridianledger/meridian-go/pkg/rpc"
	"github.com/meridianledger/meridian-go/pkg/transaction"
)

// stubClient scripts node behavior per method and counts calls.
type stubClient struct {
	mu sync.Mutex

	submitResponse *rpc.Response
	submitErr      error

	lookupResponses []*rpc.Response
	lookupErr       error

	ledgerHeights []uint32
	ledgerErr     error

	submitCalls int
	lookupCalls int
	ledgerCalls int
}

func (c *stubClient) Request(ctx context.Context, req rpc.Request) (*rpc.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch req.(type) {
	case *rpc.SubmitRequest:
		c.submitCalls++
		if c.submitErr != nil {
			return nil, c.submitErr
		}
		return c.submitResponse, nil

	case *rpc.TxRequest:
		c.lookupCalls++
		if c.lookupErr != nil {
			return nil, c.lookupErr
		}
		idx := c.lookupCalls - 1
		if idx >= len(c.lookupResponses) {
			idx = len(c.lookupResponses) - 1
		}
		return c.lookupResponses[idx], nil

	case *rpc.LedgerRequest:
		c.ledgerCalls++
		if c.ledgerErr != nil {
			return nil, c.ledgerErr
		}
		idx := c.ledgerCalls - 1
		if idx >= len(c.ledgerHeights) {
			idx = len(c.ledgerHeights) - 1
		}
		return ledgerResponse(c.ledgerHeights[idx]), nil

	default:
		panic("unexpected request type")
	}
}

func submitAccepted() *rpc.Response {
	return &rpc.Response{Result: map[string]interface{}{
		"status":                "success",
		"engine_result":         rpc.EngineResultAccepted,
		"engine_result_message": "The transaction was applied.",
	}}
}

func submitRejected(code, message string) *rpc.Response {
	return &rpc.Response{Result: map[string]interface{}{
		"status":                "success",
		"engine_result":         code,
		"engine_result_message": message,
	}}
}

func lookupValidated(expiry uint32) *rpc.Response {
	return &rpc.Response{Result: map[string]interface{}{
		"status":             "success",
		"validated":          true,
		"LastLedgerSequence": float64(expiry),
	}}
}

func lookupPending(expiry uint32) *rpc.Response {
	return &rpc.Response{Result: map[string]interface{}{
		"status":             "success",
		"validated":          false,
		"LastLedgerSequence": float64(expiry),
	}}
}

func lookupNotFound() *rpc.Response {
	return &rpc.Response{Result: map[string]interface{}{
		"status":        "error",
		"error":         rpc.ErrTxNotFound,
		"error_message": "Transaction not found.",
	}}
}

func ledgerResponse(height uint32) *rpc.Response {
	return &rpc.Response{Result: map[string]interface{}{
		"status":       "success",
		"ledger_index": float64(height),
	}}
}

func signedTx(expiry uint32) *transaction.Transaction {
	return &transaction.Transaction{
		TransactionType:    "Payment",
		Account:            "mExampleSender",
		Destination:        "mExampleReceiver",
		Amount:             "1000",
		Fee:                "10",
		Sequence:           7,
		LastLedgerSequence: expiry,
		SigningPubKey:      "02aabbcc",
		TxnSignature:       "30440220",
	}
}

func newTestSubmitter(client rpc.Client) *Submitter {
	return New(client, WithPollInterval(time.Millisecond))
}

func TestSubmitAndWaitValidatedOnFirstPoll(t *testing.T) {
	client := &stubClient{
		submitResponse:  submitAccepted(),
		lookupResponses: []*rpc.Response{lookupValidated(50)},
	}

	snapshot, err := newTestSubmitter(client).SubmitAndWait(context.Background(), signedTx(50))
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.True(t, snapshot.Validated)
	assert.Equal(t, uint32(50), snapshot.ExpiryHeight)
	assert.NotEmpty(t, snapshot.Hash)

	assert.Equal(t, 1, client.submitCalls)
	assert.Equal(t, 1, client.lookupCalls)
	assert.Equal(t, 0, client.ledgerCalls, "a validated first poll must not query the oracle")
}

func TestSubmitAndWaitRejectedSkipsResolution(t *testing.T) {
	client := &stubClient{
		submitResponse: submitRejected("temBAD_FEE", "Invalid fee."),
	}

	snapshot, err := newTestSubmitter(client).SubmitAndWait(context.Background(), signedTx(50))
	require.Error(t, err)
	assert.Nil(t, snapshot)

	assert.True(t, errors.IsSubmissionError(err, errors.SubmissionErrRejected))

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	code, ok := domainErr.Field("engine_result")
	require.True(t, ok)
	assert.Equal(t, "temBAD_FEE", code)
	assert.Contains(t, domainErr.Message, "temBAD_FEE")
	assert.Contains(t, domainErr.Message, "Invalid fee.")

	assert.Equal(t, 1, client.submitCalls)
	assert.Equal(t, 0, client.lookupCalls, "rejection must not start polling")
	assert.Equal(t, 0, client.ledgerCalls)
}

func TestSubmitAndWaitRequiresExpiryHeight(t *testing.T) {
	client := &stubClient{submitResponse: submitAccepted()}

	tx := signedTx(0)
	_, err := newTestSubmitter(client).SubmitAndWait(context.Background(), tx)
	require.Error(t, err)

	assert.True(t, errors.IsSubmissionError(err, errors.SubmissionErrMissingExpiry))
	assert.Equal(t, 0, client.submitCalls, "precondition failures must not reach the network")
}

func TestResolveNotFoundThenValidated(t *testing.T) {
	client := &stubClient{
		submitResponse: submitAccepted(),
		lookupResponses: []*rpc.Response{
			lookupNotFound(),
			lookupNotFound(),
			lookupValidated(50),
		},
		ledgerHeights: []uint32{10, 20},
	}

	snapshot, err := newTestSubmitter(client).SubmitAndWait(context.Background(), signedTx(50))
	require.NoError(t, err)

	assert.True(t, snapshot.Validated)
	assert.Equal(t, 3, client.lookupCalls)
	assert.Equal(t, 2, client.ledgerCalls)
}

func TestResolveExpires(t *testing.T) {
	client := &stubClient{
		submitResponse:  submitAccepted(),
		lookupResponses: []*rpc.Response{lookupPending(50)},
		ledgerHeights:   []uint32{10, 60},
	}

	snapshot, err := newTestSubmitter(client).SubmitAndWait(context.Background(), signedTx(50))
	require.Error(t, err)
	assert.Nil(t, snapshot)

	assert.True(t, errors.IsSubmissionError(err, errors.SubmissionErrExpired))

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	latest, ok := domainErr.Field("latest_height")
	require.True(t, ok)
	assert.Equal(t, uint32(60), latest)
	expiry, ok := domainErr.Field("expiry_height")
	require.True(t, ok)
	assert.Equal(t, uint32(50), expiry)

	assert.Equal(t, 2, client.lookupCalls)
	assert.Equal(t, 2, client.ledgerCalls)
}

func TestResolveExpiryBoundary(t *testing.T) {
	t.Run("expiry equal to latest keeps polling", func(t *testing.T) {
		client := &stubClient{
			lookupResponses: []*rpc.Response{
				lookupPending(100),
				lookupValidated(100),
			},
			ledgerHeights: []uint32{100},
		}

		snapshot, err := newTestSubmitter(client).Resolve(context.Background(), "ABC123", 100)
		require.NoError(t, err)
		assert.True(t, snapshot.Validated)
		assert.Equal(t, 2, client.lookupCalls, "height 100 must not expire a transaction with expiry 100")
	})

	t.Run("latest one past expiry expires", func(t *testing.T) {
		client := &stubClient{
			lookupResponses: []*rpc.Response{lookupPending(100)},
			ledgerHeights:   []uint32{101},
		}

		_, err := newTestSubmitter(client).Resolve(context.Background(), "ABC123", 100)
		require.Error(t, err)
		assert.True(t, errors.IsSubmissionError(err, errors.SubmissionErrExpired))
	})
}

func TestResolveTerminatesAgainstAdvancingOracle(t *testing.T) {
	// Expiry already below the oracle's first height: one poll must settle it.
	client := &stubClient{
		lookupResponses: []*rpc.Response{lookupNotFound()},
		ledgerHeights:   []uint32{10, 11, 12, 13},
	}

	done := make(chan error, 1)
	go func() {
		_, err := newTestSubmitter(client).Resolve(context.Background(), "ABC123", 5)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.IsSubmissionError(err, errors.SubmissionErrExpired))
	case <-time.After(5 * time.Second):
		t.Fatal("resolution did not terminate")
	}
}

func TestResolveIdempotentForValidatedHash(t *testing.T) {
	client := &stubClient{
		lookupResponses: []*rpc.Response{lookupValidated(50)},
	}

	s := newTestSubmitter(client)
	first, err := s.Resolve(context.Background(), "ABC123", 50)
	require.NoError(t, err)
	second, err := s.Resolve(context.Background(), "ABC123", 50)
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, first.ExpiryHeight, second.ExpiryHeight)
	assert.Equal(t, first.Result, second.Result)
}

func TestResolveProtocolViolationOnMissingExpiry(t *testing.T) {
	// The node acknowledges the transaction but omits LastLedgerSequence.
	client := &stubClient{
		lookupResponses: []*rpc.Response{
			{Result: map[string]interface{}{
				"status":    "success",
				"validated": false,
			}},
		},
		ledgerHeights: []uint32{10},
	}

	_, err := newTestSubmitter(client).Resolve(context.Background(), "ABC123", 50)
	require.Error(t, err)

	assert.True(t, errors.IsSubmissionError(err, errors.SubmissionErrProtocolViolation))
	assert.Equal(t, 0, client.ledgerCalls, "a contract violation must fail before the oracle query")
}

func TestTransportErrorsPropagateUnchanged(t *testing.T) {
	transportErr := errors.NewRPCError(errors.RPCErrTransport, "connection refused", nil)

	t.Run("on submit", func(t *testing.T) {
		client := &stubClient{submitErr: transportErr}
		_, err := newTestSubmitter(client).SubmitAndWait(context.Background(), signedTx(50))
		require.Error(t, err)
		assert.True(t, errors.IsInfrastructure(err))
		assert.Equal(t, transportErr, err, "transport errors must not be wrapped")
	})

	t.Run("on lookup", func(t *testing.T) {
		client := &stubClient{
			submitResponse: submitAccepted(),
			lookupErr:      transportErr,
		}
		_, err := newTestSubmitter(client).SubmitAndWait(context.Background(), signedTx(50))
		require.Error(t, err)
		assert.Equal(t, transportErr, err)
		assert.Equal(t, 1, client.lookupCalls, "transport errors must not be retried")
	})

	t.Run("on oracle query", func(t *testing.T) {
		client := &stubClient{
			submitResponse:  submitAccepted(),
			lookupResponses: []*rpc.Response{lookupPending(50)},
			ledgerErr:       transportErr,
		}
		_, err := newTestSubmitter(client).SubmitAndWait(context.Background(), signedTx(50))
		require.Error(t, err)
		assert.Equal(t, transportErr, err)
		assert.Equal(t, 1, client.ledgerCalls)
	})
}

func TestResolveHonorsCancellation(t *testing.T) {
	client := &stubClient{
		lookupResponses: []*rpc.Response{lookupPending(50)},
		ledgerHeights:   []uint32{10},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(client, WithPollInterval(time.Hour))
	_, err := s.Resolve(ctx, "ABC123", 50)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, client.lookupCalls, "no queries may follow cancellation")
}

func TestSubmitAndWaitComputesHashLocally(t *testing.T) {
	client := &stubClient{
		// Response carries a bogus hash field; the snapshot key must come
		// from the transaction's own canonical bytes.
		submitResponse: &rpc.Response{Result: map[string]interface{}{
			"status":                "success",
			"engine_result":         rpc.EngineResultAccepted,
			"engine_result_message": "The transaction was applied.",
			"tx_hash":               "SPOOFED",
		}},
		lookupResponses: []*rpc.Response{lookupValidated(50)},
	}

	tx := signedTx(50)
	want, err := tx.Hash()
	require.NoError(t, err)

	snapshot, err := newTestSubmitter(client).SubmitAndWait(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, want, snapshot.Hash)
	assert.NotEqual(t, "SPOOFED", snapshot.Hash)
}

func TestConcurrentResolutionsAreIndependent(t *testing.T) {
	client := &stubClient{
		lookupResponses: []*rpc.Response{lookupValidated(50)},
	}

	s := newTestSubmitter(client)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Resolve(context.Background(), "ABC123", 50)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 8, client.lookupCalls)
}
