// Package submit implements reliable transaction submission: submit a signed
// transaction, then poll the ledger until its fate is final. A transaction
// either lands in a validated ledger, or the validated ledger height passes
// its declared expiry and it never will.
package submit

import (
	"context"
	"time"

	"github.com/meridianledger/meridian-go/pkg/errors"
	"github.com/meridianledger/meridian-go/pkg/logging"
	"github.com/meridianledger/meridian-go/pkg/metrics"
	"github.com/meridianledger/meridian-go/pkg/rpc"
	"github.com/meridianledger/meridian-go/pkg/transaction"
)

// DefaultPollInterval approximates one ledger close. Polling faster cannot
// surface new information and only loads the node.
const DefaultPollInterval = 4 * time.Second

// resolutionState is the resolver's explicit state value. The loop owns one
// and mutates it; there is no recursion and no shared state across
// resolutions.
type resolutionState int

const (
	statePolling resolutionState = iota
	stateValidated
	stateExpired
)

// StatusSnapshot is the final word on one transaction: the lookup response
// that reported it validated. Produced once, never mutated.
type StatusSnapshot struct {
	// Hash is the transaction hash the resolution polled on.
	Hash string
	// Validated is always true on a success snapshot.
	Validated bool
	// ExpiryHeight is the transaction's declared expiry height, when the
	// node reported one.
	ExpiryHeight uint32
	// Result is the full field mapping of the final lookup response.
	Result map[string]interface{}
}

// Submitter performs reliable submission against one node. It is stateless
// between calls and safe for concurrent use; each SubmitAndWait call is an
// independent resolution.
type Submitter struct {
	client           rpc.Client
	pollInterval     time.Duration
	verifySignatures bool
	logger           *logging.Logger
	metrics          *metrics.Metrics
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithPollInterval overrides the fixed wait between finality polls.
func WithPollInterval(d time.Duration) Option {
	return func(s *Submitter) { s.pollInterval = d }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Submitter) { s.logger = logger }
}

// WithSignatureVerification toggles client-side signature verification
// before submission.
func WithSignatureVerification(enabled bool) Option {
	return func(s *Submitter) { s.verifySignatures = enabled }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Submitter) { s.metrics = m }
}

// New returns a Submitter that submits through the given network client.
func New(client rpc.Client, opts ...Option) *Submitter {
	s := &Submitter{
		client:       client,
		pollInterval: DefaultPollInterval,
		logger:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitAndWait submits a signed transaction and blocks until its outcome is
// final. The transaction must carry a LastLedgerSequence; without one the
// resolution could never terminate and the call fails before any network
// round trip.
//
// On success the returned snapshot is the validated lookup response. On
// failure the error is one of: a submission rejection (the node refused the
// transaction at admission), an expiry outcome (the validated ledger height
// passed the transaction's expiry), a protocol contract violation, or an
// unwrapped infrastructure error from the network client.
func (s *Submitter) SubmitAndWait(ctx context.Context, tx *transaction.Transaction) (*StatusSnapshot, error) {
	if !tx.HasExpiry() {
		return nil, errors.SubmissionErrorf(errors.SubmissionErrMissingExpiry,
			"transaction carries no LastLedgerSequence; reliable submission requires one")
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if s.verifySignatures {
		if err := tx.VerifySignature(); err != nil {
			return nil, err
		}
	}

	// The polling key is always computed locally from the signed canonical
	// bytes, never taken from a node response.
	hash, err := tx.Hash()
	if err != nil {
		return nil, errors.SubmissionWrap(err, errors.OpComputeHash,
			"failed to derive transaction hash")
	}

	fields, err := tx.ToFields()
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Request(ctx, rpc.NewSubmitRequest(fields))
	if err != nil {
		// Infrastructure failure, not a verdict. Propagate unchanged.
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	verdict := resp.Verdict()
	if !verdict.Accepted() {
		s.observeOutcome("rejected")
		s.logger.Info("transaction rejected at admission",
			"hash", hash,
			"engine_result", verdict.Code,
		)
		err := &errors.Error{
			Domain:    errors.SubmissionDomain,
			Operation: errors.OpSubmitAndWait,
			Code:      errors.SubmissionErrRejected,
			Message: errors.Sprintf("transaction failed, %s: %s",
				verdict.Code, verdict.Message),
			Fields: map[string]interface{}{
				"engine_result":         verdict.Code,
				"engine_result_message": verdict.Message,
			},
		}
		return nil, err
	}

	s.logger.Info("transaction accepted, awaiting finality",
		"hash", hash,
		"expiry_height", tx.LastLedgerSequence,
	)

	return s.Resolve(ctx, hash, tx.LastLedgerSequence)
}

// Resolve polls the ledger until the transaction identified by hash reaches
// a final outcome. expiryHeight is the transaction's declared expiry, used
// to decide termination while the node does not yet know the transaction.
//
// Each iteration waits one poll interval, looks the transaction up, and on a
// non-validated answer compares the expiry height against the latest
// validated ledger height. Queries within an iteration are strictly
// sequential. Transport errors are never retried here; they propagate
// unchanged. The wait and both queries honor ctx cancellation.
func (s *Submitter) Resolve(ctx context.Context, hash string, expiryHeight uint32) (*StatusSnapshot, error) {
	if expiryHeight == 0 {
		return nil, errors.SubmissionErrorf(errors.SubmissionErrMissingExpiry,
			"resolution requires the transaction's expiry height")
	}

	state := statePolling
	polls := 0
	start := time.Now()

	var snapshot *StatusSnapshot
	var outcome error

	for state == statePolling {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		polls++

		lookup, err := s.client.Request(ctx, rpc.NewTxRequest(hash))
		if err != nil {
			return nil, err
		}

		if lookup.IsSuccessful() && lookup.Validated() {
			// Final. A validated outcome is never re-polled or overridden.
			state = stateValidated
			expiry, _ := lookup.ExpiryHeight()
			snapshot = &StatusSnapshot{
				Hash:         hash,
				Validated:    true,
				ExpiryHeight: expiry,
				Result:       lookup.Result,
			}
			continue
		}

		knownExpiry := expiryHeight
		switch {
		case lookup.IsNotFound():
			// Not yet known to the node. Decide against the declared expiry.
		case !lookup.IsSuccessful():
			return nil, lookup.Err()
		default:
			// The node knows the transaction, so its expiry height must be
			// present. Absence is a protocol contract violation, not a
			// condition to loop past.
			reported, ok := lookup.ExpiryHeight()
			if !ok {
				return nil, errors.SubmissionErrorf(errors.SubmissionErrProtocolViolation,
					"node reported transaction %s without a LastLedgerSequence", hash)
			}
			knownExpiry = reported
		}

		latest, err := s.latestValidatedHeight(ctx)
		if err != nil {
			return nil, err
		}

		s.logger.Debug("finality poll",
			"hash", hash,
			"latest_height", latest,
			"expiry_height", knownExpiry,
		)

		// Expiry equal to the latest height is not expired: the transaction
		// is still eligible for the ledger at its expiry height. Only a
		// strictly greater latest height is terminal.
		if knownExpiry >= latest {
			continue
		}

		state = stateExpired
		outcome = &errors.Error{
			Domain:    errors.SubmissionDomain,
			Operation: errors.OpResolveFinality,
			Code:      errors.SubmissionErrExpired,
			Message: errors.Sprintf(
				"the latest validated ledger height %d exceeds the transaction's expiry height %d",
				latest, knownExpiry),
			Fields: map[string]interface{}{
				"latest_height": latest,
				"expiry_height": knownExpiry,
			},
		}
	}

	switch state {
	case stateValidated:
		s.observeOutcome("validated")
		s.observeResolution(polls, time.Since(start))
		s.logger.Info("transaction validated",
			"hash", hash,
			"polls", polls,
		)
		return snapshot, nil
	default:
		s.observeOutcome("expired")
		s.observeResolution(polls, time.Since(start))
		s.logger.Info("transaction expired without validation",
			"hash", hash,
			"polls", polls,
		)
		return nil, outcome
	}
}

// latestValidatedHeight queries the ledger height oracle. Heights are never
// cached; the ledger advances independently of the polling loop.
func (s *Submitter) latestValidatedHeight(ctx context.Context) (uint32, error) {
	resp, err := s.client.Request(ctx, rpc.NewValidatedLedgerRequest())
	if err != nil {
		return 0, err
	}
	if err := resp.Err(); err != nil {
		return 0, err
	}
	height, ok := resp.LedgerIndex()
	if !ok {
		return 0, errors.RPCErrorf(errors.RPCErrMalformedResponse,
			"ledger response carries no ledger_index")
	}
	return height, nil
}

// wait suspends for one poll interval, or less if ctx is cancelled first.
func (s *Submitter) wait(ctx context.Context) error {
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Submitter) observeOutcome(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SubmissionCount.WithLabelValues(outcome).Inc()
}

func (s *Submitter) observeResolution(polls int, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ResolutionPolls.Observe(float64(polls))
	s.metrics.ResolutionDuration.Observe(elapsed.Seconds())
}
