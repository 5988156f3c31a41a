// pkg/errors/submission.go
package errors

// Submission error codes
const (
	// SubmissionErrRejected indicates the node refused the transaction at
	// admission time. Carries fields "engine_result" and "engine_result_message".
	SubmissionErrRejected = "SUBMISSION_REJECTED"
	// SubmissionErrExpired indicates the latest validated ledger height
	// advanced past the transaction's expiry height without the transaction
	// ever being validated. Carries fields "latest_height" and "expiry_height".
	SubmissionErrExpired = "SUBMISSION_EXPIRED"
	// SubmissionErrMissingExpiry indicates the caller submitted a transaction
	// without a LastLedgerSequence. Reliable submission cannot terminate
	// without one, so this is a precondition violation.
	SubmissionErrMissingExpiry = "SUBMISSION_MISSING_EXPIRY"
	// SubmissionErrProtocolViolation indicates the node reported knowledge of
	// the transaction but omitted its LastLedgerSequence, which the protocol
	// guarantees once the transaction is known.
	SubmissionErrProtocolViolation = "SUBMISSION_PROTOCOL_VIOLATION"
)

// Submission domain name
const SubmissionDomain = "submission"

// Submission operations
const (
	OpSubmitAndWait   = "SubmitAndWait"
	OpResolveFinality = "ResolveFinality"
	OpComputeHash     = "ComputeHash"
	OpLookupTx        = "LookupTransaction"
	OpLatestLedger    = "LatestValidatedLedger"
	OpJournalOutcome  = "JournalOutcome"
	OpPipelineSubmit  = "PipelineSubmit"
)

// NewSubmissionError creates a new submission error
func NewSubmissionError(code string, message string, err error) error {
	return &Error{
		Domain:   SubmissionDomain,
		Code:     code,
		Message:  message,
		Original: err,
	}
}

// SubmissionErrorf creates a new submission error with formatted message
func SubmissionErrorf(code string, format string, args ...interface{}) error {
	return &Error{
		Domain:  SubmissionDomain,
		Code:    code,
		Message: Sprintf(format, args...),
	}
}

// SubmissionWrap wraps an error with the submission domain
func SubmissionWrap(err error, operation string, message string) error {
	if err == nil {
		return nil
	}

	return &Error{
		Domain:    SubmissionDomain,
		Operation: operation,
		Message:   message,
		Original:  err,
	}
}

// IsSubmissionError checks if an error is a submission error with the given code
func IsSubmissionError(err error, code string) bool {
	var domainErr *Error
	if As(err, &domainErr) {
		return domainErr.Domain == SubmissionDomain && domainErr.Code == code
	}
	return false
}
