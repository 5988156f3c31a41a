// pkg/errors/transaction.go
package errors

// Transaction error codes
const (
	// TransactionErrInvalidSignature indicates an invalid signature
	TransactionErrInvalidSignature = "TRANSACTION_INVALID_SIGNATURE"
	// TransactionErrInvalidHash indicates the carried hash does not match
	// the canonical bytes
	TransactionErrInvalidHash = "TRANSACTION_INVALID_HASH"
	// TransactionErrMissingField indicates a required field is absent
	TransactionErrMissingField = "TRANSACTION_MISSING_FIELD"
	// TransactionErrSerialization indicates the transaction could not be
	// serialized to canonical bytes
	TransactionErrSerialization = "TRANSACTION_SERIALIZATION"
)

// Transaction domain name
const TransactionDomain = "transaction"

// NewTransactionError creates a new transaction error
func NewTransactionError(code string, message string, err error) error {
	return &Error{
		Domain:   TransactionDomain,
		Code:     code,
		Message:  message,
		Original: err,
	}
}

// TransactionErrorf creates a new transaction error with formatted message
func TransactionErrorf(code string, format string, args ...interface{}) error {
	return &Error{
		Domain:  TransactionDomain,
		Code:    code,
		Message: Sprintf(format, args...),
	}
}

// IsTransactionError checks if an error is a transaction error with the given code
func IsTransactionError(err error, code string) bool {
	var domainErr *Error
	if As(err, &domainErr) {
		return domainErr.Domain == TransactionDomain && domainErr.Code == code
	}
	return false
}
