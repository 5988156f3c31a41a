// pkg/errors/rpc.go
package errors

// RPC error codes. All of these are infrastructure failures at the network
// client boundary, distinct from the domain verdicts in submission.go.
const (
	// RPCErrTransport indicates the round trip itself failed (connect,
	// timeout, dropped connection).
	RPCErrTransport = "RPC_TRANSPORT"
	// RPCErrHTTPStatus indicates the node answered with a non-OK HTTP status.
	RPCErrHTTPStatus = "RPC_HTTP_STATUS"
	// RPCErrMalformedResponse indicates the response body could not be decoded.
	RPCErrMalformedResponse = "RPC_MALFORMED_RESPONSE"
	// RPCErrRequestFailed indicates the node processed the request and
	// reported a failed result (result status "error").
	RPCErrRequestFailed = "RPC_REQUEST_FAILED"
	// RPCErrInvalidRequest indicates a request model failed its construction
	// validation and was never sent.
	RPCErrInvalidRequest = "RPC_INVALID_REQUEST"
)

// RPC domain name
const RPCDomain = "rpc"

// NewRPCError creates a new rpc error
func NewRPCError(code string, message string, err error) error {
	return &Error{
		Domain:   RPCDomain,
		Code:     code,
		Message:  message,
		Original: err,
	}
}

// RPCErrorf creates a new rpc error with formatted message
func RPCErrorf(code string, format string, args ...interface{}) error {
	return &Error{
		Domain:  RPCDomain,
		Code:    code,
		Message: Sprintf(format, args...),
	}
}

// RPCWrap wraps an error with the rpc domain
func RPCWrap(err error, operation string, code string, message string) error {
	if err == nil {
		return nil
	}

	return &Error{
		Domain:    RPCDomain,
		Operation: operation,
		Code:      code,
		Message:   message,
		Original:  err,
	}
}

// IsRPCError checks if an error is an rpc error with the given code
func IsRPCError(err error, code string) bool {
	var domainErr *Error
	if As(err, &domainErr) {
		return domainErr.Domain == RPCDomain && domainErr.Code == code
	}
	return false
}

// IsInfrastructure reports whether an error originated at the network client
// boundary rather than from a domain verdict.
func IsInfrastructure(err error) bool {
	var domainErr *Error
	if As(err, &domainErr) {
		return domainErr.Domain == RPCDomain
	}
	return false
}
