// Package rpc implements the network client for a Meridian ledger node's
// JSON-RPC API: one typed request in, one typed result or a transport error
// out. It holds no retry or polling logic; that belongs to callers.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/meridianledger/meridian-go/pkg/errors"
	"github.com/meridianledger/meridian-go/pkg/logging"
	"github.com/meridianledger/meridian-go/pkg/metrics"
)

const contentTypeJSON = "application/json"

// Client performs one request/response round trip against a ledger node.
// Implementations must be safe for concurrent use; independent resolutions
// share a single client.
type Client interface {
	Request(ctx context.Context, req Request) (*Response, error)
}

// HTTPClient is a Client over the node's HTTP JSON-RPC endpoint.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets the underlying http.Client, e.g. to control the
// transport-level timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithLogger sets the logger used for per-request debug logging.
func WithLogger(logger *logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = logger }
}

// WithRequestTimeout bounds a single round trip.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// WithMetrics sets the collector recording round-trip durations and error
// counts per method.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// NewHTTPClient returns a client for the node at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the node endpoint this client talks to.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// envelope is the wire shape of one request.
type envelope struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params,omitempty"`
}

// resultEnvelope is the wire shape of one response.
type resultEnvelope struct {
	Result map[string]interface{} `json:"result"`
}

// Request implements Client. It validates the request, performs exactly one
// POST round trip and decodes the result mapping. Failures at this boundary
// come back as rpc domain errors; a decoded response with result status
// "error" is returned to the caller for domain interpretation.
func (c *HTTPClient) Request(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(envelope{Method: req.Method(), Params: []interface{}{req}})
	if err != nil {
		return nil, errors.NewRPCError(errors.RPCErrInvalidRequest,
			fmt.Sprintf("failed to marshal %s request", req.Method()), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewRPCError(errors.RPCErrTransport,
			fmt.Sprintf("failed to construct %s request", req.Method()), err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)

	requestID := uuid.New().String()
	httpReq.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	res, err := c.httpClient.Do(httpReq)
	c.observeDuration(req.Method(), time.Since(start))
	if err != nil {
		c.observeError(req.Method(), errors.RPCErrTransport)
		return nil, errors.NewRPCError(errors.RPCErrTransport,
			fmt.Sprintf("%s round trip failed", req.Method()), err)
	}
	defer res.Body.Close()

	response, err := interpretBody(req.Method(), res)
	if err != nil {
		c.observeError(req.Method(), errors.CodeOf(err))
		return nil, err
	}

	c.logger.Debug("node request completed",
		"method", req.Method(),
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
		"result_status", response.Result[statusField],
	)

	return response, nil
}

func (c *HTTPClient) observeDuration(method string, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.NodeRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (c *HTTPClient) observeError(method, code string) {
	if c.metrics == nil {
		return
	}
	c.metrics.NodeRequestErrors.WithLabelValues(method, code).Inc()
}

// interpretBody decodes a node HTTP response into a Response or an rpc
// domain error.
func interpretBody(method string, res *http.Response) (*Response, error) {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.NewRPCError(errors.RPCErrTransport,
			fmt.Sprintf("failed to read %s response body", method), err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, errors.RPCErrorf(errors.RPCErrHTTPStatus,
			"%s request answered with HTTP %d", method, res.StatusCode)
	}

	var decoded resultEnvelope
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errors.NewRPCError(errors.RPCErrMalformedResponse,
			fmt.Sprintf("failed to decode %s response", method), err)
	}
	if decoded.Result == nil {
		return nil, errors.RPCErrorf(errors.RPCErrMalformedResponse,
			"%s response carries no result", method)
	}

	return &Response{Result: decoded.Result}, nil
}
