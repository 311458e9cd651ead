// Package fly is a typed client for the Fly.io Machines API. Every
// client call performs exactly one remote request and returns either
// the remote representation or a classified *APIError; retries and
// convergence waiting belong to the layers above.
package fly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the public Machines API endpoint.
const DefaultBaseURL = "https://api.machines.dev/v1"

// Request describes a single HTTP exchange against the Machines API.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE).
	Method string

	// Path is the URL path relative to the API base, starting with "/".
	Path string

	// Query holds optional query parameters.
	Query url.Values

	// Body is JSON-encoded when non-nil.
	Body any
}

// Response is the outcome of a transport round trip.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the raw response body.
	Body []byte
}

// Transport performs a single request against the remote platform.
// Implementations must not retry, cache, or interpret the response
// beyond reading it fully.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is the production Transport backed by net/http. The
// API token is fixed at construction time and never mutated.
type HTTPTransport struct {
	baseURL string
	token   string
	client  *http.Client
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// WithBaseURL overrides the API base URL (used for tests and private
// deployments).
func WithBaseURL(baseURL string) HTTPTransportOption {
	return func(t *HTTPTransport) { t.baseURL = baseURL }
}

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(client *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) { t.client = client }
}

// NewHTTPTransport creates a transport authenticating with the given
// API token.
func NewHTTPTransport(token string, opts ...HTTPTransportOption) (*HTTPTransport, error) {
	if token == "" {
		return nil, NewInvalidError("api token must not be empty")
	}
	t := &HTTPTransport{
		baseURL: DefaultBaseURL,
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// RoundTrip performs the request. Connection failures, timeouts, and
// unreadable responses surface as transient errors; every HTTP status
// is passed through for the client to classify.
func (t *HTTPTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, NewInvalidError(fmt.Sprintf("encode request body: %v", err))
		}
		body = bytes.NewReader(encoded)
	}

	u := t.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, NewInvalidError(fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.token)
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewTransientError("request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransientError("read response body", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: raw}, nil
}
