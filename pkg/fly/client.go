package fly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Client issues typed requests against the Machines API. It is
// stateless: all resource state lives remotely, and every call maps to
// exactly one transport round trip.
type Client struct {
	transport Transport
}

// NewClient creates a client on top of the given transport.
func NewClient(transport Transport) *Client {
	return &Client{transport: transport}
}

// errorBody is the error envelope returned by the Machines API.
type errorBody struct {
	Error string `json:"error"`
}

// do performs one request and returns the response unchanged. Only
// transport-level failures are surfaced here; status handling is up to
// the caller because several operations give specific statuses their
// own meaning (404 on get, 409 on machine create, 422 on app create).
func (c *Client) do(ctx context.Context, op string, req *Request) (*Response, error) {
	resp, err := c.transport.RoundTrip(ctx, req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr.WithOperation(op)
		}
		return nil, err
	}
	return resp, nil
}

// apiError builds a classified error from a non-success response.
func apiError(op, resource string, resp *Response) *APIError {
	message := remoteMessage(resp.Body)
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return &APIError{
		Class:      classifyStatus(resp.StatusCode),
		Message:    message,
		StatusCode: resp.StatusCode,
		Resource:   resource,
		Operation:  op,
	}
}

// remoteMessage extracts the API error message, falling back to the
// raw body for non-JSON responses.
func remoteMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return eb.Error
	}
	if len(body) > 0 {
		const limit = 512
		if len(body) > limit {
			body = body[:limit]
		}
		return string(body)
	}
	return ""
}

// decode unmarshals a success body, reporting malformed payloads as
// transient: a truncated or garbled body usually means the exchange
// itself went wrong, not the request.
func decode(op string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return NewTransientError("decode response", err).WithOperation(op)
	}
	return nil
}

// succeeded reports a 2xx status.
func succeeded(status int) bool {
	return status >= 200 && status < 300
}

// validatePathPart rejects identifiers that cannot be safely
// interpolated into a request path. The accepted alphabet covers org
// slugs, app names, machine and volume ids, secret names, and IP
// addresses.
func validatePathPart(kind, value string) error {
	if value == "" {
		return NewInvalidError(kind + " must not be empty")
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ':':
		default:
			return NewInvalidError(fmt.Sprintf("%s %q contains illegal character %q", kind, value, r))
		}
	}
	return nil
}
