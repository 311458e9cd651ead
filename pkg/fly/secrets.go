package fly

import (
	"context"
	"net/http"
)

// ListSecrets returns the app's secret keys. Values are never
// retrievable once set; the listing carries names and value digests
// only.
func (c *Client) ListSecrets(ctx context.Context, appName string) ([]Secret, error) {
	const op = "secrets.list"
	if err := validatePathPart("app name", appName); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodGet,
		Path:   "/apps/" + appName + "/secrets",
	})
	if err != nil {
		return nil, err
	}
	if !succeeded(resp.StatusCode) {
		return nil, apiError(op, appName, resp)
	}
	var body struct {
		Secrets []Secret `json:"secrets"`
	}
	if err := decode(op, resp.Body, &body); err != nil {
		return nil, err
	}
	return body.Secrets, nil
}

// SetSecret stores value under name. Setting the same value twice is a
// platform-side no-op, so the call is safe to resubmit. The returned
// Secret carries the name and the platform's digest of the value,
// never the value itself.
func (c *Client) SetSecret(ctx context.Context, appName, name, value string) (*Secret, error) {
	const op = "secrets.set"
	if err := validatePathPart("app name", appName); err != nil {
		return nil, err
	}
	if err := validatePathPart("secret name", name); err != nil {
		return nil, err
	}
	if value == "" {
		return nil, NewInvalidError("secret value must not be empty").WithOperation(op)
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/apps/" + appName + "/secrets/" + name,
		Body:   map[string]string{"value": value},
	})
	if err != nil {
		return nil, err
	}
	if !succeeded(resp.StatusCode) {
		// apiError reads only the response body; the request value
		// cannot leak into the error.
		return nil, apiError(op, name, resp)
	}
	var secret Secret
	if err := decode(op, resp.Body, &secret); err != nil {
		return nil, err
	}
	return &secret, nil
}

// DeleteSecret removes the secret key. Deleting an absent key succeeds.
func (c *Client) DeleteSecret(ctx context.Context, appName, name string) error {
	const op = "secrets.delete"
	if err := validatePathPart("app name", appName); err != nil {
		return err
	}
	if err := validatePathPart("secret name", name); err != nil {
		return err
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodDelete,
		Path:   "/apps/" + appName + "/secrets/" + name,
	})
	if err != nil {
		return err
	}
	if succeeded(resp.StatusCode) || resp.StatusCode == 404 {
		return nil
	}
	return apiError(op, name, resp)
}
