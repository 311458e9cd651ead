package fly

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// appDetails is the full app representation returned by GET /apps/{name}.
type appDetails struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Organization struct {
		Slug string `json:"slug"`
	} `json:"organization"`
}

// ListApps returns all apps owned by the organization.
func (c *Client) ListApps(ctx context.Context, orgSlug string) ([]App, error) {
	const op = "apps.list"
	if err := validatePathPart("org slug", orgSlug); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodGet,
		Path:   "/apps",
		Query:  url.Values{"org_slug": {orgSlug}},
	})
	if err != nil {
		return nil, err
	}
	if !succeeded(resp.StatusCode) {
		return nil, apiError(op, orgSlug, resp)
	}
	var body struct {
		Apps []App `json:"apps"`
	}
	if err := decode(op, resp.Body, &body); err != nil {
		return nil, err
	}
	return body.Apps, nil
}

// GetApp fetches one app. A missing app returns (nil, nil) so callers
// can distinguish absence from failure without unwrapping errors.
func (c *Client) GetApp(ctx context.Context, appName string) (*App, error) {
	const op = "apps.get"
	details, err := c.getAppDetails(ctx, op, appName)
	if err != nil || details == nil {
		return nil, err
	}
	return &App{ID: details.ID, Name: details.Name}, nil
}

// PutApp creates the app, or succeeds without change when an app of
// that name already exists in the same organization. A name owned by a
// different organization is a conflict.
func (c *Client) PutApp(ctx context.Context, orgSlug, appName string) (*App, error) {
	const op = "apps.put"
	if err := validatePathPart("org slug", orgSlug); err != nil {
		return nil, err
	}
	if err := validatePathPart("app name", appName); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/apps",
		Body: map[string]string{
			"app_name": appName,
			"org_slug": orgSlug,
		},
	})
	if err != nil {
		return nil, err
	}
	if succeeded(resp.StatusCode) {
		var body struct {
			ID string `json:"id"`
		}
		if err := decode(op, resp.Body, &body); err != nil {
			return nil, err
		}
		return &App{ID: body.ID, Name: appName}, nil
	}

	// 422 usually means the name is taken. Probe the app: if it exists
	// in the requested org this put is an idempotent no-op.
	if resp.StatusCode == 422 {
		details, getErr := c.getAppDetails(ctx, op, appName)
		if getErr == nil && details != nil {
			if details.Organization.Slug == orgSlug {
				return &App{ID: details.ID, Name: details.Name}, nil
			}
			return nil, NewConflictError(
				fmt.Sprintf("app %q already exists in organization %q, not %q",
					appName, details.Organization.Slug, orgSlug), nil,
			).WithOperation(op).WithResource(appName)
		}
	}
	return nil, apiError(op, appName, resp)
}

// DeleteApp deletes the app and everything it owns when force is set.
// Deleting an absent app succeeds.
func (c *Client) DeleteApp(ctx context.Context, appName string, force bool) error {
	const op = "apps.delete"
	if err := validatePathPart("app name", appName); err != nil {
		return err
	}
	req := &Request{Method: http.MethodDelete, Path: "/apps/" + appName}
	if force {
		req.Query = url.Values{"force": {"true"}}
	}
	resp, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	if succeeded(resp.StatusCode) || resp.StatusCode == 404 {
		return nil
	}
	return apiError(op, appName, resp)
}

func (c *Client) getAppDetails(ctx context.Context, op, appName string) (*appDetails, error) {
	if err := validatePathPart("app name", appName); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, op, &Request{Method: http.MethodGet, Path: "/apps/" + appName})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		return nil, nil
	}
	if !succeeded(resp.StatusCode) {
		return nil, apiError(op, appName, resp)
	}
	var details appDetails
	if err := decode(op, resp.Body, &details); err != nil {
		return nil, err
	}
	return &details, nil
}
