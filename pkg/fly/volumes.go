package fly

import (
	"context"
	"net/http"
)

// ListVolumes returns all volumes of the app.
func (c *Client) ListVolumes(ctx context.Context, appName string) ([]Volume, error) {
	const op = "volumes.list"
	if err := validatePathPart("app name", appName); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodGet,
		Path:   "/apps/" + appName + "/volumes",
	})
	if err != nil {
		return nil, err
	}
	if !succeeded(resp.StatusCode) {
		return nil, apiError(op, appName, resp)
	}
	var volumes []Volume
	if err := decode(op, resp.Body, &volumes); err != nil {
		return nil, err
	}
	return volumes, nil
}

// GetVolume fetches one volume. A missing volume returns (nil, nil).
func (c *Client) GetVolume(ctx context.Context, appName, volumeID string) (*Volume, error) {
	const op = "volumes.get"
	if err := validateVolumePath(appName, volumeID); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodGet,
		Path:   "/apps/" + appName + "/volumes/" + volumeID,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		return nil, nil
	}
	if !succeeded(resp.StatusCode) {
		return nil, apiError(op, volumeID, resp)
	}
	var volume Volume
	if err := decode(op, resp.Body, &volume); err != nil {
		return nil, err
	}
	return &volume, nil
}

// CreateVolume creates a volume and returns its remote representation.
func (c *Client) CreateVolume(ctx context.Context, appName string, req VolumeCreateRequest) (*Volume, error) {
	const op = "volumes.create"
	if err := validatePathPart("app name", appName); err != nil {
		return nil, err
	}
	if req.Name == "" || req.Region == "" {
		return nil, NewInvalidError("volume name and region must not be empty").WithOperation(op)
	}
	if req.SizeGB < 1 {
		return nil, NewInvalidError("volume size must be at least 1 GB").WithOperation(op)
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/apps/" + appName + "/volumes",
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	if !succeeded(resp.StatusCode) {
		return nil, apiError(op, req.Name, resp)
	}
	var volume Volume
	if err := decode(op, resp.Body, &volume); err != nil {
		return nil, err
	}
	return &volume, nil
}

// DeleteVolume deletes the volume. The platform rejects deletion while
// the volume is attached; that rejection surfaces as a conflict.
// Deleting an absent volume succeeds.
func (c *Client) DeleteVolume(ctx context.Context, appName, volumeID string) error {
	const op = "volumes.delete"
	if err := validateVolumePath(appName, volumeID); err != nil {
		return err
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodDelete,
		Path:   "/apps/" + appName + "/volumes/" + volumeID,
	})
	if err != nil {
		return err
	}
	if succeeded(resp.StatusCode) || resp.StatusCode == 404 {
		return nil
	}
	return apiError(op, volumeID, resp)
}

// ExtendVolume grows the volume to newSizeGB. Volumes never shrink.
func (c *Client) ExtendVolume(ctx context.Context, appName, volumeID string, newSizeGB int) error {
	const op = "volumes.extend"
	if err := validateVolumePath(appName, volumeID); err != nil {
		return err
	}
	if newSizeGB < 1 {
		return NewInvalidError("volume size must be at least 1 GB").WithOperation(op)
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodPut,
		Path:   "/apps/" + appName + "/volumes/" + volumeID + "/extend",
		Body:   map[string]int{"size_gb": newSizeGB},
	})
	if err != nil {
		return err
	}
	if !succeeded(resp.StatusCode) {
		return apiError(op, volumeID, resp)
	}
	return nil
}

func validateVolumePath(appName, volumeID string) error {
	if err := validatePathPart("app name", appName); err != nil {
		return err
	}
	return validatePathPart("volume id", volumeID)
}
