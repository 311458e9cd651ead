package fly

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// CreateMachineRequest describes a machine to create. Region is
// optional; the platform picks one when empty.
type CreateMachineRequest struct {
	Name   string        `json:"name" validate:"required"`
	Config MachineConfig `json:"config" validate:"required"`
	Region string        `json:"region,omitempty"`

	// SkipLaunch leaves the machine stopped after creation instead of
	// starting it immediately.
	SkipLaunch bool `json:"skip_launch,omitempty"`
}

// ListMachines returns all machines of the app.
func (c *Client) ListMachines(ctx context.Context, appName string) ([]Machine, error) {
	const op = "machines.list"
	if err := validatePathPart("app name", appName); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodGet,
		Path:   "/apps/" + appName + "/machines",
	})
	if err != nil {
		return nil, err
	}
	if !succeeded(resp.StatusCode) {
		return nil, apiError(op, appName, resp)
	}
	var machines []Machine
	if err := decode(op, resp.Body, &machines); err != nil {
		return nil, err
	}
	return machines, nil
}

// GetMachine fetches one machine. A missing machine returns (nil, nil).
func (c *Client) GetMachine(ctx context.Context, appName, machineID string) (*Machine, error) {
	const op = "machines.get"
	if err := validateMachinePath(appName, machineID); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodGet,
		Path:   "/apps/" + appName + "/machines/" + machineID,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		return nil, nil
	}
	if !succeeded(resp.StatusCode) {
		return nil, apiError(op, machineID, resp)
	}
	var machine Machine
	if err := decode(op, resp.Body, &machine); err != nil {
		return nil, err
	}
	return &machine, nil
}

// CreateMachine submits a machine for creation and returns the
// assigned id. The machine converges asynchronously; callers that need
// a running machine wait on its state separately.
//
// A 409 caused by a name collision is recovered by parsing the
// existing machine id out of the error body, making create safe to
// resubmit.
func (c *Client) CreateMachine(ctx context.Context, appName string, req CreateMachineRequest) (string, error) {
	const op = "machines.create"
	if err := validatePathPart("app name", appName); err != nil {
		return "", err
	}
	if req.Name == "" {
		return "", NewInvalidError("machine name must not be empty").WithOperation(op)
	}
	if req.Config.Image == "" {
		return "", NewInvalidError("machine image must not be empty").WithOperation(op)
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/apps/" + appName + "/machines",
		Body:   req,
	})
	if err != nil {
		return "", err
	}
	if succeeded(resp.StatusCode) {
		var body struct {
			ID string `json:"id"`
		}
		if err := decode(op, resp.Body, &body); err != nil {
			return "", err
		}
		return body.ID, nil
	}
	if resp.StatusCode == 409 {
		if id := machineIDFromConflict(remoteMessage(resp.Body)); id != "" {
			return id, nil
		}
	}
	return "", apiError(op, req.Name, resp)
}

// UpdateMachine replaces the machine's desired configuration.
func (c *Client) UpdateMachine(ctx context.Context, appName, machineID string, config MachineConfig, region string) error {
	const op = "machines.update"
	if err := validateMachinePath(appName, machineID); err != nil {
		return err
	}
	body := map[string]any{"config": config}
	if region != "" {
		body["region"] = region
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/apps/" + appName + "/machines/" + machineID,
		Body:   body,
	})
	if err != nil {
		return err
	}
	if !succeeded(resp.StatusCode) {
		return apiError(op, machineID, resp)
	}
	return nil
}

// StartMachine asks the platform to start a stopped machine.
func (c *Client) StartMachine(ctx context.Context, appName, machineID string) error {
	return c.machineAction(ctx, "machines.start", appName, machineID, "start")
}

// StopMachine asks the platform to stop a running machine.
func (c *Client) StopMachine(ctx context.Context, appName, machineID string) error {
	return c.machineAction(ctx, "machines.stop", appName, machineID, "stop")
}

// RestartMachine asks the platform to restart the machine.
func (c *Client) RestartMachine(ctx context.Context, appName, machineID string) error {
	return c.machineAction(ctx, "machines.restart", appName, machineID, "restart")
}

// SuspendMachine snapshots and pauses the machine.
func (c *Client) SuspendMachine(ctx context.Context, appName, machineID string) error {
	return c.machineAction(ctx, "machines.suspend", appName, machineID, "suspend")
}

// DeleteMachine destroys the machine. Force destroys it even while
// running. Deleting an absent machine succeeds.
func (c *Client) DeleteMachine(ctx context.Context, appName, machineID string, force bool) error {
	const op = "machines.delete"
	if err := validateMachinePath(appName, machineID); err != nil {
		return err
	}
	req := &Request{
		Method: http.MethodDelete,
		Path:   "/apps/" + appName + "/machines/" + machineID,
	}
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
	return apiError(op, machineID, resp)
}

// ExecMachine runs a command inside the machine and returns its output.
func (c *Client) ExecMachine(ctx context.Context, appName, machineID string, command []string) (*ExecResult, error) {
	const op = "machines.exec"
	if err := validateMachinePath(appName, machineID); err != nil {
		return nil, err
	}
	if len(command) == 0 {
		return nil, NewInvalidError("command must not be empty").WithOperation(op)
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/apps/" + appName + "/machines/" + machineID + "/exec",
		Body:   map[string][]string{"command": command},
	})
	if err != nil {
		return nil, err
	}
	if !succeeded(resp.StatusCode) {
		return nil, apiError(op, machineID, resp)
	}
	var result ExecResult
	if err := decode(op, resp.Body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) machineAction(ctx context.Context, op, appName, machineID, action string) error {
	if err := validateMachinePath(appName, machineID); err != nil {
		return err
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/apps/" + appName + "/machines/" + machineID + "/" + action,
	})
	if err != nil {
		return err
	}
	if !succeeded(resp.StatusCode) {
		return apiError(op, machineID, resp)
	}
	return nil
}

func validateMachinePath(appName, machineID string) error {
	if err := validatePathPart("app name", appName); err != nil {
		return err
	}
	return validatePathPart("machine id", machineID)
}

// machineIDFromConflict extracts the existing machine id from the 409
// error body the platform returns on a unique-name violation.
func machineIDFromConflict(message string) string {
	const prefix = "already_exists: unique machine name violation, machine ID "
	const suffix = " already exists with name "
	if !strings.HasPrefix(message, prefix) {
		return ""
	}
	rest := message[len(prefix):]
	end := strings.Index(rest, suffix)
	if end < 0 {
		return ""
	}
	return rest[:end]
}
