package fly

import (
	"context"
	"net/http"
	"strings"
)

// ipDetail is the wire representation of one allocated address.
type ipDetail struct {
	IP     string `json:"ip"`
	Region string `json:"region,omitempty"`
	Shared *bool  `json:"shared,omitempty"`
}

// ListIPs returns all addresses allocated to the app, classified back
// into allocation variants. The API reports "global" for addresses
// without a region pin; that is normalised to an empty region.
func (c *Client) ListIPs(ctx context.Context, appName string) ([]IPAddress, error) {
	const op = "ips.list"
	if err := validatePathPart("app name", appName); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodGet,
		Path:   "/apps/" + appName + "/ip_assignments",
	})
	if err != nil {
		return nil, err
	}
	if !succeeded(resp.StatusCode) {
		return nil, apiError(op, appName, resp)
	}
	var body struct {
		IPs []ipDetail `json:"ips"`
	}
	if err := decode(op, resp.Body, &body); err != nil {
		return nil, err
	}
	addresses := make([]IPAddress, 0, len(body.IPs))
	for _, detail := range body.IPs {
		addresses = append(addresses, classifyIP(detail))
	}
	return addresses, nil
}

// AllocateIP allocates an address for the app and returns it.
func (c *Client) AllocateIP(ctx context.Context, appName string, req IPRequest) (*IPAddress, error) {
	const op = "ips.allocate"
	if err := validatePathPart("app name", appName); err != nil {
		return nil, err
	}
	switch req.Type {
	case IPTypeV4, IPTypeSharedV4, IPTypeV6, IPTypePrivateV6:
	default:
		return nil, NewInvalidError("unknown ip type " + req.Type).WithOperation(op)
	}
	body := map[string]string{"type": req.Type}
	if req.Region != "" {
		body["region"] = req.Region
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/apps/" + appName + "/ip_assignments",
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	if !succeeded(resp.StatusCode) {
		return nil, apiError(op, appName, resp)
	}
	var allocated struct {
		IP string `json:"ip"`
	}
	if err := decode(op, resp.Body, &allocated); err != nil {
		return nil, err
	}
	return &IPAddress{Address: allocated.IP, Type: req.Type, Region: req.Region}, nil
}

// ReleaseIP releases the address. Releasing an address that is already
// gone succeeds, so a release can be resubmitted safely.
func (c *Client) ReleaseIP(ctx context.Context, appName, address string) error {
	const op = "ips.release"
	if err := validatePathPart("app name", appName); err != nil {
		return err
	}
	if err := validatePathPart("ip address", address); err != nil {
		return err
	}
	resp, err := c.do(ctx, op, &Request{
		Method: http.MethodDelete,
		Path:   "/apps/" + appName + "/ip_assignments/" + address,
	})
	if err != nil {
		return err
	}
	if succeeded(resp.StatusCode) || resp.StatusCode == 404 {
		return nil
	}
	return apiError(op, address, resp)
}

// classifyIP derives the allocation variant from the address shape:
// private v6 addresses live in fdaa::/16, anything else with a colon
// is public v6, and v4 addresses are shared when flagged so.
func classifyIP(detail ipDetail) IPAddress {
	region := detail.Region
	if strings.EqualFold(region, "global") {
		region = ""
	}
	addr := IPAddress{Address: detail.IP, Region: region}
	switch {
	case strings.HasPrefix(detail.IP, "fdaa"):
		addr.Type = IPTypePrivateV6
		addr.Region = ""
	case strings.Contains(detail.IP, ":"):
		addr.Type = IPTypeV6
	case detail.Shared != nil && *detail.Shared:
		addr.Type = IPTypeSharedV4
	default:
		addr.Type = IPTypeV4
	}
	return addr
}
