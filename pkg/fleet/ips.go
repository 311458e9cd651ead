package fleet

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/openfleet/openfleet/pkg/fly"
)

// ListIPs lists the app's allocated addresses.
func (o *Operations) ListIPs(ctx context.Context, appName string) ([]fly.IPAddress, error) {
	ctx, finish := o.instrument(ctx, "ips.list", attribute.String("app", appName))
	var addresses []fly.IPAddress
	err := o.retry(ctx, "ips.list", func(ctx context.Context) error {
		var callErr error
		addresses, callErr = o.client.ListIPs(ctx, appName)
		return callErr
	})
	finish(err)
	return addresses, err
}

// AllocateIP allocates an address for the app.
func (o *Operations) AllocateIP(ctx context.Context, appName string, req fly.IPRequest) (*fly.IPAddress, error) {
	const op = "ips.allocate"
	ctx, finish := o.instrument(ctx, op,
		attribute.String("app", appName), attribute.String("type", req.Type))
	if err := o.validate.Struct(req); err != nil {
		err = fly.NewInvalidError("invalid ip request: " + err.Error()).WithOperation(op)
		finish(err)
		return nil, err
	}
	var address *fly.IPAddress
	err := o.retry(ctx, op, func(ctx context.Context) error {
		var callErr error
		address, callErr = o.client.AllocateIP(ctx, appName, req)
		return callErr
	})
	finish(err)
	if err == nil {
		o.logger.Info().
			Str("app", appName).
			Str("ip", address.Address).
			Str("type", address.Type).
			Msg("ip allocated")
	}
	return address, err
}

// ReleaseIP releases the address. Releasing an absent address
// succeeds, so a release is safe to resubmit.
func (o *Operations) ReleaseIP(ctx context.Context, appName, address string) error {
	ctx, finish := o.instrument(ctx, "ips.release",
		attribute.String("app", appName), attribute.String("ip", address))
	err := o.retry(ctx, "ips.release", func(ctx context.Context) error {
		return o.client.ReleaseIP(ctx, appName, address)
	})
	finish(err)
	if err == nil {
		o.logger.Info().Str("app", appName).Str("ip", address).Msg("ip released")
	}
	return err
}

// ListSecrets lists the app's secret keys. Only names and value
// digests exist remotely; values are write-only.
func (o *Operations) ListSecrets(ctx context.Context, appName string) ([]fly.Secret, error) {
	ctx, finish := o.instrument(ctx, "secrets.list", attribute.String("app", appName))
	var secrets []fly.Secret
	err := o.retry(ctx, "secrets.list", func(ctx context.Context) error {
		var callErr error
		secrets, callErr = o.client.ListSecrets(ctx, appName)
		return callErr
	})
	finish(err)
	return secrets, err
}
