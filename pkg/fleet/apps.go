package fleet

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/openfleet/openfleet/pkg/fly"
)

// ListApps lists the organization's apps.
func (o *Operations) ListApps(ctx context.Context, orgSlug string) ([]fly.App, error) {
	ctx, finish := o.instrument(ctx, "apps.list", attribute.String("org", orgSlug))
	var apps []fly.App
	err := o.retry(ctx, "apps.list", func(ctx context.Context) error {
		var callErr error
		apps, callErr = o.client.ListApps(ctx, orgSlug)
		return callErr
	})
	finish(err)
	return apps, err
}

// GetApp fetches one app; a missing app is a not-found error.
func (o *Operations) GetApp(ctx context.Context, appName string) (*fly.App, error) {
	ctx, finish := o.instrument(ctx, "apps.get", attribute.String("app", appName))
	var app *fly.App
	err := o.retry(ctx, "apps.get", func(ctx context.Context) error {
		var callErr error
		app, callErr = o.client.GetApp(ctx, appName)
		return callErr
	})
	if err == nil && app == nil {
		err = fly.NewNotFoundError("app " + appName + " does not exist").WithOperation("apps.get")
	}
	finish(err)
	return app, err
}

// PutApp creates the app if it does not exist. Safe to resubmit: an
// app already present in the same organization is returned unchanged.
func (o *Operations) PutApp(ctx context.Context, orgSlug, appName string) (*fly.App, error) {
	ctx, finish := o.instrument(ctx, "apps.put",
		attribute.String("org", orgSlug), attribute.String("app", appName))
	var app *fly.App
	err := o.retry(ctx, "apps.put", func(ctx context.Context) error {
		var callErr error
		app, callErr = o.client.PutApp(ctx, orgSlug, appName)
		return callErr
	})
	finish(err)
	if err == nil {
		o.logger.Info().Str("app", appName).Str("org", orgSlug).Msg("app ensured")
	}
	return app, err
}

// DeleteApp deletes the app. The platform cascades deletion to the
// app's machines, volumes, addresses, and secrets when force is set.
// Deleting an absent app succeeds.
func (o *Operations) DeleteApp(ctx context.Context, appName string, force bool) error {
	ctx, finish := o.instrument(ctx, "apps.delete",
		attribute.String("app", appName), attribute.Bool("force", force))
	err := o.retry(ctx, "apps.delete", func(ctx context.Context) error {
		return o.client.DeleteApp(ctx, appName, force)
	})
	finish(err)
	if err == nil {
		o.logger.Info().Str("app", appName).Bool("force", force).Msg("app deleted")
	}
	return err
}
