package fleet

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/openfleet/openfleet/pkg/fly"
)

// ListVolumes lists the app's volumes.
func (o *Operations) ListVolumes(ctx context.Context, appName string) ([]fly.Volume, error) {
	ctx, finish := o.instrument(ctx, "volumes.list", attribute.String("app", appName))
	var volumes []fly.Volume
	err := o.retry(ctx, "volumes.list", func(ctx context.Context) error {
		var callErr error
		volumes, callErr = o.client.ListVolumes(ctx, appName)
		return callErr
	})
	finish(err)
	return volumes, err
}

// GetVolume fetches one volume; a missing volume is a not-found error.
func (o *Operations) GetVolume(ctx context.Context, appName, volumeID string) (*fly.Volume, error) {
	ctx, finish := o.instrument(ctx, "volumes.get",
		attribute.String("app", appName), attribute.String("volume", volumeID))
	var volume *fly.Volume
	err := o.retry(ctx, "volumes.get", func(ctx context.Context) error {
		var callErr error
		volume, callErr = o.client.GetVolume(ctx, appName, volumeID)
		return callErr
	})
	if err == nil && volume == nil {
		err = fly.NewNotFoundError("volume " + volumeID + " does not exist").WithOperation("volumes.get")
	}
	finish(err)
	return volume, err
}

// CreateVolume creates a volume. The volume is mountable only by
// machines in its region.
func (o *Operations) CreateVolume(ctx context.Context, appName string, req fly.VolumeCreateRequest) (*fly.Volume, error) {
	const op = "volumes.create"
	ctx, finish := o.instrument(ctx, op,
		attribute.String("app", appName),
		attribute.String("volume_name", req.Name),
		attribute.String("region", req.Region))
	if err := o.validate.Struct(req); err != nil {
		err = fly.NewInvalidError("invalid volume request: " + err.Error()).WithOperation(op)
		finish(err)
		return nil, err
	}
	var volume *fly.Volume
	err := o.retry(ctx, op, func(ctx context.Context) error {
		var callErr error
		volume, callErr = o.client.CreateVolume(ctx, appName, req)
		return callErr
	})
	finish(err)
	if err == nil {
		o.logger.Info().
			Str("app", appName).
			Str("volume", volume.ID).
			Int("size_gb", volume.SizeGB).
			Msg("volume created")
	}
	return volume, err
}

// DeleteVolume deletes the volume. An attached volume surfaces the
// platform's conflict; an absent volume succeeds.
func (o *Operations) DeleteVolume(ctx context.Context, appName, volumeID string) error {
	ctx, finish := o.instrument(ctx, "volumes.delete",
		attribute.String("app", appName), attribute.String("volume", volumeID))
	err := o.retry(ctx, "volumes.delete", func(ctx context.Context) error {
		return o.client.DeleteVolume(ctx, appName, volumeID)
	})
	finish(err)
	if err == nil {
		o.logger.Info().Str("app", appName).Str("volume", volumeID).Msg("volume deleted")
	}
	return err
}

// ExtendVolume grows the volume. Volumes never shrink.
func (o *Operations) ExtendVolume(ctx context.Context, appName, volumeID string, newSizeGB int) error {
	ctx, finish := o.instrument(ctx, "volumes.extend",
		attribute.String("app", appName),
		attribute.String("volume", volumeID),
		attribute.Int("size_gb", newSizeGB))
	err := o.retry(ctx, "volumes.extend", func(ctx context.Context) error {
		return o.client.ExtendVolume(ctx, appName, volumeID, newSizeGB)
	})
	finish(err)
	return err
}
