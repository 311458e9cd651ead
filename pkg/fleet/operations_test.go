package fleet

import (
	"context"
	"testing"

	"github.com/openfleet/openfleet/pkg/fly"
)

func TestGetAppAbsentIsNotFound(t *testing.T) {
	client := &fakeClient{
		getApp: func(ctx context.Context, appName string) (*fly.App, error) {
			return nil, nil
		},
	}
	ops := newTestOperations(client)

	_, err := ops.GetApp(context.Background(), "missing-app")
	if !fly.IsNotFound(err) {
		t.Fatalf("absent app must surface not_found, got %v", err)
	}
}

func TestPutAppRetriesTransient(t *testing.T) {
	attempts := 0
	client := &fakeClient{
		putApp: func(ctx context.Context, orgSlug, appName string) (*fly.App, error) {
			attempts++
			if attempts < 3 {
				return nil, fly.NewTransientError("502", nil)
			}
			return &fly.App{ID: "app-1", Name: appName}, nil
		},
	}
	ops := newTestOperations(client)

	app, err := ops.PutApp(context.Background(), "my-org", "my-app")
	if err != nil {
		t.Fatalf("PutApp: %v", err)
	}
	if app.Name != "my-app" {
		t.Errorf("app = %+v", app)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestPutAppConflictNotRetried(t *testing.T) {
	attempts := 0
	client := &fakeClient{
		putApp: func(ctx context.Context, orgSlug, appName string) (*fly.App, error) {
			attempts++
			return nil, fly.NewConflictError("name owned by another org", nil)
		},
	}
	ops := newTestOperations(client)

	_, err := ops.PutApp(context.Background(), "my-org", "my-app")
	if !fly.IsConflict(err) {
		t.Fatalf("got %v, want conflict", err)
	}
	if attempts != 1 {
		t.Errorf("conflict retried %d times", attempts)
	}
}

func TestCreateVolumeValidatesRequest(t *testing.T) {
	createCalled := false
	client := &fakeClient{
		createVolume: func(ctx context.Context, appName string, req fly.VolumeCreateRequest) (*fly.Volume, error) {
			createCalled = true
			return &fly.Volume{ID: "vol-1"}, nil
		},
	}
	ops := newTestOperations(client)

	_, err := ops.CreateVolume(context.Background(), "my-app", fly.VolumeCreateRequest{
		Name: "data",
		// missing region and size
	})
	if !fly.IsInvalid(err) {
		t.Fatalf("incomplete volume request must be invalid, got %v", err)
	}
	if createCalled {
		t.Error("invalid request must not reach the client")
	}

	volume, err := ops.CreateVolume(context.Background(), "my-app", fly.VolumeCreateRequest{
		Name:   "data",
		Region: "fra",
		SizeGB: 10,
	})
	if err != nil {
		t.Fatalf("CreateVolume: %v", err)
	}
	if volume.ID != "vol-1" {
		t.Errorf("volume = %+v", volume)
	}
}

func TestGetVolumeAbsentIsNotFound(t *testing.T) {
	ops := newTestOperations(&fakeClient{})
	_, err := ops.GetVolume(context.Background(), "my-app", "vol-1")
	if !fly.IsNotFound(err) {
		t.Fatalf("absent volume must surface not_found, got %v", err)
	}
}

func TestAllocateIPValidatesType(t *testing.T) {
	allocateCalled := false
	client := &fakeClient{
		allocateIP: func(ctx context.Context, appName string, req fly.IPRequest) (*fly.IPAddress, error) {
			allocateCalled = true
			return &fly.IPAddress{Address: "1.2.3.4", Type: req.Type}, nil
		},
	}
	ops := newTestOperations(client)

	_, err := ops.AllocateIP(context.Background(), "my-app", fly.IPRequest{Type: "bogus"})
	if !fly.IsInvalid(err) {
		t.Fatalf("bogus ip type must be invalid, got %v", err)
	}
	if allocateCalled {
		t.Error("invalid request must not reach the client")
	}

	address, err := ops.AllocateIP(context.Background(), "my-app", fly.IPRequest{Type: fly.IPTypeSharedV4})
	if err != nil {
		t.Fatalf("AllocateIP: %v", err)
	}
	if address.Type != fly.IPTypeSharedV4 {
		t.Errorf("address = %+v", address)
	}
}

func TestErrorClassLabels(t *testing.T) {
	tests := []struct {
		err  error
		want fly.ErrorClass
	}{
		{fly.NewNotFoundError("x"), fly.ErrorClassNotFound},
		{fly.NewConflictError("x", nil), fly.ErrorClassConflict},
		{fly.NewTransientError("x", nil), fly.ErrorClassTransient},
		{fly.NewTimeoutError("x", ""), fly.ErrorClassTimeout},
		{fly.NewInvalidError("x"), fly.ErrorClassInvalid},
		{fly.NewUnavailableError("x", nil), fly.ErrorClassUnavailable},
	}
	for _, tt := range tests {
		if got := errorClass(tt.err); got != tt.want {
			t.Errorf("errorClass(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
