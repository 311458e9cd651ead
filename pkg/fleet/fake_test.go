package fleet

import (
	"context"
	"time"

	"github.com/openfleet/openfleet/pkg/fly"
)

// fakeClient implements Client with per-method hooks. Methods without
// a hook return zero values.
type fakeClient struct {
	listApps      func(ctx context.Context, orgSlug string) ([]fly.App, error)
	getApp        func(ctx context.Context, appName string) (*fly.App, error)
	putApp        func(ctx context.Context, orgSlug, appName string) (*fly.App, error)
	deleteApp     func(ctx context.Context, appName string, force bool) error
	listMachines  func(ctx context.Context, appName string) ([]fly.Machine, error)
	getMachine    func(ctx context.Context, appName, machineID string) (*fly.Machine, error)
	createMachine func(ctx context.Context, appName string, req fly.CreateMachineRequest) (string, error)
	updateMachine func(ctx context.Context, appName, machineID string, config fly.MachineConfig, region string) error
	machineAction func(ctx context.Context, action, appName, machineID string) error
	deleteMachine func(ctx context.Context, appName, machineID string, force bool) error
	execMachine   func(ctx context.Context, appName, machineID string, command []string) (*fly.ExecResult, error)
	listVolumes   func(ctx context.Context, appName string) ([]fly.Volume, error)
	getVolume     func(ctx context.Context, appName, volumeID string) (*fly.Volume, error)
	createVolume  func(ctx context.Context, appName string, req fly.VolumeCreateRequest) (*fly.Volume, error)
	deleteVolume  func(ctx context.Context, appName, volumeID string) error
	extendVolume  func(ctx context.Context, appName, volumeID string, newSizeGB int) error
	listIPs       func(ctx context.Context, appName string) ([]fly.IPAddress, error)
	allocateIP    func(ctx context.Context, appName string, req fly.IPRequest) (*fly.IPAddress, error)
	releaseIP     func(ctx context.Context, appName, address string) error
	listSecrets   func(ctx context.Context, appName string) ([]fly.Secret, error)
	setSecret     func(ctx context.Context, appName, name, value string) (*fly.Secret, error)
	deleteSecret  func(ctx context.Context, appName, name string) error
}

func (f *fakeClient) ListApps(ctx context.Context, orgSlug string) ([]fly.App, error) {
	if f.listApps == nil {
		return nil, nil
	}
	return f.listApps(ctx, orgSlug)
}

func (f *fakeClient) GetApp(ctx context.Context, appName string) (*fly.App, error) {
	if f.getApp == nil {
		return nil, nil
	}
	return f.getApp(ctx, appName)
}

func (f *fakeClient) PutApp(ctx context.Context, orgSlug, appName string) (*fly.App, error) {
	if f.putApp == nil {
		return &fly.App{Name: appName}, nil
	}
	return f.putApp(ctx, orgSlug, appName)
}

func (f *fakeClient) DeleteApp(ctx context.Context, appName string, force bool) error {
	if f.deleteApp == nil {
		return nil
	}
	return f.deleteApp(ctx, appName, force)
}

func (f *fakeClient) ListMachines(ctx context.Context, appName string) ([]fly.Machine, error) {
	if f.listMachines == nil {
		return nil, nil
	}
	return f.listMachines(ctx, appName)
}

func (f *fakeClient) GetMachine(ctx context.Context, appName, machineID string) (*fly.Machine, error) {
	if f.getMachine == nil {
		return nil, nil
	}
	return f.getMachine(ctx, appName, machineID)
}

func (f *fakeClient) CreateMachine(ctx context.Context, appName string, req fly.CreateMachineRequest) (string, error) {
	if f.createMachine == nil {
		return "", nil
	}
	return f.createMachine(ctx, appName, req)
}

func (f *fakeClient) UpdateMachine(ctx context.Context, appName, machineID string, config fly.MachineConfig, region string) error {
	if f.updateMachine == nil {
		return nil
	}
	return f.updateMachine(ctx, appName, machineID, config, region)
}

func (f *fakeClient) StartMachine(ctx context.Context, appName, machineID string) error {
	if f.machineAction == nil {
		return nil
	}
	return f.machineAction(ctx, "start", appName, machineID)
}

func (f *fakeClient) StopMachine(ctx context.Context, appName, machineID string) error {
	if f.machineAction == nil {
		return nil
	}
	return f.machineAction(ctx, "stop", appName, machineID)
}

func (f *fakeClient) RestartMachine(ctx context.Context, appName, machineID string) error {
	if f.machineAction == nil {
		return nil
	}
	return f.machineAction(ctx, "restart", appName, machineID)
}

func (f *fakeClient) SuspendMachine(ctx context.Context, appName, machineID string) error {
	if f.machineAction == nil {
		return nil
	}
	return f.machineAction(ctx, "suspend", appName, machineID)
}

func (f *fakeClient) DeleteMachine(ctx context.Context, appName, machineID string, force bool) error {
	if f.deleteMachine == nil {
		return nil
	}
	return f.deleteMachine(ctx, appName, machineID, force)
}

func (f *fakeClient) ExecMachine(ctx context.Context, appName, machineID string, command []string) (*fly.ExecResult, error) {
	if f.execMachine == nil {
		return &fly.ExecResult{}, nil
	}
	return f.execMachine(ctx, appName, machineID, command)
}

func (f *fakeClient) ListVolumes(ctx context.Context, appName string) ([]fly.Volume, error) {
	if f.listVolumes == nil {
		return nil, nil
	}
	return f.listVolumes(ctx, appName)
}

func (f *fakeClient) GetVolume(ctx context.Context, appName, volumeID string) (*fly.Volume, error) {
	if f.getVolume == nil {
		return nil, nil
	}
	return f.getVolume(ctx, appName, volumeID)
}

func (f *fakeClient) CreateVolume(ctx context.Context, appName string, req fly.VolumeCreateRequest) (*fly.Volume, error) {
	if f.createVolume == nil {
		return &fly.Volume{Name: req.Name, Region: req.Region, SizeGB: req.SizeGB}, nil
	}
	return f.createVolume(ctx, appName, req)
}

func (f *fakeClient) DeleteVolume(ctx context.Context, appName, volumeID string) error {
	if f.deleteVolume == nil {
		return nil
	}
	return f.deleteVolume(ctx, appName, volumeID)
}

func (f *fakeClient) ExtendVolume(ctx context.Context, appName, volumeID string, newSizeGB int) error {
	if f.extendVolume == nil {
		return nil
	}
	return f.extendVolume(ctx, appName, volumeID, newSizeGB)
}

func (f *fakeClient) ListIPs(ctx context.Context, appName string) ([]fly.IPAddress, error) {
	if f.listIPs == nil {
		return nil, nil
	}
	return f.listIPs(ctx, appName)
}

func (f *fakeClient) AllocateIP(ctx context.Context, appName string, req fly.IPRequest) (*fly.IPAddress, error) {
	if f.allocateIP == nil {
		return &fly.IPAddress{Type: req.Type, Region: req.Region}, nil
	}
	return f.allocateIP(ctx, appName, req)
}

func (f *fakeClient) ReleaseIP(ctx context.Context, appName, address string) error {
	if f.releaseIP == nil {
		return nil
	}
	return f.releaseIP(ctx, appName, address)
}

func (f *fakeClient) ListSecrets(ctx context.Context, appName string) ([]fly.Secret, error) {
	if f.listSecrets == nil {
		return nil, nil
	}
	return f.listSecrets(ctx, appName)
}

func (f *fakeClient) SetSecret(ctx context.Context, appName, name, value string) (*fly.Secret, error) {
	if f.setSecret == nil {
		return &fly.Secret{Name: name}, nil
	}
	return f.setSecret(ctx, appName, name, value)
}

func (f *fakeClient) DeleteSecret(ctx context.Context, appName, name string) error {
	if f.deleteSecret == nil {
		return nil
	}
	return f.deleteSecret(ctx, appName, name)
}

// fastRetry keeps retry tests quick.
var fastRetry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

// fastWait keeps convergence tests quick.
var fastWait = WaitPolicy{
	InitialDelay: time.Millisecond,
	Multiplier:   1.5,
	MaxDelay:     5 * time.Millisecond,
	Deadline:     250 * time.Millisecond,
}

func newTestOperations(client Client) *Operations {
	return NewOperations(client, WithRetryPolicy(fastRetry), WithWaitPolicy(fastWait))
}
