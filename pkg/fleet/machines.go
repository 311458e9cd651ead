package fleet

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/openfleet/openfleet/pkg/fly"
)

// ListMachines lists the app's machines.
func (o *Operations) ListMachines(ctx context.Context, appName string) ([]fly.Machine, error) {
	ctx, finish := o.instrument(ctx, "machines.list", attribute.String("app", appName))
	var machines []fly.Machine
	err := o.retry(ctx, "machines.list", func(ctx context.Context) error {
		var callErr error
		machines, callErr = o.client.ListMachines(ctx, appName)
		return callErr
	})
	finish(err)
	return machines, err
}

// GetMachine fetches one machine; a missing machine is a not-found
// error.
func (o *Operations) GetMachine(ctx context.Context, appName, machineID string) (*fly.Machine, error) {
	ctx, finish := o.instrument(ctx, "machines.get",
		attribute.String("app", appName), attribute.String("machine", machineID))
	var machine *fly.Machine
	err := o.retry(ctx, "machines.get", func(ctx context.Context) error {
		var callErr error
		machine, callErr = o.client.GetMachine(ctx, appName, machineID)
		return callErr
	})
	if err == nil && machine == nil {
		err = fly.NewNotFoundError("machine " + machineID + " does not exist").WithOperation("machines.get")
	}
	finish(err)
	return machine, err
}

// CreateMachine creates a machine and waits until it converges:
// started for a normal create, stopped (or still created, which the
// platform reports for a machine that was never launched) when
// SkipLaunch is set. The call returns only once the machine is usable,
// or a timeout carrying the last observed state.
func (o *Operations) CreateMachine(ctx context.Context, appName string, req fly.CreateMachineRequest) (*fly.Machine, error) {
	const op = "machines.create"
	ctx, finish := o.instrument(ctx, op,
		attribute.String("app", appName), attribute.String("machine_name", req.Name))

	machine, err := o.createAndWait(ctx, appName, req)
	finish(err)
	if err == nil {
		o.logger.Info().
			Str("app", appName).
			Str("machine", machine.ID).
			Str("state", machine.State).
			Msg("machine created")
	}
	return machine, err
}

func (o *Operations) createAndWait(ctx context.Context, appName string, req fly.CreateMachineRequest) (*fly.Machine, error) {
	const op = "machines.create"
	if err := o.validate.Struct(req); err != nil {
		return nil, fly.NewInvalidError("invalid machine request: " + err.Error()).WithOperation(op)
	}

	var machineID string
	err := o.retry(ctx, op, func(ctx context.Context) error {
		var callErr error
		machineID, callErr = o.client.CreateMachine(ctx, appName, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	target := fly.MachineStateStarted
	accept := func(state string) bool { return state == fly.MachineStateStarted }
	if req.SkipLaunch {
		target = fly.MachineStateStopped
		accept = func(state string) bool {
			return state == fly.MachineStateStopped || state == fly.MachineStateCreated
		}
	}

	start := time.Now()
	machine, err := waitFor(ctx, o.waitPolicy, op,
		func(ctx context.Context) (Observation[*fly.Machine], error) {
			o.metrics.ObservePoll(op)
			m, pollErr := o.client.GetMachine(ctx, appName, machineID)
			if pollErr != nil {
				return Observation[*fly.Machine]{}, pollErr
			}
			if m == nil {
				// The platform has not yet made the new machine
				// readable; treat as not converged.
				return Observation[*fly.Machine]{Value: nil, State: "pending"}, nil
			}
			return Observation[*fly.Machine]{Value: m, State: m.State}, nil
		},
		func(obs Observation[*fly.Machine]) bool {
			return obs.Value != nil && accept(obs.Value.State)
		},
	)
	o.metrics.ObserveWait(op, waitOutcome(err), time.Since(start))
	if err != nil {
		o.logger.Warn().
			Str("app", appName).
			Str("machine", machineID).
			Str("target", target).
			Err(err).
			Msg("machine did not converge")
		return nil, err
	}
	return machine, nil
}

// UpdateMachine replaces the machine's configuration.
func (o *Operations) UpdateMachine(ctx context.Context, appName, machineID string, config fly.MachineConfig, region string) error {
	const op = "machines.update"
	ctx, finish := o.instrument(ctx, op,
		attribute.String("app", appName), attribute.String("machine", machineID))
	if err := o.validate.Struct(config); err != nil {
		err = fly.NewInvalidError("invalid machine config: " + err.Error()).WithOperation(op)
		finish(err)
		return err
	}
	err := o.retry(ctx, op, func(ctx context.Context) error {
		return o.client.UpdateMachine(ctx, appName, machineID, config, region)
	})
	finish(err)
	return err
}

// StartMachine starts a stopped machine.
func (o *Operations) StartMachine(ctx context.Context, appName, machineID string) error {
	return o.machineAction(ctx, "machines.start", appName, machineID, o.client.StartMachine)
}

// StopMachine stops a running machine.
func (o *Operations) StopMachine(ctx context.Context, appName, machineID string) error {
	return o.machineAction(ctx, "machines.stop", appName, machineID, o.client.StopMachine)
}

// RestartMachine restarts the machine.
func (o *Operations) RestartMachine(ctx context.Context, appName, machineID string) error {
	return o.machineAction(ctx, "machines.restart", appName, machineID, o.client.RestartMachine)
}

// SuspendMachine snapshots and pauses the machine.
func (o *Operations) SuspendMachine(ctx context.Context, appName, machineID string) error {
	return o.machineAction(ctx, "machines.suspend", appName, machineID, o.client.SuspendMachine)
}

// ExecMachine runs a command inside the machine.
func (o *Operations) ExecMachine(ctx context.Context, appName, machineID string, command []string) (*fly.ExecResult, error) {
	const op = "machines.exec"
	ctx, finish := o.instrument(ctx, op,
		attribute.String("app", appName), attribute.String("machine", machineID))
	var result *fly.ExecResult
	err := o.retry(ctx, op, func(ctx context.Context) error {
		var callErr error
		result, callErr = o.client.ExecMachine(ctx, appName, machineID, command)
		return callErr
	})
	finish(err)
	return result, err
}

// DeleteMachine destroys the machine. Without force the call waits
// until the platform reports the machine gone, so a successful return
// means the name can be reused immediately. With force the platform
// tears the machine down regardless of state and no wait is needed.
// Deleting an absent machine succeeds.
func (o *Operations) DeleteMachine(ctx context.Context, appName, machineID string, force bool) error {
	const op = "machines.delete"
	ctx, finish := o.instrument(ctx, op,
		attribute.String("app", appName),
		attribute.String("machine", machineID),
		attribute.Bool("force", force))

	err := o.retry(ctx, op, func(ctx context.Context) error {
		return o.client.DeleteMachine(ctx, appName, machineID, force)
	})
	if err == nil && !force {
		start := time.Now()
		_, err = waitFor(ctx, o.waitPolicy, op,
			func(ctx context.Context) (Observation[struct{}], error) {
				o.metrics.ObservePoll(op)
				m, pollErr := o.client.GetMachine(ctx, appName, machineID)
				if pollErr != nil {
					return Observation[struct{}]{}, pollErr
				}
				if m == nil {
					return Observation[struct{}]{State: "absent"}, nil
				}
				return Observation[struct{}]{State: m.State}, nil
			},
			func(obs Observation[struct{}]) bool { return obs.State == "absent" },
		)
		o.metrics.ObserveWait(op, waitOutcome(err), time.Since(start))
	}
	finish(err)
	if err == nil {
		o.logger.Info().Str("app", appName).Str("machine", machineID).Msg("machine deleted")
	}
	return err
}

func (o *Operations) machineAction(ctx context.Context, op, appName, machineID string, action func(ctx context.Context, appName, machineID string) error) error {
	ctx, finish := o.instrument(ctx, op,
		attribute.String("app", appName), attribute.String("machine", machineID))
	err := o.retry(ctx, op, func(ctx context.Context) error {
		return action(ctx, appName, machineID)
	})
	finish(err)
	return err
}

// waitOutcome labels a finished wait for metrics.
func waitOutcome(err error) string {
	switch {
	case err == nil:
		return "converged"
	case fly.IsTimeout(err):
		return "timeout"
	default:
		return "error"
	}
}
