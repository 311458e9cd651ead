package fleet

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfleet/openfleet/pkg/fly"
	"github.com/openfleet/openfleet/pkg/telemetry"
)

// Client is the resource-client surface the façade composes. It is
// satisfied by *fly.Client and by test doubles.
type Client interface {
	ListApps(ctx context.Context, orgSlug string) ([]fly.App, error)
	GetApp(ctx context.Context, appName string) (*fly.App, error)
	PutApp(ctx context.Context, orgSlug, appName string) (*fly.App, error)
	DeleteApp(ctx context.Context, appName string, force bool) error

	ListMachines(ctx context.Context, appName string) ([]fly.Machine, error)
	GetMachine(ctx context.Context, appName, machineID string) (*fly.Machine, error)
	CreateMachine(ctx context.Context, appName string, req fly.CreateMachineRequest) (string, error)
	UpdateMachine(ctx context.Context, appName, machineID string, config fly.MachineConfig, region string) error
	StartMachine(ctx context.Context, appName, machineID string) error
	StopMachine(ctx context.Context, appName, machineID string) error
	RestartMachine(ctx context.Context, appName, machineID string) error
	SuspendMachine(ctx context.Context, appName, machineID string) error
	DeleteMachine(ctx context.Context, appName, machineID string, force bool) error
	ExecMachine(ctx context.Context, appName, machineID string, command []string) (*fly.ExecResult, error)

	ListVolumes(ctx context.Context, appName string) ([]fly.Volume, error)
	GetVolume(ctx context.Context, appName, volumeID string) (*fly.Volume, error)
	CreateVolume(ctx context.Context, appName string, req fly.VolumeCreateRequest) (*fly.Volume, error)
	DeleteVolume(ctx context.Context, appName, volumeID string) error
	ExtendVolume(ctx context.Context, appName, volumeID string, newSizeGB int) error

	ListIPs(ctx context.Context, appName string) ([]fly.IPAddress, error)
	AllocateIP(ctx context.Context, appName string, req fly.IPRequest) (*fly.IPAddress, error)
	ReleaseIP(ctx context.Context, appName, address string) error

	ListSecrets(ctx context.Context, appName string) ([]fly.Secret, error)
	SetSecret(ctx context.Context, appName, name, value string) (*fly.Secret, error)
	DeleteSecret(ctx context.Context, appName, name string) error
}

// Operations is the externally invocable surface: one call per intent.
// Each call validates its parameters, delegates to the resource
// client with bounded retry, composes convergence waits for the
// asynchronous machine lifecycle, and surfaces classified errors.
// Operations holds no state between calls.
type Operations struct {
	client      Client
	logger      zerolog.Logger
	metrics     *telemetry.Metrics
	tracer      *telemetry.Tracer
	validate    *validator.Validate
	retryPolicy RetryPolicy
	waitPolicy  WaitPolicy
}

// Option configures Operations.
type Option func(*Operations)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Operations) { o.logger = log }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Operations) { o.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t *telemetry.Tracer) Option {
	return func(o *Operations) { o.tracer = t }
}

// WithRetryPolicy overrides the transient-retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Operations) { o.retryPolicy = p }
}

// WithWaitPolicy overrides the convergence wait policy.
func WithWaitPolicy(p WaitPolicy) Option {
	return func(o *Operations) { o.waitPolicy = p }
}

// NewOperations creates the operation façade on top of a resource
// client.
func NewOperations(client Client, opts ...Option) *Operations {
	o := &Operations{
		client:      client,
		logger:      zerolog.Nop(),
		metrics:     telemetry.NewMetrics(telemetry.MetricsConfig{}),
		validate:    validator.New(),
		retryPolicy: DefaultRetryPolicy,
		waitPolicy:  DefaultWaitPolicy,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// retry wraps retryWith with this façade's policy and metrics.
func (o *Operations) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return retryWith(ctx, o.retryPolicy, op, func() { o.metrics.ObserveRetry(op) }, fn)
}

// instrument traces and times one operation. The returned finish
// function records the outcome.
func (o *Operations) instrument(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	start := time.Now()
	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.StartSpan(ctx, op, attrs...)
	}
	return ctx, func(err error) {
		status := "success"
		if err != nil {
			status = string(errorClass(err))
		}
		o.metrics.ObserveAPICall(op, status, time.Since(start))
		if span != nil {
			telemetry.EndSpan(span, err)
		}
	}
}

// errorClass extracts the classification for metrics labels.
func errorClass(err error) fly.ErrorClass {
	switch {
	case fly.IsNotFound(err):
		return fly.ErrorClassNotFound
	case fly.IsConflict(err):
		return fly.ErrorClassConflict
	case fly.IsTransient(err):
		return fly.ErrorClassTransient
	case fly.IsTimeout(err):
		return fly.ErrorClassTimeout
	case fly.IsInvalid(err):
		return fly.ErrorClassInvalid
	case fly.IsUnavailable(err):
		return fly.ErrorClassUnavailable
	default:
		return "error"
	}
}
