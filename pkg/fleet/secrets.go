package fleet

import (
	"context"
	"sort"

	"github.com/awnumar/memguard"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openfleet/openfleet/pkg/fly"
)

// DesiredSecretSet is the transient target state for one secret
// reconciliation. Values are sealed into memguard enclaves the moment
// they enter the set: plaintext exists only inside the single client
// call that transmits a value, and the locked buffer backing that call
// is destroyed before the call returns. The set itself lives for one
// reconciliation and is destroyed on every exit path.
type DesiredSecretSet struct {
	values map[string]*memguard.Enclave
}

// NewDesiredSecretSet creates an empty set.
func NewDesiredSecretSet() *DesiredSecretSet {
	return &DesiredSecretSet{values: make(map[string]*memguard.Enclave)}
}

// Set seals value under name. The value byte slice is wiped by
// memguard as part of sealing; callers must not reuse it. An empty
// value cannot be sealed; applying the key fails as invalid.
func (s *DesiredSecretSet) Set(name string, value []byte) {
	// NewEnclave returns nil for zero-length input.
	s.values[name] = memguard.NewEnclave(value)
}

// Names returns the desired key names in sorted order.
func (s *DesiredSecretSet) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of desired keys.
func (s *DesiredSecretSet) Len() int {
	return len(s.values)
}

// contains reports whether name is part of the desired set.
func (s *DesiredSecretSet) contains(name string) bool {
	_, ok := s.values[name]
	return ok
}

// open decrypts the value for name into a locked buffer. The caller
// must Destroy the buffer.
func (s *DesiredSecretSet) open(name string) (*memguard.LockedBuffer, error) {
	enclave, ok := s.values[name]
	if !ok {
		return nil, fly.NewInvalidError("no value for secret " + name)
	}
	if enclave == nil {
		return nil, fly.NewInvalidError("empty value for secret " + name)
	}
	buf, err := enclave.Open()
	if err != nil {
		return nil, fly.NewInvalidError("cannot open sealed secret value: " + err.Error())
	}
	return buf, nil
}

// Destroy drops all sealed values. Safe to call more than once.
func (s *DesiredSecretSet) Destroy() {
	s.values = make(map[string]*memguard.Enclave)
}

// Secret key actions reported in reconciliation outcomes.
const (
	SecretActionSet    = "set"
	SecretActionRemove = "remove"
)

// KeyFailure records one secret key operation that did not succeed.
// It carries the key name and the classified error, never the value.
type KeyFailure struct {
	Name   string `json:"name"`
	Action string `json:"action"`
	Err    error  `json:"-"`
}

// ReconcileResult is the aggregate outcome of one reconciliation. A
// failed key never aborts the remaining keys; callers inspect Failed
// to decide whether to resubmit.
type ReconcileResult struct {
	Removed []string     `json:"removed"`
	Set     []string     `json:"set"`
	Failed  []KeyFailure `json:"failed,omitempty"`
}

// Ok reports whether every key operation succeeded.
func (r *ReconcileResult) Ok() bool {
	return len(r.Failed) == 0
}

// Reconcile makes the app's remote secret keys equal exactly the
// desired set: keys present remotely but absent from the set are
// removed, then every desired key is upserted. Removals run first so a
// renamed secret is never visible under both names. Each remote call
// is retried on transient failure; a key that still fails is recorded
// and the remaining keys proceed.
//
// The desired set is destroyed before Reconcile returns, on success
// and on every failure path.
func (o *Operations) Reconcile(ctx context.Context, appName string, desired *DesiredSecretSet) (*ReconcileResult, error) {
	defer desired.Destroy()

	ctx, finish := o.instrument(ctx, "secrets.reconcile", attribute.String("app", appName))
	log := o.logger.With().Str("component", "secrets").Str("app", appName).Logger()

	var remote []fly.Secret
	err := o.retry(ctx, "secrets.list", func(ctx context.Context) error {
		var listErr error
		remote, listErr = o.client.ListSecrets(ctx, appName)
		return listErr
	})
	if err != nil {
		finish(err)
		return nil, err
	}

	result := &ReconcileResult{}

	var removals []string
	for _, secret := range remote {
		if !desired.contains(secret.Name) {
			removals = append(removals, secret.Name)
		}
	}
	sort.Strings(removals)

	for _, name := range removals {
		err := o.retry(ctx, "secrets.delete", func(ctx context.Context) error {
			return o.client.DeleteSecret(ctx, appName, name)
		})
		o.metrics.ObserveSecretKey(SecretActionRemove, err)
		if err != nil {
			log.Warn().Str("key", name).Err(err).Msg("secret removal failed")
			result.Failed = append(result.Failed, KeyFailure{Name: name, Action: SecretActionRemove, Err: err})
			continue
		}
		log.Info().Str("key", name).Msg("secret removed")
		result.Removed = append(result.Removed, name)
	}

	o.upsertAll(ctx, log, appName, desired, result)
	finish(nil)
	return result, nil
}

// UpsertSecrets applies the desired set without removing anything.
// This is the path behind the secret intake endpoint, which only ever
// learns about one key per request and must not touch the others.
func (o *Operations) UpsertSecrets(ctx context.Context, appName string, desired *DesiredSecretSet) (*ReconcileResult, error) {
	defer desired.Destroy()

	ctx, finish := o.instrument(ctx, "secrets.upsert", attribute.String("app", appName))
	if err := ctx.Err(); err != nil {
		finish(err)
		return nil, err
	}
	log := o.logger.With().Str("component", "secrets").Str("app", appName).Logger()
	result := &ReconcileResult{}
	o.upsertAll(ctx, log, appName, desired, result)
	finish(nil)
	return result, nil
}

// DeleteSecret removes one key. Removing a key the app does not hold
// succeeds.
func (o *Operations) DeleteSecret(ctx context.Context, appName, name string) error {
	ctx, finish := o.instrument(ctx, "secrets.delete",
		attribute.String("app", appName), attribute.String("key", name))
	err := o.retry(ctx, "secrets.delete", func(ctx context.Context) error {
		return o.client.DeleteSecret(ctx, appName, name)
	})
	o.metrics.ObserveSecretKey(SecretActionRemove, err)
	finish(err)
	if err == nil {
		o.logger.Info().Str("app", appName).Str("key", name).Msg("secret removed")
	}
	return err
}

// upsertAll sets every desired key sequentially, accumulating per-key
// outcomes. The locked buffer holding each plaintext is destroyed as
// soon as the client call returns.
func (o *Operations) upsertAll(ctx context.Context, log zerolog.Logger, appName string, desired *DesiredSecretSet, result *ReconcileResult) {
	for _, name := range desired.Names() {
		err := o.retry(ctx, "secrets.set", func(ctx context.Context) error {
			buf, openErr := desired.open(name)
			if openErr != nil {
				return openErr
			}
			defer buf.Destroy()
			_, setErr := o.client.SetSecret(ctx, appName, name, buf.String())
			return setErr
		})
		o.metrics.ObserveSecretKey(SecretActionSet, err)
		if err != nil {
			log.Warn().Str("key", name).Err(err).Msg("secret upsert failed")
			result.Failed = append(result.Failed, KeyFailure{Name: name, Action: SecretActionSet, Err: err})
			continue
		}
		log.Info().Str("key", name).Msg("secret set")
		result.Set = append(result.Set, name)
	}
}
