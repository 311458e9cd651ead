package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openfleet/openfleet/pkg/fly"
	"github.com/openfleet/openfleet/pkg/telemetry"
)

type secretCall struct {
	action string
	name   string
}

// recordingSecretClient tracks every secret mutation in order.
type recordingSecretClient struct {
	fakeClient
	remote []fly.Secret
	calls  []secretCall
	values map[string]string

	failSet    map[string]error
	failDelete map[string]error
}

func newRecordingSecretClient(remote ...fly.Secret) *recordingSecretClient {
	rc := &recordingSecretClient{remote: remote, values: make(map[string]string)}
	rc.listSecrets = func(ctx context.Context, appName string) ([]fly.Secret, error) {
		return rc.remote, nil
	}
	rc.setSecret = func(ctx context.Context, appName, name, value string) (*fly.Secret, error) {
		if err := rc.failSet[name]; err != nil {
			rc.calls = append(rc.calls, secretCall{action: "set_failed", name: name})
			return nil, err
		}
		rc.calls = append(rc.calls, secretCall{action: "set", name: name})
		// value may alias a locked buffer the caller destroys after this
		// call returns; copy it while it is still mapped.
		rc.values[name] = strings.Clone(value)
		return &fly.Secret{Name: name, Digest: "digest-" + name}, nil
	}
	rc.deleteSecret = func(ctx context.Context, appName, name string) error {
		if err := rc.failDelete[name]; err != nil {
			rc.calls = append(rc.calls, secretCall{action: "remove_failed", name: name})
			return err
		}
		rc.calls = append(rc.calls, secretCall{action: "remove", name: name})
		return nil
	}
	return rc
}

func desiredSet(pairs map[string]string) *DesiredSecretSet {
	desired := NewDesiredSecretSet()
	for name, value := range pairs {
		desired.Set(name, []byte(value))
	}
	return desired
}

func TestReconcileRemovesBeforeUpserts(t *testing.T) {
	client := newRecordingSecretClient(
		fly.Secret{Name: "A", Digest: "d1"},
		fly.Secret{Name: "B", Digest: "d2"},
	)
	ops := newTestOperations(client)

	result, err := ops.Reconcile(context.Background(), "my-app", desiredSet(map[string]string{
		"A": "alpha",
		"C": "gamma",
	}))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	want := []secretCall{
		{action: "remove", name: "B"},
		{action: "set", name: "A"},
		{action: "set", name: "C"},
	}
	if len(client.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", client.calls, want)
	}
	for i := range want {
		if client.calls[i] != want[i] {
			t.Errorf("call[%d] = %v, want %v", i, client.calls[i], want[i])
		}
	}

	if !result.Ok() {
		t.Errorf("unexpected failures: %v", result.Failed)
	}
	if len(result.Removed) != 1 || result.Removed[0] != "B" {
		t.Errorf("Removed = %v, want [B]", result.Removed)
	}
	if len(result.Set) != 2 {
		t.Errorf("Set = %v, want [A C]", result.Set)
	}
}

func TestReconcileEmptyDesiredRemovesEverything(t *testing.T) {
	client := newRecordingSecretClient(
		fly.Secret{Name: "A"},
		fly.Secret{Name: "B"},
	)
	ops := newTestOperations(client)

	result, err := ops.Reconcile(context.Background(), "my-app", NewDesiredSecretSet())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Removed) != 2 || len(result.Set) != 0 {
		t.Errorf("result = %+v, want all removed, none set", result)
	}
	for _, call := range client.calls {
		if call.action != "remove" {
			t.Errorf("unexpected call %v", call)
		}
	}
}

func TestReconcileKeyFailureDoesNotAbortOthers(t *testing.T) {
	client := newRecordingSecretClient(
		fly.Secret{Name: "DEAD"},
	)
	client.failSet = map[string]error{"B": fly.NewInvalidError("name rejected")}
	ops := newTestOperations(client)

	result, err := ops.Reconcile(context.Background(), "my-app", desiredSet(map[string]string{
		"A": "1", "B": "2", "C": "3",
	}))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Ok() {
		t.Fatal("expected a recorded failure")
	}
	if len(result.Failed) != 1 || result.Failed[0].Name != "B" || result.Failed[0].Action != SecretActionSet {
		t.Errorf("Failed = %+v", result.Failed)
	}
	if len(result.Set) != 2 {
		t.Errorf("Set = %v, want the two healthy keys", result.Set)
	}
	if len(result.Removed) != 1 {
		t.Errorf("Removed = %v, want [DEAD]", result.Removed)
	}
}

func TestReconcileRetriesTransientKeyFailures(t *testing.T) {
	client := newRecordingSecretClient()
	attempts := 0
	client.setSecret = func(ctx context.Context, appName, name, value string) (*fly.Secret, error) {
		attempts++
		if attempts == 1 {
			return nil, fly.NewTransientError("blip", nil)
		}
		return &fly.Secret{Name: name}, nil
	}
	ops := newTestOperations(client)

	result, err := ops.Reconcile(context.Background(), "my-app", desiredSet(map[string]string{"A": "1"}))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Ok() {
		t.Errorf("transient blip should have been retried away: %+v", result.Failed)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestReconcileListFailureAbortsBeforeMutating(t *testing.T) {
	client := newRecordingSecretClient()
	client.listSecrets = func(ctx context.Context, appName string) ([]fly.Secret, error) {
		return nil, fly.NewInvalidError("app name rejected")
	}
	ops := newTestOperations(client)

	_, err := ops.Reconcile(context.Background(), "my-app", desiredSet(map[string]string{"A": "1"}))
	if !fly.IsInvalid(err) {
		t.Fatalf("got %v, want the listing error", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("no mutation may happen when listing fails, saw %v", client.calls)
	}
}

func TestUpsertSecretsNeverRemoves(t *testing.T) {
	client := newRecordingSecretClient(
		fly.Secret{Name: "UNRELATED"},
	)
	listCalls := 0
	client.listSecrets = func(ctx context.Context, appName string) ([]fly.Secret, error) {
		listCalls++
		return client.remote, nil
	}
	ops := newTestOperations(client)

	result, err := ops.UpsertSecrets(context.Background(), "my-app", desiredSet(map[string]string{
		"NEW_KEY": "value",
	}))
	if err != nil {
		t.Fatalf("UpsertSecrets: %v", err)
	}
	if !result.Ok() {
		t.Fatalf("unexpected failures: %v", result.Failed)
	}
	if listCalls != 0 {
		t.Error("upsert-only path must not list remote keys")
	}
	for _, call := range client.calls {
		if call.action == "remove" {
			t.Errorf("upsert-only path removed %s", call.name)
		}
	}
	if len(result.Set) != 1 || result.Set[0] != "NEW_KEY" {
		t.Errorf("Set = %v, want [NEW_KEY]", result.Set)
	}
}

func TestReconcileTransmitsSealedValues(t *testing.T) {
	client := newRecordingSecretClient()
	ops := newTestOperations(client)

	_, err := ops.Reconcile(context.Background(), "my-app", desiredSet(map[string]string{
		"DB_URL": "postgres://u:p@host/db",
	}))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if client.values["DB_URL"] != "postgres://u:p@host/db" {
		t.Errorf("transmitted value = %q", client.values["DB_URL"])
	}
}

func TestDesiredSetDestroyedAfterReconcile(t *testing.T) {
	client := newRecordingSecretClient()
	ops := newTestOperations(client)

	desired := desiredSet(map[string]string{"A": "1"})
	if _, err := ops.Reconcile(context.Background(), "my-app", desired); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if desired.Len() != 0 {
		t.Error("desired set must be destroyed after reconciliation")
	}
}

func TestKeyFailureJSONOmitsError(t *testing.T) {
	failure := KeyFailure{
		Name:   "DB_URL",
		Action: SecretActionSet,
		Err:    fmt.Errorf("boom with sensitive context"),
	}
	data, err := json.Marshal(failure)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "sensitive") {
		t.Errorf("serialized failure leaks the error: %s", data)
	}
}

func TestDesiredSetNamesSorted(t *testing.T) {
	desired := desiredSet(map[string]string{"ZED": "1", "ALPHA": "2", "MID": "3"})
	defer desired.Destroy()

	names := desired.Names()
	want := []string{"ALPHA", "MID", "ZED"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
}

func TestReconcileEmptyValueFailsAsInvalid(t *testing.T) {
	client := newRecordingSecretClient()
	ops := newTestOperations(client)

	desired := NewDesiredSecretSet()
	desired.Set("EMPTY", []byte(""))
	desired.Set("GOOD", []byte("value"))

	result, err := ops.Reconcile(context.Background(), "my-app", desired)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Ok() {
		t.Fatal("empty value must be recorded as a failed key")
	}
	if len(result.Failed) != 1 || result.Failed[0].Name != "EMPTY" || result.Failed[0].Action != SecretActionSet {
		t.Fatalf("Failed = %+v", result.Failed)
	}
	if !fly.IsInvalid(result.Failed[0].Err) {
		t.Errorf("Failed[0].Err = %v, want invalid", result.Failed[0].Err)
	}
	if len(result.Set) != 1 || result.Set[0] != "GOOD" {
		t.Errorf("Set = %v, want [GOOD]", result.Set)
	}
	if len(client.calls) != 1 || client.calls[0].name != "GOOD" {
		t.Errorf("calls = %v, the empty key must never reach the client", client.calls)
	}
}

func TestUpsertSecretsEmptyValueFailsAsInvalid(t *testing.T) {
	client := newRecordingSecretClient()
	ops := newTestOperations(client)

	desired := NewDesiredSecretSet()
	desired.Set("EMPTY", nil)

	result, err := ops.UpsertSecrets(context.Background(), "my-app", desired)
	if err != nil {
		t.Fatalf("UpsertSecrets: %v", err)
	}
	if result.Ok() || len(result.Failed) != 1 || !fly.IsInvalid(result.Failed[0].Err) {
		t.Fatalf("result = %+v, want one invalid failure", result)
	}
	if len(client.calls) != 0 {
		t.Errorf("empty value must never reach the client, saw %v", client.calls)
	}
}

func TestSecretOperationsAreInstrumented(t *testing.T) {
	metrics := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: true, Namespace: "test"})
	client := newRecordingSecretClient()
	ops := NewOperations(client,
		WithRetryPolicy(fastRetry), WithWaitPolicy(fastWait), WithMetrics(metrics))

	if _, err := ops.Reconcile(context.Background(), "my-app", desiredSet(map[string]string{"A": "1"})); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if _, err := ops.UpsertSecrets(context.Background(), "my-app", desiredSet(map[string]string{"B": "2"})); err != nil {
		t.Fatalf("UpsertSecrets: %v", err)
	}
	if err := ops.DeleteSecret(context.Background(), "my-app", "OLD"); err != nil {
		t.Fatalf("DeleteSecret: %v", err)
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, op := range []string{"secrets.reconcile", "secrets.upsert", "secrets.delete"} {
		if !strings.Contains(body, `operation="`+op+`"`) {
			t.Errorf("api_calls_total has no sample for %s", op)
		}
	}
}

func TestDeleteSecretIdempotentFacade(t *testing.T) {
	client := newRecordingSecretClient()
	ops := newTestOperations(client)

	if err := ops.DeleteSecret(context.Background(), "my-app", "OLD"); err != nil {
		t.Fatalf("DeleteSecret: %v", err)
	}
	if len(client.calls) != 1 || client.calls[0].action != "remove" {
		t.Errorf("calls = %v", client.calls)
	}
}
