package auth

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// testRegistry starts a miniredis server and returns a Registry on it.
func testRegistry(t *testing.T) (*Registry, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup

	r, err := NewRegistry(client)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r, mr
}

func TestNewRegistry(t *testing.T) {
	if _, err := NewRegistry(nil); !errors.Is(err, ErrValidation) {
		t.Errorf("NewRegistry(nil) error = %v, want ErrValidation", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close() //nolint:errcheck // Test cleanup

	if _, err := NewRegistry(client, WithSessionTTL(0)); !errors.Is(err, ErrValidation) {
		t.Errorf("NewRegistry(ttl=0) error = %v, want ErrValidation", err)
	}
}

func TestRegistry_RecordWireFormat(t *testing.T) {
	r, mr := testRegistry(t)

	if err := r.Record(t.Context(), "sid-1", "usr-001", RoleUser); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	raw, err := mr.Get("session:sid-1")
	if err != nil {
		t.Fatalf("key session:sid-1 missing: %v", err)
	}

	var value map[string]string
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if value["userId"] != "usr-001" || value["role"] != "USER" || len(value) != 2 {
		t.Errorf("value = %v, want {userId: usr-001, role: USER}", value)
	}

	if ttl := mr.TTL("session:sid-1"); ttl != 86400*time.Second {
		t.Errorf("TTL = %v, want 86400s", ttl)
	}
}

func TestRegistry_EntryExpires(t *testing.T) {
	r, mr := testRegistry(t)

	if err := r.Record(t.Context(), "sid-1", "usr-001", RoleUser); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	mr.FastForward(86400 * time.Second)

	active, err := r.IsActive(t.Context(), "sid-1")
	if err != nil {
		t.Fatalf("IsActive() error = %v", err)
	}
	if active {
		t.Error("entry should be gone after its TTL")
	}
}

func TestRegistry_RevokeThenLookup(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := t.Context()

	if err := r.Record(ctx, "sid-1", "usr-001", RoleAdmin); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entry, err := r.Lookup(ctx, "sid-1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entry.SessionID != "sid-1" || entry.UserID != "usr-001" || entry.Role != RoleAdmin {
		t.Errorf("entry = %+v", entry)
	}

	if err := r.Revoke(ctx, "sid-1"); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := r.Lookup(ctx, "sid-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Lookup() after revoke error = %v, want ErrSessionNotFound", err)
	}
	if active, _ := r.IsActive(ctx, "sid-1"); active {
		t.Error("IsActive() = true after revoke")
	}

	// Idempotent.
	if err := r.Revoke(ctx, "sid-1"); err != nil {
		t.Errorf("second Revoke() error = %v", err)
	}
	if err := r.Revoke(ctx, "never-existed"); err != nil {
		t.Errorf("Revoke() unknown sid error = %v", err)
	}
}

func TestRegistry_RecordValidation(t *testing.T) {
	r, _ := testRegistry(t)

	if err := r.Record(t.Context(), "", "usr-001", RoleUser); !errors.Is(err, ErrValidation) {
		t.Errorf("Record(empty sid) error = %v, want ErrValidation", err)
	}
	if err := r.Record(t.Context(), "sid-1", "", RoleUser); !errors.Is(err, ErrValidation) {
		t.Errorf("Record(empty subject) error = %v, want ErrValidation", err)
	}
}

func TestRegistry_LookupCorruptValue(t *testing.T) {
	r, mr := testRegistry(t)

	if err := mr.Set("session:sid-bad", "not json"); err != nil {
		t.Fatalf("seeding corrupt value: %v", err)
	}

	_, err := r.Lookup(t.Context(), "sid-bad")
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Lookup() error = %v, want decode error", err)
	}
}

func TestRegistry_Unavailable(t *testing.T) {
	r, mr := testRegistry(t)
	mr.Close()
	ctx := t.Context()

	checks := map[string]error{
		"Record": r.Record(ctx, "sid-1", "usr-001", RoleUser),
		"Revoke": r.Revoke(ctx, "sid-1"),
	}
	_, checks["IsActive"] = r.IsActive(ctx, "sid-1")
	_, checks["Lookup"] = r.Lookup(ctx, "sid-1")

	for name, err := range checks {
		if !errors.Is(err, ErrRegistryUnavailable) {
			t.Errorf("%s() error = %v, want ErrRegistryUnavailable", name, err)
		}
	}
}
