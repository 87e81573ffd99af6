package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL is how long a registry entry lives. It must be at least
// the token lifetime so a live token never outlives its entry.
const DefaultSessionTTL = 86400 * time.Second

const sessionKeyPrefix = "session:"

// SessionEntry is the JSON value stored under session:<sid>.
type SessionEntry struct {
	SessionID string `json:"-"`
	UserID    string `json:"userId"`
	Role      Role   `json:"role"`
}

// Registry records issued session ids in Redis for revocation bookkeeping.
// It is the only writer of session keys.
type Registry struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSessionTTL overrides DefaultSessionTTL.
func WithSessionTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

// NewRegistry returns a Registry backed by client.
func NewRegistry(client redis.UniversalClient, opts ...RegistryOption) (*Registry, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrValidation)
	}

	r := &Registry{client: client, ttl: DefaultSessionTTL}
	for _, opt := range opts {
		opt(r)
	}
	if r.ttl < time.Second {
		return nil, fmt.Errorf("%w: session ttl must be at least one second", ErrValidation)
	}
	return r, nil
}

// TTL returns the expiry applied to every entry.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

func sessionKey(sid string) string {
	return sessionKeyPrefix + sid
}

// Record stores the entry and its TTL in one SET ... EX call.
func (r *Registry) Record(ctx context.Context, sid, subjectID string, role Role) error {
	if sid == "" || subjectID == "" {
		return fmt.Errorf("%w: session id and subject are required", ErrValidation)
	}

	value, err := json.Marshal(SessionEntry{UserID: subjectID, Role: role})
	if err != nil {
		return fmt.Errorf("encoding session entry: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(sid), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: recording session %s: %w", ErrRegistryUnavailable, sid, err)
	}
	return nil
}

// Revoke deletes the entry. Revoking an absent or already revoked session is not an error.
func (r *Registry) Revoke(ctx context.Context, sid string) error {
	if err := r.client.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("%w: revoking session %s: %w", ErrRegistryUnavailable, sid, err)
	}
	return nil
}

// IsActive reports whether an entry exists for sid.
func (r *Registry) IsActive(ctx context.Context, sid string) (bool, error) {
	n, err := r.client.Exists(ctx, sessionKey(sid)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: checking session %s: %w", ErrRegistryUnavailable, sid, err)
	}
	return n > 0, nil
}

// Lookup returns the stored entry, or ErrSessionNotFound when absent.
func (r *Registry) Lookup(ctx context.Context, sid string) (*SessionEntry, error) {
	raw, err := r.client.Get(ctx, sessionKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: looking up session %s: %w", ErrRegistryUnavailable, sid, err)
	}

	var entry SessionEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decoding session entry %s: %w", sid, err)
	}
	entry.SessionID = sid
	return &entry, nil
}
