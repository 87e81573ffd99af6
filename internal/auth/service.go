package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nerrad567/authgate/internal/infrastructure/logging"
)

// DefaultRegistryWriteTimeout bounds the background session record.
const DefaultRegistryWriteTimeout = 2 * time.Second

// timingPassword is hashed once at startup and verified against when the
// email is unknown, so both failure paths spend the same bcrypt work.
const timingPassword = "authgate-unknown-account"

// AuthenticatorDeps are the collaborators an Authenticator needs.
// Events and Logger are optional.
type AuthenticatorDeps struct {
	Users    UserRepository
	Signer   *Signer
	Registry *Registry
	Events   EventSink
	Logger   *slog.Logger
}

// AuthenticatorConfig tunes password work and registry writes.
// Zero values select the defaults.
type AuthenticatorConfig struct {
	PasswordCost         int
	MaxConcurrentHashes  int
	RegistryWriteTimeout time.Duration
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthResult is the outcome of a successful register or login.
// Token is empty when issuance failed after registration.
type AuthResult struct {
	User      *User
	Token     string
	SessionID string
	ExpiresIn time.Duration
}

// Authenticator orchestrates registration, login and session revocation.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Session records run on background goroutines; call Wait on shutdown.
type Authenticator struct {
	users     UserRepository
	signer    *Signer
	registry  *Registry
	events    EventSink
	logger    *slog.Logger
	cost      int
	hashes    *semaphore.Weighted
	timeout   time.Duration
	dummyHash string
	pending   sync.WaitGroup
}

// NewAuthenticator validates deps and returns a ready Authenticator.
// The registry TTL must cover the signer's token lifetime.
func NewAuthenticator(deps AuthenticatorDeps, cfg AuthenticatorConfig) (*Authenticator, error) {
	if deps.Users == nil || deps.Signer == nil || deps.Registry == nil {
		return nil, fmt.Errorf("%w: users, signer and registry are required", ErrValidation)
	}
	if deps.Registry.TTL() < deps.Signer.TokenTTL() {
		return nil, fmt.Errorf("%w: session ttl %s is shorter than token ttl %s",
			ErrValidation, deps.Registry.TTL(), deps.Signer.TokenTTL())
	}

	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = DefaultPasswordCost
	}
	if cfg.MaxConcurrentHashes <= 0 {
		cfg.MaxConcurrentHashes = runtime.NumCPU()
	}
	if cfg.RegistryWriteTimeout <= 0 {
		cfg.RegistryWriteTimeout = DefaultRegistryWriteTimeout
	}

	dummy, err := HashPasswordWithCost(timingPassword, cfg.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("preparing timing hash: %w", err)
	}

	a := &Authenticator{
		users:     deps.Users,
		signer:    deps.Signer,
		registry:  deps.Registry,
		events:    deps.Events,
		logger:    deps.Logger,
		cost:      cfg.PasswordCost,
		hashes:    semaphore.NewWeighted(int64(cfg.MaxConcurrentHashes)),
		timeout:   cfg.RegistryWriteTimeout,
		dummyHash: dummy,
	}
	if a.events == nil {
		a.events = discardSink{}
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a, nil
}

// Register creates a USER account and issues its first session.
func (a *Authenticator) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := NormalizeEmail(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	if email == "" || in.Password == "" || firstName == "" || lastName == "" {
		return nil, fmt.Errorf("%w: email, password, firstName and lastName are required", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email address is malformed", ErrValidation)
	}

	hash, err := a.hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Role:         RoleUser,
		IsActive:     true,
	}
	if err := a.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("registering user: %w", err)
	}

	result := &AuthResult{User: user}
	token, sid, err := a.signer.Issue(user.ID, user.Role)
	if err != nil {
		// The account exists either way; the client can log in again.
		a.logger.Error("issuing session after registration failed", "user_id", user.ID, "error", err)
		return result, nil
	}
	result.Token, result.SessionID, result.ExpiresIn = token, sid, a.signer.TokenTTL()
	a.recordAsync(ctx, sid, user.ID, user.Role)

	a.logger.Info("user registered", "user_id", user.ID, "sid", sid)
	a.emit(ctx, Event{Type: EventRegistered, SessionID: sid, UserID: user.ID, Role: user.Role})
	return result, nil
}

// Login verifies credentials and issues a new session.
//
// Unknown email, wrong password and an inactive account all return
// ErrInvalidCredentials after the same amount of hashing work.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	hash := a.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	ok, err := a.verify(ctx, password, hash)
	if err != nil {
		return nil, err
	}

	if user == nil || !ok || !user.IsActive {
		a.logger.Info("login failed", "email", logging.MaskEmail(email))
		a.emit(ctx, Event{Type: EventLoginFailed, Email: logging.MaskEmail(email)})
		return nil, ErrInvalidCredentials
	}

	if NeedsRehash(user.PasswordHash, a.cost) {
		a.rehash(ctx, user, password)
	}

	token, sid, err := a.signer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issuing session: %w", err)
	}
	a.recordAsync(ctx, sid, user.ID, user.Role)
	a.touch(ctx, user)

	a.logger.Info("login succeeded", "user_id", user.ID, "sid", sid)
	a.emit(ctx, Event{Type: EventLoginSucceeded, SessionID: sid, UserID: user.ID, Role: user.Role})
	return &AuthResult{User: user, Token: token, SessionID: sid, ExpiresIn: a.signer.TokenTTL()}, nil
}

// Me returns the account behind verified claims and stamps its last login.
// A vanished or deactivated account is reported as ErrUnauthorized.
func (a *Authenticator) Me(ctx context.Context, claims *Claims) (*User, error) {
	if claims == nil {
		return nil, ErrUnauthorized
	}

	user, err := a.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: account %s not found", ErrUnauthorized, claims.Subject)
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account %s inactive", ErrUnauthorized, claims.Subject)
	}

	a.touch(ctx, user)
	return user, nil
}

// Logout revokes the caller's own session.
func (a *Authenticator) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil {
		return ErrUnauthorized
	}
	if err := a.registry.Revoke(ctx, claims.SessionID); err != nil {
		return err
	}

	a.logger.Info("session logged out", "user_id", claims.Subject, "sid", claims.SessionID)
	a.emit(ctx, Event{Type: EventLogout, SessionID: claims.SessionID, UserID: claims.Subject, Role: claims.Role})
	return nil
}

// RevokeSession removes any session from the registry on behalf of actor.
// Revoking an unknown session succeeds.
func (a *Authenticator) RevokeSession(ctx context.Context, actor *Claims, sid string) error {
	if actor == nil || actor.Role != RoleAdmin {
		return ErrUnauthorized
	}
	if strings.TrimSpace(sid) == "" {
		return fmt.Errorf("%w: session id is required", ErrValidation)
	}

	ev := Event{Type: EventSessionRevoked, SessionID: sid, ActorID: actor.Subject}
	entry, err := a.registry.Lookup(ctx, sid)
	switch {
	case err == nil:
		ev.UserID, ev.Role = entry.UserID, entry.Role
	case !errors.Is(err, ErrSessionNotFound):
		return err
	}

	if err := a.registry.Revoke(ctx, sid); err != nil {
		return err
	}

	a.logger.Info("session revoked", "sid", sid, "actor_id", actor.Subject)
	a.emit(ctx, ev)
	return nil
}

// Wait blocks until pending session records have finished.
func (a *Authenticator) Wait() {
	a.pending.Wait()
}

func (a *Authenticator) hash(ctx context.Context, password string) (string, error) {
	if err := a.hashes.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for hash slot: %w", err)
	}
	defer a.hashes.Release(1)

	return HashPasswordWithCost(password, a.cost)
}

func (a *Authenticator) verify(ctx context.Context, password, hash string) (bool, error) {
	if err := a.hashes.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("waiting for hash slot: %w", err)
	}
	defer a.hashes.Release(1)

	return VerifyPassword(password, hash), nil
}

// rehash upgrades a legacy or under-cost hash after a successful login.
// Failure leaves the old hash in place.
func (a *Authenticator) rehash(ctx context.Context, user *User, password string) {
	hash, err := a.hash(ctx, password)
	if err == nil {
		err = a.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		a.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
}

func (a *Authenticator) touch(ctx context.Context, user *User) {
	now := time.Now().UTC().Truncate(time.Second)
	if err := a.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		a.logger.Warn("updating last login failed", "user_id", user.ID, "error", err)
		return
	}
	user.LastLoginAt = &now
}

// recordAsync writes the registry entry without holding up the response.
// The write gets one attempt with its own deadline and outlives ctx.
func (a *Authenticator) recordAsync(ctx context.Context, sid, subjectID string, role Role) {
	recordCtx := context.WithoutCancel(ctx)

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()

		ctx, cancel := context.WithTimeout(recordCtx, a.timeout)
		defer cancel()

		if err := a.registry.Record(ctx, sid, subjectID, role); err != nil {
			a.logger.Warn("recording session failed", "sid", sid, "user_id", subjectID, "error", err)
		}
	}()
}

func (a *Authenticator) emit(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	a.events.Emit(ctx, e)
}
