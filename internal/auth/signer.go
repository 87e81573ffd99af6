package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of an issued token.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the signed token payload: sub, role, sid, iat and exp.
// Trust comes from the signature and expiry only.
type Claims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	SessionID string `json:"sid"`
}

// Signer issues and verifies HS256 session tokens.
// It holds the signing secret for its whole life and never mutates it.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithTokenTTL overrides DefaultTokenTTL.
func WithTokenTTL(ttl time.Duration) SignerOption {
	return func(s *Signer) {
		s.ttl = ttl
	}
}

// WithClock replaces time.Now for issuing and verifying.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner returns a Signer for secret. An empty secret is ErrMissingSecret.
func NewSigner(secret []byte, opts ...SignerOption) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	s := &Signer{
		secret: append([]byte(nil), secret...),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl <= 0 {
		return nil, fmt.Errorf("%w: token ttl must be positive", ErrValidation)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// TokenTTL returns the lifetime of tokens this signer issues.
func (s *Signer) TokenTTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subjectID with a fresh session id.
func (s *Signer) Issue(subjectID string, role Role) (token, sessionID string, err error) {
	if subjectID == "" {
		return "", "", fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if !role.Valid() {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	sessionID = uuid.NewString()
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role:      role,
		SessionID: sessionID,
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("signing token: %w", err)
	}
	return token, sessionID, nil
}

// Verify checks structure, algorithm, signature and expiry, with no leeway.
// An iat ahead of the local clock is accepted so instances with skewed
// clocks verify each other's tokens.
// Failures are ErrTokenMalformed, ErrTokenExpired or ErrTokenSignature,
// each of which wraps ErrUnauthorized. The registry is never consulted.
func (s *Signer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if !parsed.Valid {
		return nil, ErrTokenMalformed
	}

	switch {
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: missing sub", ErrTokenMalformed)
	case claims.SessionID == "":
		return nil, fmt.Errorf("%w: missing sid", ErrTokenMalformed)
	case claims.IssuedAt == nil:
		return nil, fmt.Errorf("%w: missing iat", ErrTokenMalformed)
	case !claims.Role.Valid():
		return nil, fmt.Errorf("%w: unknown role %q", ErrTokenMalformed, claims.Role)
	}

	return claims, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrTokenSignature, err)
	default:
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
}
