package auth

import (
	"context"
	"errors"
	"testing"
)

// stubSessions is a SessionChecker with a fixed answer.
type stubSessions struct {
	active bool
	err    error
}

func (s stubSessions) IsActive(context.Context, string) (bool, error) {
	return s.active, s.err
}

func testGate(t *testing.T, signer *Signer, opts ...GateOption) *Gate {
	t.Helper()

	g, err := NewGate(signer, DefaultPolicy(), opts...)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	return g
}

func bearer(t *testing.T, signer *Signer, role Role) (header, sid string) {
	t.Helper()

	token, sid, err := signer.Issue("usr-001", role)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return "Bearer " + token, sid
}

func TestNewGate_Validation(t *testing.T) {
	if _, err := NewGate(nil, DefaultPolicy()); !errors.Is(err, ErrValidation) {
		t.Errorf("NewGate(nil signer) error = %v, want ErrValidation", err)
	}
	if _, err := NewGate(testSigner(t), nil); !errors.Is(err, ErrValidation) {
		t.Errorf("NewGate(nil policy) error = %v, want ErrValidation", err)
	}
}

func TestGate_Evaluate(t *testing.T) {
	signer := testSigner(t)
	g := testGate(t, signer)

	userHeader, _ := bearer(t, signer, RoleUser)
	adminHeader, _ := bearer(t, signer, RoleAdmin)

	other, err := NewSigner([]byte("a-completely-different-secret-value!"))
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	forgedHeader, _ := bearer(t, other, RoleAdmin)

	tests := []struct {
		name         string
		path         string
		header       string
		wantState    GateState
		wantRedirect string
		wantAllowed  bool
	}{
		{"public path without token", "/", "", StateNoRuleMatch, "", true},
		{"public path with garbage token", "/about", "Bearer junk", StateNoRuleMatch, "", true},
		{"dashboard without token", "/dashboard", "", StateMissingOrInvalidToken, "/auth", false},
		{"dashboard with wrong scheme", "/dashboard", "Basic dXNlcjpwdw==", StateMissingOrInvalidToken, "/auth", false},
		{"dashboard with garbage token", "/dashboard", "Bearer not.a.jwt", StateMissingOrInvalidToken, "/auth", false},
		{"dashboard with forged token", "/dashboard", forgedHeader, StateMissingOrInvalidToken, "/auth", false},
		{"user on dashboard", "/dashboard/x", userHeader, StateAuthorized, "", true},
		{"user on admin", "/admin/x", userHeader, StateInsufficientRole, "/auth", false},
		{"admin on admin", "/admin/x", adminHeader, StateAuthorized, "", true},
		{"admin on dashboard", "/dashboard/x", adminHeader, StateAdminAreaRedirect, "/admin", false},
		{"lowercase scheme", "/dashboard", "bearer " + userHeader[len("Bearer "):], StateAuthorized, "", true},
		{"user dot-dot into admin", "/dashboard/../admin/x", userHeader, StateInsufficientRole, "/auth", false},
		{"public dot-dot into admin", "/public/../admin", "", StateMissingOrInvalidToken, "/auth", false},
		{"double slash admin", "//admin/x", userHeader, StateInsufficientRole, "/auth", false},
		{"admin dot-dot out of dashboard", "/dashboard/../", adminHeader, StateNoRuleMatch, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Evaluate(t.Context(), tt.path, tt.header)
			if d.State != tt.wantState {
				t.Fatalf("State = %v, want %v (err = %v)", d.State, tt.wantState, d.Err)
			}
			if d.RedirectTo != tt.wantRedirect {
				t.Errorf("RedirectTo = %q, want %q", d.RedirectTo, tt.wantRedirect)
			}
			if d.Allowed() != tt.wantAllowed {
				t.Errorf("Allowed() = %v, want %v", d.Allowed(), tt.wantAllowed)
			}
			if tt.wantState == StateAuthorized && d.Claims == nil {
				t.Error("authorized decision should carry claims")
			}
		})
	}
}

func TestGate_InvalidTokenCarriesUnauthorized(t *testing.T) {
	g := testGate(t, testSigner(t))

	d := g.Evaluate(t.Context(), "/dashboard", "Bearer garbage")
	if !errors.Is(d.Err, ErrUnauthorized) {
		t.Errorf("Err = %v, want ErrUnauthorized", d.Err)
	}
	if d.Claims != nil {
		t.Error("denied decision should not carry claims")
	}
}

func TestGate_WithoutAdminAreaRedirect(t *testing.T) {
	signer := testSigner(t)
	g := testGate(t, signer, WithoutAdminAreaRedirect(), WithLoginPath("/login"))

	adminHeader, _ := bearer(t, signer, RoleAdmin)
	if d := g.Evaluate(t.Context(), "/dashboard", adminHeader); d.State != StateAuthorized {
		t.Errorf("State = %v, want authorized", d.State)
	}

	if d := g.Evaluate(t.Context(), "/dashboard", ""); d.RedirectTo != "/login" {
		t.Errorf("RedirectTo = %q, want /login", d.RedirectTo)
	}
}

func TestGate_StrictRevocation(t *testing.T) {
	signer := testSigner(t)
	registry, _ := testRegistry(t)
	g := testGate(t, signer, WithRevocationCheck(registry, false))

	if !g.Strict() {
		t.Fatal("Strict() = false, want true")
	}

	header, sid := bearer(t, signer, RoleUser)
	ctx := t.Context()

	if d := g.Evaluate(ctx, "/dashboard", header); d.State != StateMissingOrInvalidToken {
		t.Errorf("unrecorded session: State = %v, want missing_or_invalid_token", d.State)
	}

	if err := registry.Record(ctx, sid, "usr-001", RoleUser); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if d := g.Evaluate(ctx, "/dashboard", header); d.State != StateAuthorized {
		t.Errorf("recorded session: State = %v, want authorized", d.State)
	}

	if err := registry.Revoke(ctx, sid); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if d := g.Evaluate(ctx, "/dashboard", header); d.State != StateMissingOrInvalidToken {
		t.Errorf("revoked session: State = %v, want missing_or_invalid_token", d.State)
	}
}

func TestGate_RevocationDefaultOff(t *testing.T) {
	signer := testSigner(t)
	registry, _ := testRegistry(t)
	g := testGate(t, signer)

	header, sid := bearer(t, signer, RoleUser)
	if err := registry.Revoke(t.Context(), sid); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	// Revocation only removes bookkeeping; the token stays valid until expiry.
	if d := g.Evaluate(t.Context(), "/dashboard", header); d.State != StateAuthorized {
		t.Errorf("State = %v, want authorized", d.State)
	}
}

func TestGate_RegistryFailure(t *testing.T) {
	signer := testSigner(t)
	header, _ := bearer(t, signer, RoleUser)
	down := stubSessions{err: ErrRegistryUnavailable}

	closed := testGate(t, signer, WithRevocationCheck(down, false))
	d := closed.Evaluate(t.Context(), "/dashboard", header)
	if d.State != StateMissingOrInvalidToken {
		t.Errorf("fail closed: State = %v, want missing_or_invalid_token", d.State)
	}
	if !d.IsRegistryError() {
		t.Errorf("IsRegistryError() = false, err = %v", d.Err)
	}

	open := testGate(t, signer, WithRevocationCheck(down, true))
	if d := open.Evaluate(t.Context(), "/dashboard", header); d.State != StateAuthorized {
		t.Errorf("fail open: State = %v, want authorized", d.State)
	}
}

func TestGate_RoleCheckedAfterRevocation(t *testing.T) {
	signer := testSigner(t)
	header, _ := bearer(t, signer, RoleUser)
	g := testGate(t, signer, WithRevocationCheck(stubSessions{active: true}, false))

	if d := g.Evaluate(t.Context(), "/admin", header); d.State != StateInsufficientRole {
		t.Errorf("State = %v, want insufficient_role", d.State)
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/dashboard", "/dashboard"},
		{"/dashboard/", "/dashboard/"},
		{"dashboard/x", "/dashboard/x"},
		{"/dashboard/../admin/x", "/admin/x"},
		{"/dashboard/./app.js", "/dashboard/app.js"},
		{"//admin//x/", "/admin/x/"},
		{"/..", "/"},
	}
	for _, tt := range tests {
		if got := CleanPath(tt.in); got != tt.want {
			t.Errorf("CleanPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := BearerToken(tt.header)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGateState_String(t *testing.T) {
	if got := StateAdminAreaRedirect.String(); got != "admin_area_redirect" {
		t.Errorf("String() = %q", got)
	}
	if got := GateState(99).String(); got != "GateState(99)" {
		t.Errorf("String() = %q", got)
	}
}
