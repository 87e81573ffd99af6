package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

// seedPasswordBytes is the number of random bytes for a generated admin password.
const seedPasswordBytes = 16

// SeedAdminInput names the first-boot administrator.
// An empty Password is replaced with a random one.
type SeedAdminInput struct {
	Email    string
	Password string
	Cost     int
}

// SeedAdmin creates the initial ADMIN account on first boot if no users exist.
// A generated password is logged once and returned; it must be changed
// immediately. The returned password is empty when seeding was skipped or
// the caller supplied one.
func SeedAdmin(ctx context.Context, users UserRepository, in SeedAdminInput, logger *slog.Logger) (string, error) {
	email := NormalizeEmail(in.Email)
	if !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: seed admin email %q is malformed", ErrValidation, in.Email)
	}

	count, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Info("users exist, skipping admin seed")
		return "", nil
	}

	password := in.Password
	generated := password == ""
	if generated {
		passwordBytes := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
			return "", fmt.Errorf("generating seed password: %w", err)
		}
		password = hex.EncodeToString(passwordBytes)
	}

	cost := in.Cost
	if cost == 0 {
		cost = DefaultPasswordCost
	}
	hash, err := HashPasswordWithCost(password, cost)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &User{
		Email:        email,
		FirstName:    "System",
		LastName:     "Administrator",
		PasswordHash: hash,
		Role:         RoleAdmin,
		IsActive:     true,
	}

	if err := users.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	if !generated {
		logger.Info("seed admin account created", "user_id", admin.ID, "email", email)
		return "", nil
	}

	logger.Warn("seed admin account created",
		"user_id", admin.ID,
		"email", email,
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
