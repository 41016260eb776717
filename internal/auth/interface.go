package auth

import (
	"context"

	"github.com/communehq/commune/internal/models"
)

// Authenticator is the authentication provider consumed by handlers and
// middleware. Service is the production implementation.
type Authenticator interface {
	// Password accounts
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)

	// Tokens
	IssueToken(user *models.User) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*models.User, error)

	// Google OAuth. GoogleAuthURL returns "" when Google is not configured.
	GoogleAuthURL(state string) string
	HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error)

	// TOTP two-factor
	BeginTwoFactor(ctx context.Context, user *models.User) (*TwoFactorSetup, error)
	ConfirmTwoFactor(ctx context.Context, user *models.User, code string) error
	DisableTwoFactor(ctx context.Context, user *models.User, code string) error
}

var _ Authenticator = (*Service)(nil)
