package auth

import (
	"context"
	"fmt"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/models"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TwoFactorSetup is returned when two-factor enrollment starts.
type TwoFactorSetup struct {
	Secret string `json:"secret"`      // base32 secret for manual entry
	URL    string `json:"qr_code_url"` // otpauth:// URL for QR codes
}

// BeginTwoFactor generates a new TOTP secret and stores it unconfirmed.
// Two-factor stays disabled until ConfirmTwoFactor accepts a code.
func (s *Service) BeginTwoFactor(ctx context.Context, user *models.User) (*TwoFactorSetup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}

	secret := key.Secret()
	user.TwoFactorSecret = &secret
	user.TwoFactorEnabled = false
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store secret: %w", err)
	}

	return &TwoFactorSetup{Secret: secret, URL: key.URL()}, nil
}

// ConfirmTwoFactor enables two-factor once code matches the pending secret
func (s *Service) ConfirmTwoFactor(ctx context.Context, user *models.User, code string) error {
	if user.TwoFactorSecret == nil {
		return ErrTwoFactorNotPending
	}
	if !s.validateCode(user, code) {
		return ErrInvalidTwoFactor
	}

	user.TwoFactorEnabled = true
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to enable two-factor: %w", err)
	}
	logger.Log.Info("Two-factor enabled", logger.WithUserID(user.ID))
	return nil
}

// DisableTwoFactor clears the secret after verifying a current code
func (s *Service) DisableTwoFactor(ctx context.Context, user *models.User, code string) error {
	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return ErrTwoFactorNotPending
	}
	if !s.validateCode(user, code) {
		return ErrInvalidTwoFactor
	}

	user.TwoFactorEnabled = false
	user.TwoFactorSecret = nil
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}
	logger.Log.Info("Two-factor disabled", logger.WithUserID(user.ID))
	return nil
}

func (s *Service) validateCode(user *models.User, code string) bool {
	if user.TwoFactorSecret == nil {
		return false
	}
	ok, err := totp.ValidateCustom(code, *user.TwoFactorSecret, s.now(), totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: otp.DigitsSix,
	})
	return err == nil && ok
}
