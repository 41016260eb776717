package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

var (
	ErrUserExists          = errors.New("user already exists")
	ErrUsernameExists      = errors.New("username already taken")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrTwoFactorRequired   = errors.New("two-factor code required")
	ErrInvalidTwoFactor    = errors.New("invalid two-factor code")
	ErrTwoFactorNotPending = errors.New("two-factor setup not started")
	ErrOAuthNotConfigured  = errors.New("oauth provider not configured")
)

const defaultTokenTTL = 24 * time.Hour

// Options configures a Service.
type Options struct {
	JWTSecret []byte
	TokenTTL  time.Duration
	Issuer    string // shown in authenticator apps
	Google    *oauth2.Config

	// GoogleUserInfoURL replaces the default userinfo endpoint in tests.
	GoogleUserInfoURL string

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time
}

// Service handles all authentication operations
type Service struct {
	users     repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	issuer    string
	google    *oauth2.Config
	now       func() time.Time

	googleUserInfo string
}

// NewService creates a new authentication service
func NewService(users repository.UserRepository, opts Options) *Service {
	s := &Service{
		users:     users,
		jwtSecret: opts.JWTSecret,
		tokenTTL:  opts.TokenTTL,
		issuer:    opts.Issuer,
		google:    opts.Google,
		now:       opts.Now,

		googleUserInfo: opts.GoogleUserInfoURL,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = defaultTokenTTL
	}
	if s.issuer == "" {
		s.issuer = "Commune"
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// RegisterRequest represents native registration request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required,min=3,max=30"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required,min=1,max=50"`
	Locale      string `json:"locale"`
}

// LoginRequest represents native login request. Code is the TOTP code and is
// required only for accounts with two-factor enabled.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Code     string `json:"code"`
}

// Register creates a new user with email/password
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.PasswordHash == nil {
			// Google-only account adding a password
			return s.addPassword(ctx, existing, req.Password)
		}
		return nil, ErrUserExists
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("database error: %w", err)
	}

	if _, err := s.users.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: &hash,
		Locale:       req.Locale,
	}
	if user.Locale == "" {
		user.Locale = "en"
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID), zap.String("username", user.Username))
	return s.IssueToken(user)
}

// Login authenticates with email/password and, when enabled, a TOTP code
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		if req.Code == "" {
			return nil, ErrTwoFactorRequired
		}
		if !s.validateCode(user, req.Code) {
			return nil, ErrInvalidTwoFactor
		}
	}

	now := s.now()
	user.LastActiveAt = &now
	if err := s.users.UpdateUser(ctx, user); err != nil {
		logger.WarnWithFields("Failed to update last active", err)
	}

	return s.IssueToken(user)
}

func (s *Service) addPassword(ctx context.Context, user *models.User, password string) (*AuthResponse, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = &hash

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.IssueToken(user)
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// IssueToken signs a JWT for user and wraps it in an AuthResponse
func (s *Service) IssueToken(user *models.User) (*AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"is_admin": user.IsAdmin,
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     signed,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken validates a JWT token and returns the current user record
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
