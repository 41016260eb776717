package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/repository"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// GoogleUserInfoURL is the OpenID userinfo endpoint queried after the code
// exchange.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleUserInfo represents Google OAuth user response
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleAuthURL returns the Google consent page URL carrying state
func (s *Service) GoogleAuthURL(state string) string {
	if s.google == nil {
		return ""
	}
	return s.google.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// HandleGoogleCallback exchanges code, then finds or creates the matching
// account. Accounts are unified by Google subject first, then by email.
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	if s.google == nil {
		return nil, ErrOAuthNotConfigured
	}

	info, err := s.fetchGoogleUser(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google user info: %w", err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, errors.New("google user info missing subject or email")
	}

	user, err := s.users.GetUserByGoogleID(ctx, info.Sub)
	if err == nil {
		return s.IssueToken(user)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	user, err = s.users.GetUserByEmail(ctx, info.Email)
	switch {
	case err == nil:
		logger.Log.Info("Linking Google account", logger.WithUserID(user.ID))
		user.GoogleID = &info.Sub
		if user.AvatarURL == "" {
			user.AvatarURL = info.Picture
		}
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to link Google account: %w", err)
		}
		return s.IssueToken(user)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("database error: %w", err)
	}

	username, err := s.uniqueUsername(ctx, usernameFromName(info.Name))
	if err != nil {
		return nil, err
	}

	user = &models.User{
		Email:       strings.ToLower(info.Email),
		Username:    username,
		DisplayName: info.Name,
		AvatarURL:   info.Picture,
		GoogleID:    &info.Sub,
		Locale:      "en",
	}
	if user.DisplayName == "" {
		user.DisplayName = username
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("User registered via Google", logger.WithUserID(user.ID), zap.String("username", username))
	return s.IssueToken(user)
}

func (s *Service) fetchGoogleUser(ctx context.Context, code string) (*GoogleUserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})

	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.google.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return &info, nil
}

func (s *Service) userInfoURL() string {
	if s.googleUserInfo != "" {
		return s.googleUserInfo
	}
	return GoogleUserInfoURL
}

// uniqueUsername appends a counter to base until it is free
func (s *Service) uniqueUsername(ctx context.Context, base string) (string, error) {
	username := base
	for counter := 1; counter < 1000; counter++ {
		_, err := s.users.GetUserByUsername(ctx, username)
		if errors.Is(err, repository.ErrUserNotFound) {
			return username, nil
		}
		if err != nil {
			return "", fmt.Errorf("database error: %w", err)
		}
		username = fmt.Sprintf("%s%d", base, counter)
	}
	return "", errors.New("unable to generate unique username")
}

// usernameFromName keeps lowercase letters and digits, at most 20 of them
func usernameFromName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, name)

	if len(cleaned) < 3 {
		cleaned = "member" + cleaned
	}
	if len(cleaned) > 20 {
		cleaned = cleaned[:20]
	}
	return cleaned
}
