package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/communehq/commune/internal/database"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	users   repository.UserRepository
	service *Service
	now     time.Time
	ctx     context.Context
}

func (suite *AuthServiceTestSuite) SetupTest() {
	logger.InitNop()

	db, err := database.OpenTest()
	require.NoError(suite.T(), err)

	suite.db = db
	suite.ctx = context.Background()
	suite.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.users = repository.NewUserRepository(db)
	suite.service = NewService(suite.users, Options{
		JWTSecret: []byte("test_jwt_secret_key"),
		Now:       func() time.Time { return suite.now },
	})
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	_ = database.Close(suite.db)
}

func (suite *AuthServiceTestSuite) register(email, username string) *AuthResponse {
	resp, err := suite.service.Register(suite.ctx, RegisterRequest{
		Email:       email,
		Username:    username,
		Password:    "password123",
		DisplayName: "Test Member",
	})
	require.NoError(suite.T(), err)
	return resp
}

func (suite *AuthServiceTestSuite) TestRegister() {
	t := suite.T()

	resp := suite.register("Test@Commune.dev", "tester")
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "test@commune.dev", resp.User.Email)
	assert.Equal(t, "tester", resp.User.Username)
	assert.Equal(t, "en", resp.User.Locale)
	require.NotNil(t, resp.User.PasswordHash)
	assert.NotEqual(t, "password123", *resp.User.PasswordHash)
	assert.Equal(t, suite.now.Add(defaultTokenTTL), resp.ExpiresAt)

	_, err := suite.service.Register(suite.ctx, RegisterRequest{
		Email: "test@commune.dev", Username: "other", Password: "password123", DisplayName: "x",
	})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = suite.service.Register(suite.ctx, RegisterRequest{
		Email: "different@commune.dev", Username: "TESTER", Password: "password123", DisplayName: "x",
	})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func (suite *AuthServiceTestSuite) TestRegisterAddsPasswordToGoogleAccount() {
	t := suite.T()

	googleID := "google-sub"
	require.NoError(t, suite.users.CreateUser(suite.ctx, &models.User{
		Email: "g@commune.dev", Username: "guser", DisplayName: "G", GoogleID: &googleID,
	}))

	resp, err := suite.service.Register(suite.ctx, RegisterRequest{
		Email: "g@commune.dev", Username: "ignored", Password: "password123", DisplayName: "G",
	})
	require.NoError(t, err)
	assert.Equal(t, "guser", resp.User.Username)

	_, err = suite.service.Login(suite.ctx, LoginRequest{Email: "g@commune.dev", Password: "password123"})
	assert.NoError(t, err)
}

func (suite *AuthServiceTestSuite) TestLogin() {
	t := suite.T()
	suite.register("login@commune.dev", "logintest")

	resp, err := suite.service.Login(suite.ctx, LoginRequest{Email: "LOGIN@commune.dev", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User.LastActiveAt)
	assert.True(t, resp.User.LastActiveAt.Equal(suite.now))

	_, err = suite.service.Login(suite.ctx, LoginRequest{Email: "login@commune.dev", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown accounts look the same as bad passwords.
	_, err = suite.service.Login(suite.ctx, LoginRequest{Email: "nobody@commune.dev", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestValidateToken() {
	t := suite.T()
	resp := suite.register("jwt@commune.dev", "jwttest")

	user, err := suite.service.ValidateToken(suite.ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	_, err = suite.service.ValidateToken(suite.ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService(suite.users, Options{JWTSecret: []byte("another-secret"), Now: suite.service.now})
	_, err = other.ValidateToken(suite.ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	suite.now = suite.now.Add(25 * time.Hour)
	_, err = suite.service.ValidateToken(suite.ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestValidateTokenRejectsOtherAlgorithms() {
	t := suite.T()
	resp := suite.register("none@commune.dev", "nonealg")

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": resp.User.ID,
		"exp":     suite.now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = suite.service.ValidateToken(suite.ctx, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestTwoFactorLifecycle() {
	t := suite.T()
	resp := suite.register("otp@commune.dev", "otpuser")
	user, err := suite.users.GetUser(suite.ctx, resp.User.ID)
	require.NoError(t, err)

	setup, err := suite.service.BeginTwoFactor(suite.ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.URL, "otpauth://totp/")
	assert.False(t, user.TwoFactorEnabled)

	assert.ErrorIs(t, suite.service.ConfirmTwoFactor(suite.ctx, user, "000000"), ErrInvalidTwoFactor)

	code, err := totp.GenerateCode(setup.Secret, suite.now)
	require.NoError(t, err)
	require.NoError(t, suite.service.ConfirmTwoFactor(suite.ctx, user, code))

	_, err = suite.service.Login(suite.ctx, LoginRequest{Email: "otp@commune.dev", Password: "password123"})
	assert.ErrorIs(t, err, ErrTwoFactorRequired)

	_, err = suite.service.Login(suite.ctx, LoginRequest{Email: "otp@commune.dev", Password: "password123", Code: "123"})
	assert.ErrorIs(t, err, ErrInvalidTwoFactor)

	_, err = suite.service.Login(suite.ctx, LoginRequest{Email: "otp@commune.dev", Password: "password123", Code: code})
	require.NoError(t, err)

	user, err = suite.users.GetUser(suite.ctx, resp.User.ID)
	require.NoError(t, err)
	require.NoError(t, suite.service.DisableTwoFactor(suite.ctx, user, code))

	stored, err := suite.users.GetUser(suite.ctx, resp.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.TwoFactorEnabled)
	assert.Nil(t, stored.TwoFactorSecret)
}

func (suite *AuthServiceTestSuite) TestConfirmWithoutSetup() {
	user := suite.register("nosetup@commune.dev", "nosetup").User
	err := suite.service.ConfirmTwoFactor(suite.ctx, &user, "123456")
	assert.ErrorIs(suite.T(), err, ErrTwoFactorNotPending)
}

func (suite *AuthServiceTestSuite) TestGoogleNotConfigured() {
	assert.Empty(suite.T(), suite.service.GoogleAuthURL("state"))
	_, err := suite.service.HandleGoogleCallback(suite.ctx, "code")
	assert.ErrorIs(suite.T(), err, ErrOAuthNotConfigured)
}

func (suite *AuthServiceTestSuite) TestGoogleCallback() {
	t := suite.T()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "access",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "/userinfo":
			assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(GoogleUserInfo{
				Sub: "sub-1", Email: "Ada@Example.com", Name: "Ada Lovelace", Picture: "https://img/ada.png",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	suite.service.google = &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	suite.service.googleUserInfo = srv.URL + "/userinfo"

	assert.Contains(t, suite.service.GoogleAuthURL("xyz"), "state=xyz")

	// An existing "adalovelace" forces a suffixed username.
	suite.register("someone@commune.dev", "adalovelace")

	resp, err := suite.service.HandleGoogleCallback(suite.ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, "adalovelace1", resp.User.Username)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	require.NotNil(t, resp.User.GoogleID)
	assert.Equal(t, "sub-1", *resp.User.GoogleID)

	again, err := suite.service.HandleGoogleCallback(suite.ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, again.User.ID)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func TestUsernameFromName(t *testing.T) {
	assert.Equal(t, "adalovelace", usernameFromName("Ada Lovelace"))
	assert.Equal(t, "member", usernameFromName("!!"))
	assert.Equal(t, "memberjo", usernameFromName("Jo"))
	assert.Len(t, usernameFromName("An Extremely Long Display Name Indeed"), 20)
}
