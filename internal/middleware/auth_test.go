package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/communehq/commune/internal/auth"
	"github.com/communehq/commune/internal/database"
	"github.com/communehq/commune/internal/i18n"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type AuthMiddlewareTestSuite struct {
	suite.Suite
	db      *gorm.DB
	users   repository.UserRepository
	service *auth.Service
	router  *gin.Engine
	token   string
}

func (suite *AuthMiddlewareTestSuite) SetupTest() {
	logger.InitNop()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenTest()
	require.NoError(suite.T(), err)
	suite.db = db
	suite.users = repository.NewUserRepository(db)
	suite.service = auth.NewService(suite.users, auth.Options{JWTSecret: []byte("middleware-secret")})

	resp, err := suite.service.Register(context.Background(), auth.RegisterRequest{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "password123",
		Locale:   "fr",
	})
	require.NoError(suite.T(), err)
	suite.token = resp.Token

	tr, err := i18n.New("en")
	require.NoError(suite.T(), err)

	router := gin.New()
	router.Use(Locale(tr))
	whoami := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": util.OptionalUserID(c),
			"locale":  util.GetLocale(c).String(),
		})
	}
	router.GET("/private", RequireAuth(suite.service), whoami)
	router.GET("/public", OptionalAuth(suite.service), whoami)
	router.GET("/admin", RequireAuth(suite.service), RequireAdmin(), whoami)
	suite.router = router
}

func (suite *AuthMiddlewareTestSuite) TearDownTest() {
	_ = database.Close(suite.db)
}

func (suite *AuthMiddlewareTestSuite) do(path, token string, header map[string]string) (*httptest.ResponseRecorder, map[string]string) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	body := map[string]string{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func (suite *AuthMiddlewareTestSuite) TestRequireAuthRejectsMissingToken() {
	w, body := suite.do("/private", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "UNAUTHORIZED", body["code"])
}

func (suite *AuthMiddlewareTestSuite) TestRequireAuthRejectsBadToken() {
	w, body := suite.do("/private", "not-a-jwt", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "invalid or expired token", body["message"])
}

func (suite *AuthMiddlewareTestSuite) TestRequireAuthUsesAccountLocale() {
	w, body := suite.do("/private", suite.token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.NotEmpty(suite.T(), body["user_id"])
	assert.Equal(suite.T(), "fr", body["locale"])
}

func (suite *AuthMiddlewareTestSuite) TestExplicitLanguageWinsOverAccount() {
	_, body := suite.do("/private", suite.token, map[string]string{"Accept-Language": "es-MX,es;q=0.9"})
	assert.Equal(suite.T(), "es", body["locale"])
}

func (suite *AuthMiddlewareTestSuite) TestTokenQueryParameter() {
	w, body := suite.do("/private?token="+suite.token, "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.NotEmpty(suite.T(), body["user_id"])
}

func (suite *AuthMiddlewareTestSuite) TestOptionalAuth() {
	w, body := suite.do("/public", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Empty(suite.T(), body["user_id"])
	assert.Equal(suite.T(), "en", body["locale"])

	_, body = suite.do("/public", "garbage", nil)
	assert.Empty(suite.T(), body["user_id"])

	_, body = suite.do("/public", suite.token, nil)
	assert.NotEmpty(suite.T(), body["user_id"])
}

func (suite *AuthMiddlewareTestSuite) TestRequireAdmin() {
	w, body := suite.do("/admin", suite.token, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	// Error messages follow the caller's language.
	assert.Equal(suite.T(), "FORBIDDEN", body["code"])

	user, err := suite.users.GetUserByEmail(context.Background(), "ada@example.com")
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_admin", true).Error)

	w, _ = suite.do("/admin", suite.token, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func TestAuthMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareTestSuite))
}
