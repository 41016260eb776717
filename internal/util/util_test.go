package util

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apierrors "github.com/communehq/commune/internal/errors"
	"github.com/communehq/commune/internal/i18n"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query         string
		limit, offset int
	}{
		{"", DefaultPageSize, 0},
		{"limit=5&offset=10", 5, 10},
		{"limit=0", DefaultPageSize, 0},
		{"limit=1000", MaxPageSize, 0},
		{"limit=abc&offset=-4", DefaultPageSize, 0},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)

		limit, offset := ParsePagination(c)
		assert.Equal(t, tt.limit, limit, tt.query)
		assert.Equal(t, tt.offset, offset, tt.query)
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseList(" a, ,b,"))
	assert.Empty(t, ParseList(""))
}

func TestRespondWithAPIErrorTranslates(t *testing.T) {
	tr, err := i18n.New("en")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(TranslatorKey, tr)
	c.Set(LocaleKey, language.Spanish)

	RespondWithAPIError(c, apierrors.NotFound("post"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.Equal(t, "publicación no encontrada", body.Message)
	assert.True(t, c.IsAborted())
}

func TestRespondInternalErrorHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondInternalError(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestGetUserIDFromContext(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := GetUserIDFromContext(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Set(UserIDKey, "u1")
	id, ok := GetUserIDFromContext(c2)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
	assert.Equal(t, "u1", OptionalUserID(c2))
}
