package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (suite *HandlersTestSuite) TestProfileVisibility() {
	alice := suite.register("alice")
	bob := suite.register("bob")

	w, _ := suite.do(http.MethodPut, "/api/v1/users/me", alice.token, gin.H{"bio": "growing tomatoes", "is_private": true})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w, body := suite.do(http.MethodGet, "/api/v1/users/@alice", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	user := body["user"].(map[string]interface{})
	suite.Equal(alice.user.ID, user["id"])
	suite.Empty(user["bio"], "private bio is hidden from non-followers")
	suite.Nil(user["email"])

	w, _ = suite.do(http.MethodPost, "/api/v1/users/"+alice.user.ID+"/follow", bob.token, nil)
	suite.Require().Less(w.Code, 300, w.Body.String())

	_, body = suite.do(http.MethodGet, "/api/v1/users/"+alice.user.ID, bob.token, nil)
	suite.Equal(true, body["is_following"])
	suite.Equal("growing tomatoes", body["user"].(map[string]interface{})["bio"])

	_, body = suite.do(http.MethodGet, "/api/v1/users/alice", alice.token, nil)
	suite.Equal("alice@example.com", body["user"].(map[string]interface{})["email"])

	w, _ = suite.do(http.MethodGet, "/api/v1/users/nobody", bob.token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestSettings() {
	alice := suite.register("alice")

	w, body := suite.do(http.MethodPut, "/api/v1/users/me/settings", alice.token, gin.H{
		"locale":           "fr",
		"notify_reactions": false,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("fr", body["locale"])
	suite.Equal(false, body["notify_reactions"])

	_, body = suite.do(http.MethodGet, "/api/v1/users/me/settings", alice.token, nil)
	suite.Equal("fr", body["locale"])
	suite.Equal(false, body["notify_reactions"])

	w, body = suite.do(http.MethodPut, "/api/v1/users/me/settings", alice.token, gin.H{"locale": "tlh"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal("locale", body["field"])
}

func (suite *HandlersTestSuite) TestAvatarWithoutStorage() {
	alice := suite.register("alice")
	w, _ := suite.do(http.MethodPost, "/api/v1/users/me/avatar", alice.token, nil)
	suite.Equal(http.StatusServiceUnavailable, w.Code)
}
