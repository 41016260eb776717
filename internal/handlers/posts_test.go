package handlers

import (
	"net/http"

	"github.com/communehq/commune/internal/metrics"
	"github.com/communehq/commune/internal/realtime"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func (suite *HandlersTestSuite) TestCreatePostSegmentsAndHashtags() {
	alice := suite.register("alice")

	w, body := suite.do(http.MethodPost, "/api/v1/posts", alice.token, gin.H{
		"content": "Seed swap at https://example.com with @bob #Garden",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	post := body["post"].(map[string]interface{})
	suite.Equal([]interface{}{"garden"}, post["hashtags"])

	kinds := map[string]bool{}
	for _, s := range post["segments"].([]interface{}) {
		kinds[s.(map[string]interface{})["kind"].(string)] = true
	}
	suite.True(kinds["text"])
	suite.True(kinds["url"])
	suite.True(kinds["mention"])
	suite.True(kinds["hashtag"])
}

func (suite *HandlersTestSuite) TestCreatePostRejectsForeignMedia() {
	alice := suite.register("alice")
	w, body := suite.do(http.MethodPost, "/api/v1/posts", alice.token, gin.H{
		"content":   "look",
		"media_key": "posts/someone-else/photo.png",
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal("media_key", body["field"])
}

func (suite *HandlersTestSuite) TestUpdateAndDeletePost() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	postID := suite.createPost(alice, "first draft")
	path := "/api/v1/posts/" + postID

	w, _ := suite.do(http.MethodPut, path, bob.token, gin.H{"content": "mine now"})
	suite.Equal(http.StatusForbidden, w.Code)

	w, body := suite.do(http.MethodPut, path, alice.token, gin.H{"content": "final #draft"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	post := body["post"].(map[string]interface{})
	suite.Equal("final #draft", post["content"])
	suite.Equal(true, post["is_edited"])

	w, _ = suite.do(http.MethodDelete, path, bob.token, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	events := suite.subscribe(alice.user.ID, realtime.TablePosts)
	w, _ = suite.do(http.MethodDelete, path, alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(realtime.Delete, suite.nextEvent(events).Type)

	w, _ = suite.do(http.MethodGet, path, "", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestFeeds() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	carol := suite.register("carol")

	suite.createPost(alice, "from alice #garden")
	suite.createPost(bob, "from bob")
	suite.createPost(carol, "from carol #garden")

	w, body := suite.do(http.MethodGet, "/api/v1/feed?limit=2", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(3, body["total"])
	suite.Len(body["posts"], 2)
	suite.Equal(true, body["has_more"])

	w, body = suite.do(http.MethodGet, "/api/v1/feed?limit=2&offset=2", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Len(body["posts"], 1)
	suite.Equal(false, body["has_more"])

	w, _ = suite.do(http.MethodPost, "/api/v1/users/bob/follow", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w, body = suite.do(http.MethodGet, "/api/v1/feed?kind=following", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	// The following feed is the viewer's own posts plus those they follow.
	posts := body["posts"].([]interface{})
	suite.Require().Len(posts, 2)
	for _, p := range posts {
		suite.NotEqual("from carol #garden", p.(map[string]interface{})["content"])
	}

	w, body = suite.do(http.MethodGet, "/api/v1/hashtags/%23Garden/posts", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(2, body["total"])

	w, body = suite.do(http.MethodGet, "/api/v1/users/carol/posts", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(1, body["total"])
}

func (suite *HandlersTestSuite) TestReactions() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	postID := suite.createPost(alice, "react to me")
	path := "/api/v1/posts/" + postID + "/reactions"

	w, _ := suite.do(http.MethodPut, path, bob.token, gin.H{"kind": "shrug"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	events := suite.subscribe(alice.user.ID, realtime.TableReactions)
	w, body := suite.do(http.MethodPut, path, bob.token, gin.H{"kind": "like"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.Equal(map[string]interface{}{"like": float64(1)}, body["reactions"])
	suite.Equal(realtime.Insert, suite.nextEvent(events).Type)

	// Re-reacting changes the kind instead of adding a second reaction.
	w, body = suite.do(http.MethodPut, path, bob.token, gin.H{"kind": "love"})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(map[string]interface{}{"love": float64(1)}, body["reactions"])
	suite.Equal(realtime.Update, suite.nextEvent(events).Type)

	suite.do(http.MethodPut, path, alice.token, gin.H{"kind": "love"})
	w, body = suite.do(http.MethodGet, path, "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(map[string]interface{}{"love": float64(2)}, body["reactions"])

	w, body = suite.do(http.MethodGet, "/api/v1/posts/"+postID, bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("love", body["post"].(map[string]interface{})["my_reaction"])

	w, body = suite.do(http.MethodDelete, path, bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(map[string]interface{}{"love": float64(1)}, body["reactions"])

	w, _ = suite.do(http.MethodDelete, path, bob.token, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	// Only bob's first reaction notified alice; her own did not.
	w, body = suite.do(http.MethodGet, "/api/v1/notifications/unread-count", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(1, body["unread"])
}

func (suite *HandlersTestSuite) TestCommentReactions() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	postID := suite.createPost(alice, "post")
	commentID := suite.createComment(alice, postID, "comment", "")

	w, _ := suite.do(http.MethodPut, "/api/v1/comments/"+commentID+"/reactions", bob.token, gin.H{"kind": "laugh"})
	suite.Require().Equal(http.StatusCreated, w.Code)

	w, body := suite.do(http.MethodGet, "/api/v1/posts/"+postID+"/comments", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	comment := body["comments"].([]interface{})[0].(map[string]interface{})
	suite.Equal(map[string]interface{}{"laugh": float64(1)}, comment["reactions"])

	w, _ = suite.do(http.MethodPut, "/api/v1/comments/missing/reactions", bob.token, gin.H{"kind": "laugh"})
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestPublishedChangeCountedOnce() {
	alice := suite.register("alice")
	counter := metrics.Get().RealtimeEventsTotal.WithLabelValues(realtime.TablePosts, realtime.Insert)
	before := testutil.ToFloat64(counter)

	suite.createPost(alice, "counted once")
	suite.Equal(before+1, testutil.ToFloat64(counter))
}
