package handlers

import (
	"net/http"
	"time"

	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/realtime"
	"github.com/gin-gonic/gin"
)

func (suite *HandlersTestSuite) TestCreateCommentPublishesInsert() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	postID := suite.createPost(alice, "hello #garden")

	events := suite.subscribe(bob.user.ID, realtime.TableComments)
	commentID := suite.createComment(bob, postID, "  first!  ", "")

	e := suite.nextEvent(events)
	suite.Equal(realtime.TableComments, e.Table)
	suite.Equal(realtime.Insert, e.Type)

	var got models.Comment
	suite.Require().NoError(e.Decode(&got))
	suite.Equal(commentID, got.ID)
	suite.Equal(postID, got.PostID)
	suite.Equal("first!", got.Content)
	suite.Nil(got.ParentID)
}

func (suite *HandlersTestSuite) TestCreateCommentValidation() {
	alice := suite.register("alice")
	postID := suite.createPost(alice, "one")
	otherPostID := suite.createPost(alice, "two")
	foreign := suite.createComment(alice, otherPostID, "elsewhere", "")

	w, body := suite.do(http.MethodPost, "/api/v1/posts/"+postID+"/comments", alice.token, gin.H{
		"content":   "reply",
		"parent_id": foreign,
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal("parent_id", body["field"])

	w, _ = suite.do(http.MethodPost, "/api/v1/posts/"+postID+"/comments", alice.token, gin.H{
		"content":   "reply",
		"parent_id": "missing",
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	w, _ = suite.do(http.MethodPost, "/api/v1/posts/"+postID+"/comments", alice.token, gin.H{"content": "   "})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	w, _ = suite.do(http.MethodPost, "/api/v1/posts/"+postID+"/comments", alice.token, gin.H{})
	suite.Equal(http.StatusBadRequest, w.Code)

	w, _ = suite.do(http.MethodPost, "/api/v1/posts/nope/comments", alice.token, gin.H{"content": "hi"})
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestCreateCommentParentLookupFailure() {
	alice := suite.register("alice")
	postID := suite.createPost(alice, "one")
	suite.Require().NoError(suite.db.Migrator().DropTable(&models.Comment{}))

	w, body := suite.do(http.MethodPost, "/api/v1/posts/"+postID+"/comments", alice.token, gin.H{
		"content":   "reply",
		"parent_id": "any",
	})
	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.Empty(body["field"])
}

func (suite *HandlersTestSuite) TestCommentsFlatAndTree() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	postID := suite.createPost(alice, "thread")

	root := suite.createComment(alice, postID, "root", "")
	reply := suite.createComment(bob, postID, "reply", root)
	deep := suite.createComment(alice, postID, "deeper", reply)
	suite.createComment(bob, postID, "second root", "")

	w, body := suite.do(http.MethodGet, "/api/v1/posts/"+postID+"/comments", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(ViewFlat, body["view"])
	suite.EqualValues(4, body["count"])
	suite.Len(body["comments"], 4)

	w, body = suite.do(http.MethodGet, "/api/v1/posts/"+postID+"/comments?view=tree", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(4, body["count"])
	roots := body["comments"].([]interface{})
	suite.Require().Len(roots, 2)

	first := roots[0].(map[string]interface{})
	suite.Equal(root, first["id"])
	suite.EqualValues(0, first["depth"])
	replies := first["replies"].([]interface{})
	suite.Require().Len(replies, 1)
	second := replies[0].(map[string]interface{})
	suite.Equal(reply, second["id"])
	suite.EqualValues(1, second["depth"])
	third := second["replies"].([]interface{})[0].(map[string]interface{})
	suite.Equal(deep, third["id"])
	suite.EqualValues(2, third["depth"])

	w, _ = suite.do(http.MethodGet, "/api/v1/posts/"+postID+"/comments?view=nested", "", nil)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestUpdateCommentEditWindow() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	postID := suite.createPost(alice, "post")
	commentID := suite.createComment(alice, postID, "draft", "")
	path := "/api/v1/comments/" + commentID

	w, _ := suite.do(http.MethodPut, path, bob.token, gin.H{"content": "hijack"})
	suite.Equal(http.StatusForbidden, w.Code)

	events := suite.subscribe(alice.user.ID, realtime.TableComments)
	w, body := suite.do(http.MethodPut, path, alice.token, gin.H{"content": "final"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	comment := body["comment"].(map[string]interface{})
	suite.Equal("final", comment["content"])
	suite.Equal(true, comment["is_edited"])

	e := suite.nextEvent(events)
	suite.Equal(realtime.Update, e.Type)

	suite.h.SetClock(func() time.Time { return time.Now().Add(DefaultCommentEditWindow + time.Minute) })
	w, body = suite.do(http.MethodPut, path, alice.token, gin.H{"content": "too late"})
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("EDIT_WINDOW_CLOSED", body["code"])
}

func (suite *HandlersTestSuite) TestDeleteCommentSoftAndHard() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	postID := suite.createPost(alice, "post")
	parent := suite.createComment(alice, postID, "parent", "")
	child := suite.createComment(bob, postID, "child", parent)

	w, _ := suite.do(http.MethodDelete, "/api/v1/comments/"+parent, bob.token, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	events := suite.subscribe(alice.user.ID, realtime.TableComments)

	// A comment with replies is blanked in place.
	w, body := suite.do(http.MethodDelete, "/api/v1/comments/"+parent, alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("soft", body["mode"])

	e := suite.nextEvent(events)
	suite.Equal(realtime.Update, e.Type)
	var blanked models.Comment
	suite.Require().NoError(e.Decode(&blanked))
	suite.True(blanked.IsDeleted)
	suite.Equal(models.DeletedCommentContent, blanked.Content)

	// Edits to a blanked comment are refused.
	w, _ = suite.do(http.MethodPut, "/api/v1/comments/"+parent, alice.token, gin.H{"content": "back"})
	suite.Equal(http.StatusNotFound, w.Code)

	w, body = suite.do(http.MethodDelete, "/api/v1/comments/"+child, bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("hard", body["mode"])

	e = suite.nextEvent(events)
	suite.Equal(realtime.Delete, e.Type)
	var removed struct {
		ID       string  `json:"id"`
		PostID   string  `json:"post_id"`
		ParentID *string `json:"parent_id"`
	}
	suite.Require().NoError(e.Decode(&removed))
	suite.Equal(child, removed.ID)
	suite.Equal(postID, removed.PostID)
	suite.Require().NotNil(removed.ParentID)
	suite.Equal(parent, *removed.ParentID)

	w, _ = suite.do(http.MethodGet, "/api/v1/comments/"+child, "", nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w, body = suite.do(http.MethodGet, "/api/v1/posts/"+postID+"/comments?view=tree", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(1, body["count"])
}

func (suite *HandlersTestSuite) TestAdminCanDeleteAnyComment() {
	alice := suite.register("alice")
	mod := suite.register("moderator")
	suite.makeAdmin(mod)
	postID := suite.createPost(alice, "post")
	commentID := suite.createComment(alice, postID, "oops", "")

	w, body := suite.do(http.MethodDelete, "/api/v1/comments/"+commentID, mod.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("hard", body["mode"])
}

func (suite *HandlersTestSuite) TestCommentNotifiesAuthors() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	carol := suite.register("carol")
	postID := suite.createPost(alice, "post")

	aliceEvents := suite.subscribe(alice.user.ID, realtime.TableNotifications)
	root := suite.createComment(bob, postID, "hi alice", "")
	e := suite.nextEvent(aliceEvents)
	var n models.Notification
	suite.Require().NoError(e.Decode(&n))
	suite.Equal(models.NotificationComment, n.Type)
	suite.Equal(bob.user.ID, n.ActorID)

	suite.createComment(carol, postID, "hi bob", root)

	w, body := suite.do(http.MethodGet, "/api/v1/notifications", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	items := body["notifications"].([]interface{})
	suite.Require().Len(items, 1)
	suite.Equal(models.NotificationReply, items[0].(map[string]interface{})["type"])

	// Alice hears about the reply on her post too.
	w, body = suite.do(http.MethodGet, "/api/v1/notifications/unread-count", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(2, body["unread"])
}
