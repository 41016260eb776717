package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (suite *HandlersTestSuite) TestCommunityMembership() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	id := suite.createCommunity(alice, "Green Thumbs!")

	w, body := suite.do(http.MethodGet, "/api/v1/communities/green-thumbs", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	community := body["community"].(map[string]interface{})
	suite.Equal(id, community["id"])
	suite.Equal([]interface{}{"garden", "tools"}, community["tags"])
	suite.Equal(false, body["is_member"])

	w, _ = suite.do(http.MethodPost, "/api/v1/communities", bob.token, gin.H{"name": "Green Thumbs"})
	suite.Equal(http.StatusConflict, w.Code)

	w, _ = suite.do(http.MethodPost, "/api/v1/communities/"+id+"/join", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w, _ = suite.do(http.MethodPost, "/api/v1/communities/"+id+"/join", bob.token, nil)
	suite.Equal(http.StatusConflict, w.Code)

	w, body = suite.do(http.MethodGet, "/api/v1/communities/"+id+"/members", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Len(body["members"], 2)

	// Owners cannot abandon their community.
	w, _ = suite.do(http.MethodPost, "/api/v1/communities/"+id+"/leave", alice.token, nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w, _ = suite.do(http.MethodPost, "/api/v1/communities/"+id+"/leave", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w, body = suite.do(http.MethodGet, "/api/v1/communities?tag=%23Garden", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Len(body["communities"], 1)

	w, body = suite.do(http.MethodGet, "/api/v1/communities?tag=knitting", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Len(body["communities"], 0)
}

func (suite *HandlersTestSuite) TestCommunityPostsRequireMembership() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	id := suite.createCommunity(alice, "Makers")

	w, _ := suite.do(http.MethodPost, "/api/v1/posts", bob.token, gin.H{"content": "hi", "community_id": id})
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.do(http.MethodPost, "/api/v1/posts", alice.token, gin.H{"content": "welcome", "community_id": id})
	suite.Require().Equal(http.StatusCreated, w.Code)
	suite.createPost(alice, "outside")

	w, body := suite.do(http.MethodGet, "/api/v1/communities/makers/posts", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(1, body["total"])

	w, body = suite.do(http.MethodGet, "/api/v1/feed?kind=community&community_id="+id, "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(1, body["total"])
}

func (suite *HandlersTestSuite) TestEventsAndRSVP() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	id := suite.createCommunity(alice, "Cyclists")
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	w, _ := suite.do(http.MethodPost, "/api/v1/communities/"+id+"/events", bob.token, gin.H{
		"title":     "Night ride",
		"starts_at": start,
	})
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.do(http.MethodPost, "/api/v1/communities/"+id+"/events", alice.token, gin.H{
		"title":     "Night ride",
		"starts_at": start,
		"ends_at":   start.Add(-time.Hour),
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	w, body := suite.do(http.MethodPost, "/api/v1/communities/"+id+"/events", alice.token, gin.H{
		"title":     "Night ride",
		"location":  "Old bridge",
		"starts_at": start,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	eventID := body["event"].(map[string]interface{})["id"].(string)

	w, _ = suite.do(http.MethodPost, "/api/v1/events/"+eventID+"/rsvp", bob.token, gin.H{"status": "maybe"})
	suite.Equal(http.StatusBadRequest, w.Code)

	w, body = suite.do(http.MethodPost, "/api/v1/events/"+eventID+"/rsvp", bob.token, gin.H{"status": "going"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.EqualValues(1, body["event"].(map[string]interface{})["going_count"])

	w, body = suite.do(http.MethodPost, "/api/v1/events/"+eventID+"/rsvp", bob.token, gin.H{"status": "not_going"})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(0, body["event"].(map[string]interface{})["going_count"])

	w, body = suite.do(http.MethodGet, "/api/v1/communities/"+id+"/events", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Len(body["events"], 1)

	w, body = suite.do(http.MethodGet, "/api/v1/events", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Len(body["events"], 1)

	w, _ = suite.do(http.MethodPost, "/api/v1/events/missing/rsvp", bob.token, gin.H{"status": "going"})
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestServices() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	id := suite.createCommunity(alice, "Neighbours")

	w, _ := suite.do(http.MethodPost, "/api/v1/communities/"+id+"/services", bob.token, gin.H{"name": "Dog walking"})
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.do(http.MethodPost, "/api/v1/communities/"+id+"/services", alice.token, gin.H{
		"name":        "Bike repair",
		"description": "Saturdays",
		"contact":     "alice@example.com",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w, body := suite.do(http.MethodGet, "/api/v1/communities/"+id+"/services", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	services := body["services"].([]interface{})
	suite.Require().Len(services, 1)
	suite.Equal("Bike repair", services[0].(map[string]interface{})["name"])
}

func (suite *HandlersTestSuite) TestDonations() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	carol := suite.register("carol")
	id := suite.createCommunity(alice, "Library")
	path := "/api/v1/communities/" + id + "/donations"

	w, _ := suite.do(http.MethodPost, path, bob.token, gin.H{"amount_cents": 0})
	suite.Equal(http.StatusBadRequest, w.Code)
	w, _ = suite.do(http.MethodPost, path, bob.token, gin.H{"amount_cents": 500, "currency": "EURO"})
	suite.Equal(http.StatusBadRequest, w.Code)

	w, body := suite.do(http.MethodPost, path, bob.token, gin.H{"amount_cents": 500, "anonymous": true})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.Equal("USD", body["donation"].(map[string]interface{})["currency"])

	w, _ = suite.do(http.MethodPost, path, carol.token, gin.H{"amount_cents": 1500, "currency": "usd", "message": "for books"})
	suite.Require().Equal(http.StatusCreated, w.Code)
	w, _ = suite.do(http.MethodPost, path, carol.token, gin.H{"amount_cents": 700, "currency": "eur"})
	suite.Require().Equal(http.StatusCreated, w.Code)

	w, body = suite.do(http.MethodGet, path, alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	totals := body["totals"].(map[string]interface{})
	suite.EqualValues(3, totals["count"])
	suite.Equal(map[string]interface{}{"USD": float64(2000), "EUR": float64(700)}, totals["totals_cents"])

	for _, d := range body["donations"].([]interface{}) {
		donation := d.(map[string]interface{})
		if donation["anonymous"] == true {
			suite.Nil(donation["donor_id"])
		} else {
			suite.Equal(carol.user.ID, donation["donor_id"])
		}
	}

	// Anonymous donors still see their own pledge.
	w, body = suite.do(http.MethodGet, path, bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	found := false
	for _, d := range body["donations"].([]interface{}) {
		if d.(map[string]interface{})["donor_id"] == bob.user.ID {
			found = true
		}
	}
	suite.True(found)
}

func (suite *HandlersTestSuite) TestFollows() {
	alice := suite.register("alice")
	bob := suite.register("bob")

	w, _ := suite.do(http.MethodPost, "/api/v1/users/alice/follow", alice.token, nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w, _ = suite.do(http.MethodPost, "/api/v1/users/"+bob.user.ID+"/follow", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w, _ = suite.do(http.MethodPost, "/api/v1/users/bob/follow", alice.token, nil)
	suite.Equal(http.StatusConflict, w.Code)

	w, body := suite.do(http.MethodGet, "/api/v1/users/bob/is-following", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(true, body["following"])

	w, body = suite.do(http.MethodGet, "/api/v1/users/bob/followers", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	followers := body["users"].([]interface{})
	suite.Require().Len(followers, 1)
	follower := followers[0].(map[string]interface{})
	suite.Equal("alice", follower["username"])
	suite.Nil(follower["email"])

	w, body = suite.do(http.MethodGet, "/api/v1/notifications", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Len(body["notifications"], 1)

	w, body = suite.do(http.MethodPost, "/api/v1/notifications/read", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(1, body["marked"])

	w, _ = suite.do(http.MethodDelete, "/api/v1/users/bob/follow", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w, body = suite.do(http.MethodGet, "/api/v1/users/bob/is-following", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(false, body["following"])
}

func (suite *HandlersTestSuite) TestMutedNotifications() {
	alice := suite.register("alice")
	bob := suite.register("bob")

	w, _ := suite.do(http.MethodPut, "/api/v1/users/me/settings", bob.token, gin.H{"notify_follows": false})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w, _ = suite.do(http.MethodPost, "/api/v1/users/bob/follow", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w, body := suite.do(http.MethodGet, "/api/v1/notifications/unread-count", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(0, body["unread"])
}
