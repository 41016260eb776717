package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/communehq/commune/internal/auth"
	"github.com/communehq/commune/internal/database"
	"github.com/communehq/commune/internal/handlers"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/realtime"
	"github.com/communehq/commune/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// ClientTestSuite runs the client against the real API served over HTTP.
type ClientTestSuite struct {
	suite.Suite
	db  *gorm.DB
	hub *realtime.Hub
	srv *httptest.Server
	ctx context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	logger.InitNop()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenTest()
	s.Require().NoError(err)
	s.db = db
	store := repository.NewStore(db)
	authService := auth.NewService(store.Users(), auth.Options{JWTSecret: []byte("client-secret")})

	s.hub = realtime.NewHub()
	go s.hub.Run()

	h := handlers.NewHandlers(store, authService)
	h.SetRealtimeFeed(s.hub)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"), handlers.RouteOptions{
		Realtime: realtime.NewHandler(s.hub, nil).Serve,
	})
	s.srv = httptest.NewServer(r)
	s.ctx = context.Background()
}

func (s *ClientTestSuite) TearDownTest() {
	s.srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.hub.Shutdown(ctx)
	_ = database.Close(s.db)
}

func (s *ClientTestSuite) newUser(username string) *Client {
	c := New(s.srv.URL, Options{})
	_, err := c.Register(s.ctx, username+"@example.com", username, "password123", username)
	s.Require().NoError(err)
	s.Require().NotEmpty(c.Token())
	return c
}

func (s *ClientTestSuite) TestLoginAndMe() {
	s.newUser("alice")

	c := New(s.srv.URL+"/", Options{})
	_, err := c.Me(s.ctx)
	s.True(IsUnauthorized(err))

	_, err = c.Login(s.ctx, "alice@example.com", "wrong-password", "")
	s.True(IsUnauthorized(err))

	resp, err := c.Login(s.ctx, "alice@example.com", "password123", "")
	s.Require().NoError(err)
	s.Equal("alice", resp.User.Username)

	me, err := c.Me(s.ctx)
	s.Require().NoError(err)
	s.Equal(resp.User.ID, me.ID)
}

func (s *ClientTestSuite) TestPostsCommentsAndReactions() {
	alice := s.newUser("alice")
	bob := s.newUser("bob")

	post, err := alice.CreatePost(s.ctx, "Swap meet on Sunday #garden", "")
	s.Require().NoError(err)
	s.Equal([]string{"garden"}, []string(post.Hashtags))
	s.NotEmpty(post.Segments)

	root, err := bob.CreateComment(s.ctx, post.ID, "count me in", "")
	s.Require().NoError(err)
	_, err = alice.CreateComment(s.ctx, post.ID, "great", root.ID)
	s.Require().NoError(err)

	tree, err := bob.CommentTree(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Require().Len(tree, 1)
	s.Equal(root.ID, tree[0].ID)
	s.Require().Len(tree[0].Replies, 1)
	s.Equal(1, tree[0].Replies[0].Depth)

	counts, err := bob.React(s.ctx, models.TargetPost, post.ID, "love")
	s.Require().NoError(err)
	s.Equal(map[string]int{"love": 1}, counts)

	_, err = bob.React(s.ctx, models.TargetComment, root.ID, "like")
	s.Require().NoError(err)

	counts, err = bob.Unreact(s.ctx, models.TargetPost, post.ID)
	s.Require().NoError(err)
	s.Empty(counts)

	_, err = bob.Unreact(s.ctx, models.TargetPost, post.ID)
	s.True(IsNotFound(err))

	feed, err := bob.Feed(s.ctx, FeedQuery{Kind: "hashtag", Hashtag: "#garden"})
	s.Require().NoError(err)
	s.EqualValues(1, feed.Total)
	s.Equal(2, feed.Posts[0].CommentCount)
}

func (s *ClientTestSuite) TestValidationErrorCarriesField() {
	alice := s.newUser("alice")
	post, err := alice.CreatePost(s.ctx, "hello", "")
	s.Require().NoError(err)

	_, err = alice.CreateComment(s.ctx, post.ID, "reply", "no-such-comment")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusUnprocessableEntity, apiErr.StatusCode)
	s.Equal("parent_id", apiErr.Field)
}

func (s *ClientTestSuite) TestFollowNotificationsAndComplaints() {
	alice := s.newUser("alice")
	bob := s.newUser("bob")

	s.Require().NoError(alice.Follow(s.ctx, "bob"))
	s.True(IsConflict(alice.Follow(s.ctx, "bob")))

	page, err := bob.Notifications(s.ctx, 10)
	s.Require().NoError(err)
	s.EqualValues(1, page.Unread)
	s.Equal(models.NotificationFollow, page.Notifications[0].Type)

	s.Require().NoError(alice.Unfollow(s.ctx, "bob"))

	post, err := alice.CreatePost(s.ctx, "buy my stuff", "")
	s.Require().NoError(err)
	complaint, err := bob.FileComplaint(s.ctx, Complaint{TargetType: "post", TargetID: post.ID, Reason: "spam"})
	s.Require().NoError(err)
	s.Equal(models.ComplaintOpen, complaint.Status)
}

func (s *ClientTestSuite) TestSubscribeReceivesComments() {
	alice := s.newUser("alice")
	bob := s.newUser("bob")
	post, err := alice.CreatePost(s.ctx, "live thread", "")
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	events, err := alice.Subscribe(ctx, realtime.TableComments)
	s.Require().NoError(err)
	s.Require().Eventually(func() bool { return s.hub.Stats().ActiveSubscribers == 1 }, time.Second, 5*time.Millisecond)

	created, err := bob.CreateComment(s.ctx, post.ID, "first", "")
	s.Require().NoError(err)

	select {
	case e := <-events:
		s.Equal(realtime.TableComments, e.Table)
		var got models.Comment
		s.Require().NoError(e.Decode(&got))
		s.Equal(created.ID, got.ID)
	case <-ctx.Done():
		s.Fail("no realtime event")
	}
}

func TestParseErrorFallsBackToBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, Options{Timeout: time.Second}).Me(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
}
