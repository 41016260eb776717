package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/metrics"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/realtime"
	"github.com/communehq/commune/internal/richtext"
	"github.com/communehq/commune/internal/search"
	"github.com/communehq/commune/internal/telemetry"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// PostView is a post as the API returns it: the row plus its rich text
// segments and reaction tallies.
type PostView struct {
	*models.Post
	Segments   []richtext.Segment `json:"segments"`
	MyReaction string             `json:"my_reaction,omitempty"`
}

// CreatePostRequest is the body of CreatePost
type CreatePostRequest struct {
	Content     string `json:"content" binding:"required,min=1,max=5000"`
	CommunityID string `json:"community_id"`
	MediaKey    string `json:"media_key"`
}

// CreatePost publishes a post to the caller's followers or a community
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req CreatePostRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, span := telemetry.StartSpan(c.Request.Context(), "post.create", attribute.String("user.id", userID))
	var err error
	defer func() { telemetry.End(span, err) }()

	post := &models.Post{
		UserID:   userID,
		Content:  strings.TrimSpace(req.Content),
		Hashtags: richtext.Hashtags(req.Content),
	}

	if req.CommunityID != "" {
		var member bool
		if _, err = h.store.Communities().GetCommunity(ctx, req.CommunityID); err != nil {
			respondError(c, err, "community")
			return
		}
		member, err = h.store.Communities().IsMember(ctx, req.CommunityID, userID)
		if err != nil {
			respondError(c, err, "community")
			return
		}
		if !member {
			util.RespondForbidden(c, "forbidden")
			return
		}
		post.CommunityID = &req.CommunityID
	}

	if req.MediaKey != "" {
		// Keys embed the uploader, so callers can only attach their own media.
		if !strings.HasPrefix(req.MediaKey, "posts/") || !strings.Contains(req.MediaKey, "/"+userID+"/") {
			util.RespondValidationError(c, "media_key", "invalid input")
			return
		}
		post.MediaKey = req.MediaKey
		if h.media != nil {
			post.MediaURL = h.media.URL(req.MediaKey)
		}
	}

	if err = h.store.Posts().CreatePost(ctx, post); err != nil {
		respondError(c, err, "post")
		return
	}
	created, err := h.store.Posts().GetPost(ctx, post.ID)
	if err != nil {
		respondError(c, err, "post")
		return
	}

	metrics.Get().PostsCreated.Inc()
	h.invalidateFeeds(ctx)
	h.indexPost(created)
	h.publish(ctx, realtime.TablePosts, realtime.Insert, created, "")

	logger.Log.Info("Post created", logger.WithUserID(userID), logger.WithPostID(created.ID))
	c.JSON(http.StatusCreated, gin.H{"post": viewPost(created, nil)})
}

// GetPost returns one post with its reactions
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.store.Posts().GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "post")
		return
	}
	views := h.viewPosts(ctx, []*models.Post{post})

	if viewerID := util.OptionalUserID(c); viewerID != "" {
		if r, err := h.store.Reactions().GetUserReaction(ctx, viewerID, models.TargetPost, post.ID); err == nil {
			views[0].MyReaction = r.Kind
		}
	}
	c.JSON(http.StatusOK, gin.H{"post": views[0]})
}

// UpdatePost edits the body of the caller's post
// PUT /api/v1/posts/:id
func (h *Handlers) UpdatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required,min=1,max=5000"`
	}
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	post, err := h.store.Posts().GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "post")
		return
	}
	if post.UserID != userID {
		respondError(c, errNotOwner, "post")
		return
	}

	content := strings.TrimSpace(req.Content)
	if err := h.store.Posts().UpdatePostContent(ctx, post.ID, content, richtext.Hashtags(content)); err != nil {
		respondError(c, err, "post")
		return
	}
	updated, err := h.store.Posts().GetPost(ctx, post.ID)
	if err != nil {
		respondError(c, err, "post")
		return
	}

	h.invalidateFeeds(ctx)
	h.indexPost(updated)
	h.publish(ctx, realtime.TablePosts, realtime.Update, updated, "")
	c.JSON(http.StatusOK, gin.H{"post": h.viewPosts(ctx, []*models.Post{updated})[0]})
}

// DeletePost removes the caller's post. Admins may delete any post.
// DELETE /api/v1/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	post, err := h.store.Posts().GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "post")
		return
	}
	if post.UserID != user.ID && !user.IsAdmin {
		respondError(c, errNotDeleter, "post")
		return
	}

	if err := h.store.Posts().DeletePost(ctx, post.ID); err != nil {
		respondError(c, err, "post")
		return
	}

	if post.MediaKey != "" && h.media != nil {
		if err := h.media.Delete(ctx, post.MediaKey); err != nil {
			logger.WarnWithFields("Failed to delete post media", err)
		}
	}
	if h.indexer != nil {
		if err := h.indexer.DeletePost(ctx, post.ID); err != nil {
			logger.WarnWithFields("Failed to remove post from search index", err)
		}
	}
	h.invalidateFeeds(ctx)
	h.publish(ctx, realtime.TablePosts, realtime.Delete, gin.H{"id": post.ID}, "")

	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": post.ID})
}

// indexPost syncs the post to the search index in the background.
func (h *Handlers) indexPost(post *models.Post) {
	if h.indexer == nil {
		return
	}
	doc := search.PostToDoc(post)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.indexer.IndexPost(ctx, doc); err != nil {
			logger.WarnWithFields("Failed to index post", err)
		}
	}()
}

func viewPost(p *models.Post, reactions map[string]int) PostView {
	if reactions != nil {
		p.Reactions = reactions
	}
	return PostView{Post: p, Segments: richtext.Parse(p.Content)}
}

// viewPosts attaches segments and reaction tallies.
func (h *Handlers) viewPosts(ctx context.Context, posts []*models.Post) []PostView {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	counts, err := h.store.Reactions().Counts(ctx, models.TargetPost, ids)
	if err != nil {
		logger.WarnWithFields("Failed to count post reactions", err)
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, viewPost(p, counts[p.ID]))
	}
	return views
}
