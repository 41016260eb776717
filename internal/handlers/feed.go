package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/telemetry"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
)

// FeedPage is one page of posts.
type FeedPage struct {
	Kind    string     `json:"kind"`
	Posts   []PostView `json:"posts"`
	Total   int64      `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
	HasMore bool       `json:"has_more"`
}

// GetFeed returns a page of the global, following, community or hashtag feed
// GET /api/v1/feed?kind=global|following|community|hashtag
func (h *Handlers) GetFeed(c *gin.Context) {
	q := repository.FeedQuery{
		Kind:        c.DefaultQuery("kind", repository.FeedGlobal),
		CommunityID: c.Query("community_id"),
		Hashtag:     normalizeTag(c.Query("tag")),
	}
	if q.Kind == repository.FeedFollowing {
		userID, ok := util.GetUserIDFromContext(c)
		if !ok {
			return
		}
		q.ViewerID = userID
	}
	h.serveFeed(c, q)
}

// GetHashtagFeed lists posts carrying #tag
// GET /api/v1/hashtags/:tag/posts
func (h *Handlers) GetHashtagFeed(c *gin.Context) {
	h.serveFeed(c, repository.FeedQuery{Kind: repository.FeedHashtag, Hashtag: normalizeTag(c.Param("tag"))})
}

// GetCommunityFeed lists a community's posts
// GET /api/v1/communities/:id/posts
func (h *Handlers) GetCommunityFeed(c *gin.Context) {
	community, ok := h.lookupCommunity(c)
	if !ok {
		return
	}
	h.serveFeed(c, repository.FeedQuery{Kind: repository.FeedCommunity, CommunityID: community.ID})
}

// GetUserPosts lists one author's posts
// GET /api/v1/users/:id/posts
func (h *Handlers) GetUserPosts(c *gin.Context) {
	user, ok := h.lookupUser(c)
	if !ok {
		return
	}
	h.serveFeed(c, repository.FeedQuery{Kind: repository.FeedUser, AuthorID: user.ID})
}

func (h *Handlers) serveFeed(c *gin.Context, q repository.FeedQuery) {
	q.Limit, q.Offset = util.ParsePagination(c)
	ctx, span := telemetry.TraceFeed(c.Request.Context(), q.Kind, q.Limit, q.Offset)
	var err error
	defer func() { telemetry.End(span, err) }()

	// Only the global feed is viewer independent, so only it is cached.
	cacheable := q.Kind == repository.FeedGlobal
	cacheKey := fmt.Sprintf("global:%d:%d", q.Limit, q.Offset)
	if cacheable {
		var page FeedPage
		if h.feedCache.Get(ctx, cacheKey, &page) {
			c.JSON(http.StatusOK, page)
			return
		}
	}

	posts, total, err := h.store.Posts().ListFeed(ctx, q)
	if err != nil {
		respondError(c, err, "post")
		return
	}

	page := FeedPage{
		Kind:    q.Kind,
		Posts:   h.viewPosts(ctx, posts),
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
		HasMore: int64(q.Offset+len(posts)) < total,
	}
	if cacheable {
		h.feedCache.Set(ctx, cacheKey, page)
	}
	c.JSON(http.StatusOK, page)
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}
