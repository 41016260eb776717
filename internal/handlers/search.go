package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/metrics"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/search"
	"github.com/communehq/commune/internal/telemetry"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const minSearchLength = 2

func searchQuery(c *gin.Context) (search.Query, bool) {
	text := strings.TrimSpace(c.Query("q"))
	if len([]rune(text)) < minSearchLength {
		util.RespondValidationError(c, "q", "invalid input")
		return search.Query{}, false
	}
	limit, offset := util.ParsePagination(c)
	return search.Query{Text: text, Limit: limit, Offset: offset}, true
}

// SearchPosts runs a full-text post search. Without a search cluster, or
// when it fails, it falls back to a LIKE query on the database.
// GET /api/v1/search/posts?q=
func (h *Handlers) SearchPosts(c *gin.Context) {
	q, ok := searchQuery(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if h.searcher != nil {
		posts, total, err := h.searchPostsIndexed(ctx, q)
		if err == nil {
			h.respondPostResults(ctx, c, q, posts, total, "elasticsearch")
			return
		}
		logger.Log.Warn("Post search failed, falling back to database",
			zap.String("query", q.Text),
			zap.Error(err),
		)
	}

	posts, err := h.searchPostsSQL(ctx, q)
	if err != nil {
		respondError(c, err, "post")
		return
	}
	h.respondPostResults(ctx, c, q, posts, len(posts), "database")
}

func (h *Handlers) searchPostsIndexed(ctx context.Context, q search.Query) (posts []*models.Post, total int, err error) {
	ctx, span := telemetry.TraceSearch(ctx, "posts", "elasticsearch")
	defer func() { telemetry.End(span, err) }()

	res, err := h.searcher.SearchPosts(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	posts, err = h.store.Posts().GetPosts(ctx, res.IDs)
	if err != nil {
		return nil, 0, err
	}
	return posts, res.Total, nil
}

func (h *Handlers) searchPostsSQL(ctx context.Context, q search.Query) (posts []*models.Post, err error) {
	ctx, span := telemetry.TraceSearch(ctx, "posts", "database")
	defer func() { telemetry.End(span, err) }()
	metrics.Get().SearchRequests.WithLabelValues("database", "posts").Inc()

	return h.store.Posts().SearchPosts(ctx, q.Text, q.Limit, q.Offset)
}

func (h *Handlers) respondPostResults(ctx context.Context, c *gin.Context, q search.Query, posts []*models.Post, total int, backend string) {
	c.JSON(http.StatusOK, gin.H{
		"query":   q.Text,
		"posts":   h.viewPosts(ctx, posts),
		"total":   total,
		"limit":   q.Limit,
		"offset":  q.Offset,
		"backend": backend,
	})
}

// SearchCommunities searches community names, descriptions and tags
// GET /api/v1/search/communities?q=
func (h *Handlers) SearchCommunities(c *gin.Context) {
	q, ok := searchQuery(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if h.searcher != nil {
		communities, total, err := h.searchCommunitiesIndexed(ctx, q)
		if err == nil {
			respondCommunityResults(c, q, communities, total, "elasticsearch")
			return
		}
		logger.Log.Warn("Community search failed, falling back to database",
			zap.String("query", q.Text),
			zap.Error(err),
		)
	}

	ctx, span := telemetry.TraceSearch(ctx, "communities", "database")
	metrics.Get().SearchRequests.WithLabelValues("database", "communities").Inc()
	communities, err := h.store.Communities().SearchCommunities(ctx, q.Text, q.Limit, q.Offset)
	telemetry.End(span, err)
	if err != nil {
		respondError(c, err, "community")
		return
	}
	respondCommunityResults(c, q, communities, len(communities), "database")
}

func (h *Handlers) searchCommunitiesIndexed(ctx context.Context, q search.Query) (communities []*models.Community, total int, err error) {
	ctx, span := telemetry.TraceSearch(ctx, "communities", "elasticsearch")
	defer func() { telemetry.End(span, err) }()

	res, err := h.searcher.SearchCommunities(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	communities, err = h.store.Communities().GetCommunities(ctx, res.IDs)
	if err != nil {
		return nil, 0, err
	}
	return communities, res.Total, nil
}

func respondCommunityResults(c *gin.Context, q search.Query, communities []*models.Community, total int, backend string) {
	c.JSON(http.StatusOK, gin.H{
		"query":       q.Text,
		"communities": communities,
		"total":       total,
		"limit":       q.Limit,
		"offset":      q.Offset,
		"backend":     backend,
	})
}
