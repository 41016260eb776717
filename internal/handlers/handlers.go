// Package handlers implements the Commune REST API on top of the injected
// collaborators: the relational store, the authenticator, the realtime feed,
// media storage, email and search.
package handlers

import (
	"context"
	"time"

	"github.com/communehq/commune/internal/auth"
	"github.com/communehq/commune/internal/cache"
	"github.com/communehq/commune/internal/email"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/realtime"
	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/search"
	"github.com/communehq/commune/internal/storage"
	"go.uber.org/zap"
)

// DefaultCommentEditWindow is how long an author may edit a comment.
const DefaultCommentEditWindow = 15 * time.Minute

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	store repository.Store
	auth  auth.Authenticator

	realtime  realtime.Feed
	media     storage.MediaStore
	email     email.Sender
	searcher  search.Searcher
	indexer   search.Indexer
	feedCache *cache.PageCache

	editWindow time.Duration
	now        func() time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(store repository.Store, authenticator auth.Authenticator) *Handlers {
	return &Handlers{
		store:      store,
		auth:       authenticator,
		editWindow: DefaultCommentEditWindow,
		now:        time.Now,
	}
}

// SetRealtimeFeed sets the feed that change events are published on
func (h *Handlers) SetRealtimeFeed(feed realtime.Feed) {
	h.realtime = feed
}

// SetMediaStore sets the object storage used for avatars and post media
func (h *Handlers) SetMediaStore(media storage.MediaStore) {
	h.media = media
}

// SetEmailSender sets the sender for complaint acknowledgements
func (h *Handlers) SetEmailSender(sender email.Sender) {
	h.email = sender
}

// SetSearch sets the full-text search backend. Without one, search falls
// back to SQL LIKE queries.
func (h *Handlers) SetSearch(searcher search.Searcher, indexer search.Indexer) {
	h.searcher = searcher
	h.indexer = indexer
}

// SetFeedCache sets the Redis cache for global feed pages
func (h *Handlers) SetFeedCache(pages *cache.PageCache) {
	h.feedCache = pages
}

// SetCommentEditWindow overrides DefaultCommentEditWindow
func (h *Handlers) SetCommentEditWindow(d time.Duration) {
	if d > 0 {
		h.editWindow = d
	}
}

// SetClock replaces time.Now, for tests
func (h *Handlers) SetClock(now func() time.Time) {
	h.now = now
}

// publish sends a change event. Delivery is best effort: the write it
// describes has already committed.
func (h *Handlers) publish(ctx context.Context, table, changeType string, record interface{}, audience string) {
	if h.realtime == nil {
		return
	}
	event, err := realtime.NewEvent(table, changeType, record)
	if err != nil {
		logger.WarnWithFields("Failed to encode change event", err)
		return
	}
	event.Audience = audience
	if err := h.realtime.Publish(ctx, event); err != nil {
		logger.Log.Warn("Failed to publish change event",
			zap.String("table", table),
			zap.String("type", changeType),
			zap.Error(err),
		)
	}
}

// invalidateFeeds drops cached feed pages after a post changes.
func (h *Handlers) invalidateFeeds(ctx context.Context) {
	h.feedCache.Invalidate(ctx)
	if cs, ok := h.searcher.(*search.CachedSearcher); ok {
		cs.Invalidate(ctx)
	}
}
