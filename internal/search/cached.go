package search

import (
	"context"
	"strconv"
	"strings"

	"github.com/communehq/commune/internal/cache"
)

// CachedSearcher serves repeated queries from a redis page cache. Writers
// call Invalidate after indexing so stale pages are never served past a
// mutation.
type CachedSearcher struct {
	next  Searcher
	pages *cache.PageCache
}

var _ Searcher = (*CachedSearcher)(nil)

// NewCachedSearcher wraps next. A nil pages cache disables caching.
func NewCachedSearcher(next Searcher, pages *cache.PageCache) *CachedSearcher {
	return &CachedSearcher{next: next, pages: pages}
}

func (c *CachedSearcher) SearchPosts(ctx context.Context, q Query) (*Result, error) {
	return c.cached(ctx, "posts", q, c.next.SearchPosts)
}

func (c *CachedSearcher) SearchCommunities(ctx context.Context, q Query) (*Result, error) {
	return c.cached(ctx, "communities", q, c.next.SearchCommunities)
}

// Invalidate drops every cached search page.
func (c *CachedSearcher) Invalidate(ctx context.Context) {
	c.pages.Invalidate(ctx)
}

func (c *CachedSearcher) cached(ctx context.Context, kind string, q Query, run func(context.Context, Query) (*Result, error)) (*Result, error) {
	key := cacheKey(kind, q)

	var hit Result
	if c.pages.Get(ctx, key, &hit) {
		return &hit, nil
	}

	res, err := run(ctx, q)
	if err != nil {
		return nil, err
	}
	c.pages.Set(ctx, key, res)
	return res, nil
}

func cacheKey(kind string, q Query) string {
	return kind + ":" + strconv.Itoa(q.Limit) + ":" + strconv.Itoa(q.Offset) + ":" + strings.ToLower(strings.TrimSpace(q.Text))
}
