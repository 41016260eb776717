package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/communehq/commune/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSearcher struct {
	calls int
	err   error
}

func (s *countingSearcher) SearchPosts(ctx context.Context, q Query) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Result{IDs: []string{"p1"}, Total: 1}, nil
}

func (s *countingSearcher) SearchCommunities(ctx context.Context, q Query) (*Result, error) {
	s.calls++
	return &Result{IDs: []string{"c1"}, Total: 1}, nil
}

func newCached(t *testing.T, next Searcher) *CachedSearcher {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCachedSearcher(next, cache.NewPageCache(cache.Wrap(client), "search", time.Minute))
}

func TestCachedSearcherServesRepeats(t *testing.T) {
	next := &countingSearcher{}
	c := newCached(t, next)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := c.SearchPosts(ctx, Query{Text: "Garden ", Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, res.IDs)
	}
	_, err := c.SearchPosts(ctx, Query{Text: "garden", Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)

	_, err = c.SearchCommunities(ctx, Query{Text: "garden", Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)

	c.Invalidate(ctx)
	_, err = c.SearchPosts(ctx, Query{Text: "garden", Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 3, next.calls)
}

func TestCachedSearcherDoesNotCacheErrors(t *testing.T) {
	next := &countingSearcher{err: errors.New("down")}
	c := newCached(t, next)
	ctx := context.Background()

	_, err := c.SearchPosts(ctx, Query{Text: "x"})
	assert.Error(t, err)
	_, err = c.SearchPosts(ctx, Query{Text: "x"})
	assert.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedSearcherWithoutRedis(t *testing.T) {
	next := &countingSearcher{}
	c := NewCachedSearcher(next, nil)
	_, err := c.SearchPosts(context.Background(), Query{Text: "x"})
	require.NoError(t, err)
	_, err = c.SearchPosts(context.Background(), Query{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}
