package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/repository"
	"go.uber.org/zap"
)

const reindexBatch = 100

// Reindex bulk-loads every post and community from store. It returns the
// number of documents written.
func (c *Client) Reindex(ctx context.Context, store repository.Store) (int, error) {
	written := 0

	for offset := 0; ; offset += reindexBatch {
		posts, _, err := store.Posts().ListFeed(ctx, repository.FeedQuery{
			Kind:   repository.FeedGlobal,
			Limit:  reindexBatch,
			Offset: offset,
		})
		if err != nil {
			return written, fmt.Errorf("failed to load posts: %w", err)
		}
		if len(posts) == 0 {
			break
		}

		var buf bytes.Buffer
		for _, p := range posts {
			if err := writeBulkIndex(&buf, IndexPosts, p.ID, PostToDoc(p)); err != nil {
				return written, err
			}
		}
		if err := c.bulk(ctx, &buf); err != nil {
			return written, err
		}
		written += len(posts)

		if len(posts) < reindexBatch {
			break
		}
	}

	for offset := 0; ; offset += reindexBatch {
		communities, err := store.Communities().ListCommunities(ctx, "", reindexBatch, offset)
		if err != nil {
			return written, fmt.Errorf("failed to load communities: %w", err)
		}
		if len(communities) == 0 {
			break
		}

		var buf bytes.Buffer
		for _, community := range communities {
			if err := writeBulkIndex(&buf, IndexCommunities, community.ID, CommunityToDoc(community)); err != nil {
				return written, err
			}
		}
		if err := c.bulk(ctx, &buf); err != nil {
			return written, err
		}
		written += len(communities)

		if len(communities) < reindexBatch {
			break
		}
	}

	return written, nil
}

func writeBulkIndex(buf *bytes.Buffer, index, id string, doc interface{}) error {
	action := map[string]interface{}{
		"index": map[string]string{"_index": index, "_id": id},
	}
	enc := json.NewEncoder(buf)
	if err := enc.Encode(action); err != nil {
		return err
	}
	return enc.Encode(doc)
}

func (c *Client) bulk(ctx context.Context, body *bytes.Buffer) error {
	res, err := c.es.Bulk(bytes.NewReader(body.Bytes()), c.es.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if err := responseError("bulk indexing", res); err != nil {
		return err
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		return fmt.Errorf("bulk indexing reported item errors")
	}
	return nil
}

// Reconciler periodically reindexes the store so documents missed by
// best-effort handler writes converge.
type Reconciler struct {
	client   *Client
	store    repository.Store
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewReconciler creates a reconciler; Start begins the loop.
func NewReconciler(client *Client, store repository.Store, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Reconciler{client: client, store: store, interval: interval}
}

// Start begins the periodic reconciliation loop
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	logger.Log.Info("Starting search reconciliation", zap.Duration("interval", r.interval))
	go r.loop(ctx)
}

// Stop cancels the loop and waits for it to exit
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cancel()
	done := r.done
	r.mu.Unlock()

	<-done
}

func (r *Reconciler) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.client.Reindex(ctx, r.store)
			if err != nil {
				logger.Log.Warn("Search reconciliation failed", zap.Error(err), zap.Int("written", n))
				continue
			}
			logger.Log.Debug("Search reconciliation complete", zap.Int("documents", n))
		}
	}
}
