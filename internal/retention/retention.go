// Package retention periodically removes data nobody will look at again:
// stale notifications and the uploaded media of deleted posts.
package retention

import (
	"context"
	"sync"
	"time"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/metrics"
	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/storage"
	"go.uber.org/zap"
)

// Policy says how long things are kept.
type Policy struct {
	ReadNotifications   time.Duration
	UnreadNotifications time.Duration
	// MediaBatch caps how many deleted posts are cleaned per sweep.
	MediaBatch int
}

// DefaultPolicy keeps read notifications for 30 days and unread ones for 90.
func DefaultPolicy() Policy {
	return PolicyFor(30 * 24 * time.Hour)
}

// PolicyFor derives a policy from the read-notification retention.
func PolicyFor(read time.Duration) Policy {
	return Policy{
		ReadNotifications:   read,
		UnreadNotifications: 3 * read,
		MediaBatch:          100,
	}
}

// Report summarizes one sweep.
type Report struct {
	Notifications int64
	MediaDeleted  int
	MediaFailed   int
}

// Service runs Sweep on an interval.
type Service struct {
	store    repository.Store
	media    storage.MediaStore
	policy   Policy
	interval time.Duration
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a retention service. media may be nil when uploads are
// disabled; deleted-post media is then left alone.
func NewService(store repository.Store, media storage.MediaStore, policy Policy, interval time.Duration) *Service {
	return &Service{
		store:    store,
		media:    media,
		policy:   policy,
		interval: interval,
		now:      time.Now,
	}
}

// Start sweeps once immediately and then on every interval until Stop.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	logger.Log.Info("Starting retention sweeper", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sweepAndLog(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweepAndLog(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a running sweep to return.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Service) sweepAndLog(ctx context.Context) {
	start := time.Now()
	report, err := s.Sweep(ctx)
	if err != nil {
		logger.Log.Error("Retention sweep failed", zap.Error(err))
		return
	}
	logger.Log.Info("Retention sweep completed",
		zap.Int64("notifications", report.Notifications),
		zap.Int("media_deleted", report.MediaDeleted),
		zap.Int("media_failed", report.MediaFailed),
		zap.Duration("took", time.Since(start)),
	)
}

// Sweep runs one pass. Failing to delete a single object is logged and
// counted, not returned.
func (s *Service) Sweep(ctx context.Context) (Report, error) {
	var report Report
	now := s.now().UTC()

	n, err := s.store.Notifications().Prune(ctx,
		now.Add(-s.policy.ReadNotifications),
		now.Add(-s.policy.UnreadNotifications),
	)
	if err != nil {
		return report, err
	}
	report.Notifications = n
	metrics.Get().RetentionDeletedTotal.WithLabelValues("notification").Add(float64(n))

	if s.media == nil {
		return report, nil
	}
	posts, err := s.store.Posts().DeletedWithMedia(ctx, s.policy.MediaBatch)
	if err != nil {
		return report, err
	}
	for _, post := range posts {
		if err := s.media.Delete(ctx, post.MediaKey); err != nil {
			logger.Log.Warn("Failed to delete media of deleted post",
				zap.String("post_id", post.ID),
				zap.String("key", post.MediaKey),
				zap.Error(err),
			)
			report.MediaFailed++
			continue
		}
		if err := s.store.Posts().ClearMedia(ctx, post.ID); err != nil {
			return report, err
		}
		report.MediaDeleted++
	}
	metrics.Get().RetentionDeletedTotal.WithLabelValues("media").Add(float64(report.MediaDeleted))
	return report, nil
}
