package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/communehq/commune/internal/database"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMedia struct {
	deleted []string
	fail    map[string]bool
}

func (f *fakeMedia) Upload(ctx context.Context, in storage.UploadInput) (*storage.UploadResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeMedia) Delete(ctx context.Context, key string) error {
	if f.fail[key] {
		return errors.New("access denied")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeMedia) URL(key string) string { return "https://cdn.test/" + key }

func setup(t *testing.T) (repository.Store, *models.User) {
	t.Helper()
	logger.InitNop()
	db, err := database.OpenTest()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	store := repository.NewStore(db)
	user := &models.User{Email: "alice@example.com", Username: "alice", DisplayName: "Alice"}
	require.NoError(t, store.Users().CreateUser(context.Background(), user))
	return store, user
}

func TestSweepPrunesNotifications(t *testing.T) {
	store, alice := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	readAt := now.Add(-20 * 24 * time.Hour)
	for _, n := range []*models.Notification{
		{CreatedAt: now.Add(-31 * 24 * time.Hour), ReadAt: &readAt},
		{CreatedAt: now.Add(-31 * 24 * time.Hour)},
		{CreatedAt: now.Add(-91 * 24 * time.Hour)},
	} {
		n.UserID, n.ActorID, n.Type = alice.ID, alice.ID, models.NotificationFollow
		require.NoError(t, store.Notifications().CreateNotification(ctx, n))
	}

	svc := NewService(store, nil, DefaultPolicy(), time.Hour)
	svc.now = func() time.Time { return now }

	report, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, report.Notifications)
	assert.Zero(t, report.MediaDeleted)

	left, err := store.Notifications().ListNotifications(ctx, alice.ID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Nil(t, left[0].ReadAt)
}

func TestSweepDeletesMediaOfDeletedPosts(t *testing.T) {
	store, alice := setup(t)
	ctx := context.Background()

	var ids []string
	for _, key := range []string{"images/ok.jpg", "images/locked.jpg", "images/live.jpg"} {
		p := &models.Post{UserID: alice.ID, Content: key, MediaKey: key}
		require.NoError(t, store.Posts().CreatePost(ctx, p))
		ids = append(ids, p.ID)
	}
	require.NoError(t, store.Posts().DeletePost(ctx, ids[0]))
	require.NoError(t, store.Posts().DeletePost(ctx, ids[1]))

	media := &fakeMedia{fail: map[string]bool{"images/locked.jpg": true}}
	svc := NewService(store, media, DefaultPolicy(), time.Hour)

	report, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.MediaDeleted)
	assert.Equal(t, 1, report.MediaFailed)
	assert.Equal(t, []string{"images/ok.jpg"}, media.deleted)

	pending, err := store.Posts().DeletedWithMedia(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[1], pending[0].ID, "failed deletes are retried next sweep")
}

func TestStartAndStop(t *testing.T) {
	store, _ := setup(t)
	svc := NewService(store, nil, PolicyFor(time.Hour), time.Millisecond)
	svc.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	svc.Stop()
	svc.Stop()
}

func TestPolicyFor(t *testing.T) {
	p := PolicyFor(24 * time.Hour)
	assert.Equal(t, 72*time.Hour, p.UnreadNotifications)
	assert.Equal(t, 100, p.MediaBatch)
}
