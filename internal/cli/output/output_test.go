package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/communehq/commune/internal/apiclient"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/thread"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestPrinter(asJSON bool) (*Printer, *bytes.Buffer) {
	color.NoColor = true
	buf := &bytes.Buffer{}
	p := New(buf, asJSON)
	p.now = func() time.Time { return now }
	return p, buf
}

func strptr(s string) *string { return &s }

func comment(id string, parent *string, content string) models.Comment {
	return models.Comment{
		ID:        id,
		PostID:    "p1",
		ParentID:  parent,
		Content:   content,
		User:      &models.User{Username: id + "_user"},
		CreatedAt: now.Add(-5 * time.Minute),
	}
}

func TestThreadIndentsReplies(t *testing.T) {
	p, buf := newTestPrinter(false)
	roots := thread.BuildTree([]models.Comment{
		comment("a", nil, "root"),
		comment("b", strptr("a"), "first reply"),
		comment("c", strptr("b"), "nested"),
	})

	require.NoError(t, p.Thread(roots))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "@a_user: root"))
	assert.True(t, strings.HasPrefix(lines[1], "└ @b_user: first reply"))
	assert.True(t, strings.HasPrefix(lines[2], "  └ @c_user: nested"))
	assert.Contains(t, lines[2], "5m ago")
}

func TestThreadEmpty(t *testing.T) {
	p, buf := newTestPrinter(false)
	require.NoError(t, p.Thread(nil))
	assert.Equal(t, "No comments yet.\n", buf.String())
}

func TestThreadDeletedComment(t *testing.T) {
	p, buf := newTestPrinter(false)
	c := comment("a", nil, "gone")
	c.IsDeleted = true
	require.NoError(t, p.Thread(thread.BuildTree([]models.Comment{c})))
	assert.Equal(t, "[deleted]\n", buf.String())
}

func TestFeed(t *testing.T) {
	p, buf := newTestPrinter(false)
	page := &apiclient.FeedPage{
		Posts: []apiclient.Post{{Post: models.Post{
			ID:           "p1",
			Content:      "Tool library opens Saturday",
			User:         &models.User{Username: "alice", DisplayName: "Alice"},
			CommentCount: 3,
			Reactions:    map[string]int{"love": 1, "like": 2},
			CreatedAt:    now.Add(-2 * time.Hour),
		}}},
		Total:   5,
		Limit:   1,
		HasMore: true,
	}

	require.NoError(t, p.Feed(page))
	out := buf.String()
	assert.Contains(t, out, "Alice @alice")
	assert.Contains(t, out, "2h ago")
	assert.Contains(t, out, "Tool library opens Saturday")
	assert.Contains(t, out, "3 comments  like 2  love 1")
	assert.Contains(t, out, "Showing 1-1 of 5. Use --offset 1 for more.")
}

func TestFeedEmpty(t *testing.T) {
	p, buf := newTestPrinter(false)
	require.NoError(t, p.Feed(&apiclient.FeedPage{}))
	assert.Equal(t, "No posts yet.\n", buf.String())
}

func TestFeedJSON(t *testing.T) {
	p, buf := newTestPrinter(true)
	require.NoError(t, p.Feed(&apiclient.FeedPage{Total: 7}))
	assert.Contains(t, buf.String(), `"total": 7`)
}

func TestNotifications(t *testing.T) {
	p, buf := newTestPrinter(false)
	read := now
	page := &apiclient.NotificationPage{
		Unread: 1,
		Notifications: []models.Notification{
			{Type: models.NotificationFollow, Actor: &models.User{Username: "bob"}, CreatedAt: now},
			{Type: models.NotificationReaction, TargetType: "comment", ReadAt: &read, CreatedAt: now.Add(-48 * time.Hour)},
		},
	}

	require.NoError(t, p.Notifications(page))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1 unread", lines[0])
	assert.Equal(t, "• @bob started following you  just now", lines[1])
	assert.Equal(t, "  someone reacted to your comment  2d ago", lines[2])
}

func TestCommunities(t *testing.T) {
	p, buf := newTestPrinter(false)
	require.NoError(t, p.Communities([]models.Community{{Slug: "green-thumbs", Name: "Green Thumbs", MemberCount: 12}}))
	assert.Contains(t, buf.String(), "SLUG")
	assert.Contains(t, buf.String(), "green-thumbs")
	assert.Contains(t, buf.String(), "12")
}

func TestError(t *testing.T) {
	p, buf := newTestPrinter(false)
	p.Error(&apiclient.APIError{StatusCode: 422, Code: "VALIDATION_ERROR", Message: "parent not found", Field: "parent_id"})
	assert.Equal(t, "Error: parent not found (parent_id) [422 VALIDATION_ERROR]\n", buf.String())

	buf.Reset()
	p.Error(errors.New("dial tcp: refused"))
	assert.Equal(t, "Error: dial tcp: refused\n", buf.String())
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "just now", Ago(now, now.Add(-10*time.Second)))
	assert.Equal(t, "15m ago", Ago(now, now.Add(-15*time.Minute)))
	assert.Equal(t, "3d ago", Ago(now, now.Add(-72*time.Hour)))
	assert.Equal(t, "Jan 2, 2026", Ago(now, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
}

func TestReactions(t *testing.T) {
	assert.Equal(t, "", Reactions(nil))
	assert.Equal(t, "haha 1  like 4", Reactions(map[string]int{"like": 4, "haha": 1, "sad": 0}))
}
