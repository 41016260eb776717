package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/communehq/commune/internal/apiclient"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/realtime/wire"
	"github.com/communehq/commune/internal/scrollsync"
	"github.com/communehq/commune/internal/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeAPI struct {
	posts       []apiclient.Post
	comments    map[string][]models.Comment
	communities []models.Community
	notes       *apiclient.NotificationPage
	events      []models.Event
	donations   *apiclient.DonationPage
	navErr      error

	calls map[string]int
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{
		comments: map[string][]models.Comment{},
		notes:    &apiclient.NotificationPage{},
		calls:    map[string]int{},
	}
	for i := 0; i < 30; i++ {
		f.posts = append(f.posts, apiclient.Post{Post: models.Post{
			ID:        fmt.Sprintf("post-%d", i),
			Content:   fmt.Sprintf("post number %d", i),
			User:      &models.User{Username: "alice"},
			CreatedAt: testNow.Add(-time.Hour),
		}})
	}
	for i := 0; i < 60; i++ {
		f.communities = append(f.communities, models.Community{
			Slug: fmt.Sprintf("club-%d", i),
			Name: fmt.Sprintf("Club %d", i),
		})
	}
	return f
}

func (f *fakeAPI) Feed(ctx context.Context, q apiclient.FeedQuery) (*apiclient.FeedPage, error) {
	f.calls["feed"]++
	return &apiclient.FeedPage{Posts: f.posts, Total: int64(len(f.posts))}, nil
}

func (f *fakeAPI) CommentTree(ctx context.Context, postID string) ([]*thread.Node, error) {
	f.calls["thread"]++
	return thread.BuildTree(f.comments[postID]), nil
}

func (f *fakeAPI) MyCommunities(ctx context.Context) ([]models.Community, error) {
	f.calls["communities"]++
	if f.navErr != nil {
		return nil, f.navErr
	}
	return f.communities, nil
}

func (f *fakeAPI) Notifications(ctx context.Context, limit int) (*apiclient.NotificationPage, error) {
	f.calls["notifications"]++
	return f.notes, nil
}

func (f *fakeAPI) UpcomingEvents(ctx context.Context) ([]models.Event, error) {
	f.calls["events"]++
	return f.events, nil
}

func (f *fakeAPI) Donations(ctx context.Context, community string) (*apiclient.DonationPage, error) {
	f.calls["donations:"+community]++
	return f.donations, nil
}

func (f *fakeAPI) Subscribe(ctx context.Context, tables ...string) (<-chan wire.Event, error) {
	return nil, errors.New("not used")
}

type heldTimer struct{}

func (heldTimer) Stop() bool { return true }

// newTestModel builds a sized model whose scroll guard only drops when the
// returned release func is called.
func newTestModel(t *testing.T, api API) (model, func()) {
	t.Helper()
	var pending func()
	m := newModel(context.Background(), api, Options{})
	m.now = func() time.Time { return testNow }
	m.sync = scrollsync.New(scrollsync.WithAfterFunc(func(_ time.Duration, fn func()) scrollsync.Timer {
		pending = fn
		return heldTimer{}
	}))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(model), func() {
		if pending != nil {
			pending()
		}
	}
}

// drain runs cmd and feeds every resulting message back into the model.
func drain(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = drain(t, m, c)
		}
		return m
	}
	next, cmd := m.Update(msg)
	return drain(t, next.(model), cmd)
}

func press(t *testing.T, m model, k tea.KeyMsg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func text(p *Pane) string {
	return strings.Join(p.Lines(), "\n")
}

func loaded(t *testing.T, api *fakeAPI) (model, func()) {
	t.Helper()
	m, release := newTestModel(t, api)
	m = drain(t, m, m.Init())
	require.Zero(t, m.loading)
	return m, release
}

func TestInitialLoadFillsPanesAndAttaches(t *testing.T) {
	api := newFakeAPI()
	api.events = []models.Event{{Title: "Seed swap", Location: "Library", StartsAt: testNow.Add(48 * time.Hour), GoingCount: 4}}
	api.donations = &apiclient.DonationPage{
		Donations: []models.Donation{{AmountCents: 2500, Currency: "USD", Message: "for soil"}},
		Totals:    apiclient.DonationTotals{Count: 1, ByCents: map[string]int64{"USD": 2500}},
	}

	m, _ := newTestModel(t, api)
	next, _ := m.Update(m.fetchNav()())
	m = next.(model)
	assert.Nil(t, m.detach, "content and aux still loading")

	m = drain(t, m, m.Init())
	assert.NotNil(t, m.detach)
	assert.Equal(t, 1, api.calls["donations:club-0"])

	assert.Contains(t, text(m.nav), "Club 0")
	assert.Contains(t, text(m.nav), "Nothing new.")
	assert.Contains(t, text(m.content), "post number 0")
	assert.Contains(t, text(m.aux), "Seed swap")
	assert.Contains(t, text(m.aux), "Total 25.00 USD")
	assert.Contains(t, text(m.aux), "for soil")
	assert.Contains(t, m.View(), "Feed")
}

func TestTabCyclesFocus(t *testing.T) {
	m, _ := loaded(t, newFakeAPI())
	require.Equal(t, focusContent, m.focus)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusAux, m.focus)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusNav, m.focus)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusContent, m.focus)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, focusNav, m.focus)
}

func expectedTop(src, dst *Pane) int {
	span := dst.ScrollHeight() - dst.ClientHeight()
	if span <= 0 {
		return 0
	}
	return int(math.Round(scrollsync.Fraction(src) * float64(span)))
}

func TestScrollingFocusedPaneMovesTheOthers(t *testing.T) {
	m, release := loaded(t, newFakeAPI())

	m, _ = press(t, m, runes("j"))
	assert.Equal(t, 1, m.content.ScrollTop())
	assert.Equal(t, expectedTop(m.content, m.nav), m.nav.ScrollTop())

	release()
	next, _ := m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	m = next.(model)
	assert.Equal(t, 4, m.content.ScrollTop())

	release()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusNav, m.focus)
	m.nav.SetScrollTop(0)
	assert.Equal(t, 0, m.content.ScrollTop(), "nav at the top pulls content to the top")

	release()
	for i := 0; i < 5; i++ {
		m, _ = press(t, m, runes("j"))
		release()
	}
	assert.Equal(t, 5, m.nav.ScrollTop())
	assert.Equal(t, expectedTop(m.nav, m.content), m.content.ScrollTop())
	assert.Greater(t, m.content.ScrollTop(), 0)
}

func TestMouseReleaseIsIgnored(t *testing.T) {
	m, _ := loaded(t, newFakeAPI())
	next, _ := m.Update(tea.MouseMsg{Action: tea.MouseActionRelease, Button: tea.MouseButtonWheelDown})
	assert.Equal(t, 0, next.(model).content.ScrollTop())
}

func TestEnterOpensSelectedPostThread(t *testing.T) {
	api := newFakeAPI()
	parent := "c1"
	api.comments["post-0"] = []models.Comment{
		{ID: "c1", PostID: "post-0", Content: "count me in", User: &models.User{Username: "bob"}, CreatedAt: testNow.Add(-30 * time.Minute)},
		{ID: "c2", PostID: "post-0", ParentID: &parent, Content: "me too", User: &models.User{Username: "eve"}, CreatedAt: testNow.Add(-20 * time.Minute)},
	}
	m, _ := loaded(t, api)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, m.openPost)
	assert.Equal(t, "post-0", m.openPost.ID)
	assert.Contains(t, text(m.content), "Loading comments")

	m = drain(t, m, cmd)
	body := text(m.content)
	assert.Contains(t, body, "post number 0")
	assert.Contains(t, body, "@bob")
	assert.Contains(t, body, "└ @eve")
	assert.Contains(t, body, "  me too")
	assert.Equal(t, "Comments (2)", m.content.Title())

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "enter inside a thread does nothing")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.openPost)
	assert.Equal(t, "Feed", m.content.Title())
	assert.Contains(t, text(m.content), "post number 29")
}

func TestEnterOnScrolledFeedOpensVisiblePost(t *testing.T) {
	m, _ := loaded(t, newFakeAPI())
	m.content.SetScrollTop(8)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, m.openPost)
	assert.Equal(t, "post-2", m.openPost.ID)
}

func TestEmptyThreadShowsPlaceholder(t *testing.T) {
	m, _ := loaded(t, newFakeAPI())
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(t, m, cmd)
	assert.Contains(t, text(m.content), emptyThread)
	assert.Equal(t, "Comments (0)", m.content.Title())
}

func TestStaleThreadResponseIsDropped(t *testing.T) {
	m, _ := loaded(t, newFakeAPI())
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msg := cmd()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	next, _ := m.Update(msg)
	m = next.(model)
	assert.Nil(t, m.openPost)
	assert.NotContains(t, text(m.content), emptyThread)
}

func TestRefreshReloadsEverything(t *testing.T) {
	api := newFakeAPI()
	m, _ := loaded(t, api)
	detach := m.detach

	m, cmd := press(t, m, runes("r"))
	assert.Equal(t, 2, m.loading)
	m = drain(t, m, cmd)

	assert.Zero(t, m.loading)
	assert.Equal(t, 2, api.calls["feed"])
	assert.Equal(t, 2, api.calls["communities"])
	assert.Equal(t, 2, api.calls["events"])
	assert.NotNil(t, detach)
	assert.Len(t, m.content.listeners, 1, "refresh does not attach twice")
}

func TestQuitDetachesScrollSync(t *testing.T) {
	m, _ := loaded(t, newFakeAPI())
	require.Len(t, m.nav.listeners, 1)

	m, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.nav.listeners)
	assert.Empty(t, m.content.listeners)
	assert.Empty(t, m.aux.listeners)
}

func TestNavFailureStillAttaches(t *testing.T) {
	api := newFakeAPI()
	api.navErr = errors.New("boom")
	m, _ := loaded(t, api)

	assert.EqualError(t, m.err, "boom")
	assert.NotNil(t, m.detach)
	assert.Contains(t, text(m.nav), "Could not load communities.")
	assert.Contains(t, text(m.aux), "Join a community")
	assert.Contains(t, m.View(), "boom")
}

func TestRealtimeCommentReloadsOpenThread(t *testing.T) {
	api := newFakeAPI()
	m, _ := loaded(t, api)
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(t, m, cmd)
	require.Equal(t, 1, api.calls["thread"])

	closed := make(chan wire.Event)
	close(closed)
	m.events = closed

	ev, err := wire.NewEvent(wire.TableComments, "INSERT", models.Comment{ID: "c9", PostID: "post-0"})
	require.NoError(t, err)
	next, cmd := m.Update(realtimeMsg{event: ev, ok: true})
	m = drain(t, next.(model), cmd)

	assert.Equal(t, 2, api.calls["thread"])
	assert.Nil(t, m.events, "closed stream is dropped")

	other, err := wire.NewEvent(wire.TableComments, "INSERT", models.Comment{ID: "c10", PostID: "post-5"})
	require.NoError(t, err)
	m.events = closed
	next, cmd = m.Update(realtimeMsg{event: other, ok: true})
	drain(t, next.(model), cmd)
	assert.Equal(t, 2, api.calls["thread"])
}
