package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/communehq/commune/internal/apiclient"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/realtime/wire"
	"github.com/communehq/commune/internal/thread"
)

const notificationLimit = 20

type navLoadedMsg struct {
	communities   []models.Community
	notifications *apiclient.NotificationPage
	err           error
}

type feedLoadedMsg struct {
	page *apiclient.FeedPage
	err  error
}

type threadLoadedMsg struct {
	post  apiclient.Post
	roots []*thread.Node
	err   error
}

type auxLoadedMsg struct {
	events    []models.Event
	community string
	donations *apiclient.DonationPage
	err       error
}

type subscribedMsg struct {
	events <-chan wire.Event
	err    error
}

type realtimeMsg struct {
	event wire.Event
	ok    bool
}

func (m model) fetchNav() tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		communities, err := api.MyCommunities(ctx)
		if err != nil {
			return navLoadedMsg{err: err}
		}
		notifications, err := api.Notifications(ctx, notificationLimit)
		return navLoadedMsg{communities: communities, notifications: notifications, err: err}
	}
}

func (m model) fetchFeed() tea.Cmd {
	api, ctx, size := m.api, m.ctx, m.feedSize
	return func() tea.Msg {
		page, err := api.Feed(ctx, apiclient.FeedQuery{Kind: "global", Limit: size})
		return feedLoadedMsg{page: page, err: err}
	}
}

func (m model) fetchThread(post apiclient.Post) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		roots, err := api.CommentTree(ctx, post.ID)
		return threadLoadedMsg{post: post, roots: roots, err: err}
	}
}

// fetchAux loads upcoming events and, when the user belongs to a community,
// that community's donations.
func (m model) fetchAux(community string) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		events, err := api.UpcomingEvents(ctx)
		if err != nil {
			return auxLoadedMsg{err: err}
		}
		msg := auxLoadedMsg{events: events, community: community}
		if community != "" {
			msg.donations, msg.err = api.Donations(ctx, community)
		}
		return msg
	}
}

func (m model) fetchContent() tea.Cmd {
	if m.openPost != nil {
		return m.fetchThread(*m.openPost)
	}
	return m.fetchFeed()
}

func (m model) subscribe() tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		events, err := api.Subscribe(ctx, wire.TableComments, wire.TableNotifications)
		return subscribedMsg{events: events, err: err}
	}
}

func waitForEvent(events <-chan wire.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		return realtimeMsg{event: e, ok: ok}
	}
}
