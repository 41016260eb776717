package tui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/communehq/commune/internal/apiclient"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/realtime/wire"
	"github.com/communehq/commune/internal/scrollsync"
	"github.com/communehq/commune/internal/thread"
)

type focusArea int

const (
	focusNav focusArea = iota
	focusContent
	focusAux
	focusCount
)

const (
	defaultFeedSize = 50
	wheelStep       = 3
)

type model struct {
	ctx      context.Context
	api      API
	log      *log.Logger
	now      func() time.Time
	sync     *scrollsync.Controller
	feedSize int
	live     bool

	nav     *Pane
	content *Pane
	aux     *Pane
	focus   focusArea
	help    help.Model

	posts    []apiclient.Post
	openPost *apiclient.Post
	roots    []*thread.Node

	navReady     bool
	contentReady bool
	auxReady     bool
	detach       scrollsync.DetachFunc

	events  <-chan wire.Event
	loading int
	err     error
	width   int
	height  int
}

func newModel(ctx context.Context, api API, opts Options) model {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	feedSize := opts.FeedSize
	if feedSize <= 0 {
		feedSize = defaultFeedSize
	}
	return model{
		ctx:      ctx,
		api:      api,
		log:      logger,
		now:      time.Now,
		sync:     scrollsync.New(scrollsync.WithGuardDelay(opts.GuardDelay)),
		feedSize: feedSize,
		live:     opts.Live,
		nav:      NewPane("Communities"),
		content:  NewPane("Feed"),
		aux:      NewPane("Events"),
		focus:    focusContent,
		help:     help.New(),
		loading:  2,
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.fetchNav(), m.fetchFeed()}
	if m.live {
		cmds = append(cmds, m.subscribe())
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case navLoadedMsg:
		return m.handleNavLoaded(msg)
	case feedLoadedMsg:
		return m.handleFeedLoaded(msg)
	case threadLoadedMsg:
		return m.handleThreadLoaded(msg)
	case auxLoadedMsg:
		return m.handleAuxLoaded(msg)
	case subscribedMsg:
		if msg.err != nil {
			m.log.Warn("Live updates unavailable", "err", msg.err)
			return m, nil
		}
		m.events = msg.events
		return m, waitForEvent(m.events)
	case realtimeMsg:
		return m.handleRealtime(msg)
	}
	return m, nil
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading…"
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.nav.View(m.focus == focusNav),
		m.content.View(m.focus == focusContent),
		m.aux.View(m.focus == focusAux),
	)
	return panes + "\n" + m.statusLine()
}

// layout gives the side panes a quarter of the width each and the content
// pane the rest. One row is kept for the status line.
func (m *model) layout() {
	side := m.width / 4
	middle := m.width - 2*side
	height := max(0, m.height-1)
	m.nav.SetSize(side, height)
	m.content.SetSize(middle, height)
	m.aux.SetSize(side, height)
	m.help.Width = m.width
}

func (m model) focused() *Pane {
	switch m.focus {
	case focusNav:
		return m.nav
	case focusAux:
		return m.aux
	default:
		return m.content
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.detachScroll()
		return m, tea.Quit
	case key.Matches(msg, keys.Focus):
		m.focus = (m.focus + 1) % focusCount
	case key.Matches(msg, keys.FocusBack):
		m.focus = (m.focus + focusCount - 1) % focusCount
	case key.Matches(msg, keys.Down):
		m.focused().Down()
	case key.Matches(msg, keys.Up):
		m.focused().Up()
	case key.Matches(msg, keys.Open):
		return m.openSelected()
	case key.Matches(msg, keys.Back):
		m.closeThread()
	case key.Matches(msg, keys.Refresh):
		m.err = nil
		m.loading += 2
		return m, tea.Batch(m.fetchNav(), m.fetchContent())
	}
	return m, nil
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.focused().ScrollBy(-wheelStep)
	case tea.MouseButtonWheelDown:
		m.focused().ScrollBy(wheelStep)
	}
	return m, nil
}

func (m model) openSelected() (tea.Model, tea.Cmd) {
	if m.openPost != nil {
		return m, nil
	}
	idx := m.content.Selected()
	if idx < 0 || idx >= len(m.posts) {
		return m, nil
	}
	post := m.posts[idx]
	m.openPost = &post
	m.roots = nil
	m.focus = focusContent
	m.content.SetTitle(fmt.Sprintf("Comments (%d)", post.CommentCount))
	m.content.SetContent([]string{statusStyle.Render("Loading comments…")}, nil)
	m.loading++
	return m, m.fetchThread(post)
}

func (m *model) closeThread() {
	if m.openPost == nil {
		return
	}
	m.openPost = nil
	m.roots = nil
	m.content.SetTitle("Feed")
	m.content.SetContent(feedLines(m.posts, m.now()))
}

func (m model) handleNavLoaded(msg navLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading--
	community := ""
	if msg.err != nil {
		m.err = msg.err
		m.log.Error("Failed to load communities", "err", msg.err)
		m.nav.SetContent([]string{errorStyle.Render("Could not load communities.")}, nil)
	} else {
		m.nav.SetContent(navLines(msg.communities, msg.notifications, m.now()), nil)
		if len(msg.communities) > 0 {
			community = msg.communities[0].Slug
		}
	}
	m.navReady = true
	m.maybeAttach()
	m.loading++
	return m, m.fetchAux(community)
}

func (m model) handleFeedLoaded(msg feedLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading--
	m.contentReady = true
	if msg.err != nil {
		m.err = msg.err
		m.log.Error("Failed to load feed", "err", msg.err)
		if m.openPost == nil && len(m.posts) == 0 {
			m.content.SetContent([]string{errorStyle.Render("Could not load the feed.")}, nil)
		}
	} else {
		m.posts = msg.page.Posts
		if m.openPost == nil {
			m.content.SetContent(feedLines(m.posts, m.now()))
		}
	}
	m.maybeAttach()
	return m, nil
}

func (m model) handleThreadLoaded(msg threadLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading--
	if m.openPost == nil || m.openPost.ID != msg.post.ID {
		return m, nil
	}
	if msg.err != nil {
		m.err = msg.err
		m.log.Error("Failed to load comments", "post", msg.post.ID, "err", msg.err)
		return m, nil
	}
	m.roots = msg.roots
	m.content.SetTitle(fmt.Sprintf("Comments (%d)", thread.Count(m.roots)))
	m.content.SetContent(threadLines(*m.openPost, m.roots, m.now()), nil)
	return m, nil
}

func (m model) handleAuxLoaded(msg auxLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading--
	if msg.err != nil {
		m.err = msg.err
		m.log.Error("Failed to load events", "err", msg.err)
		m.aux.SetContent([]string{errorStyle.Render("Could not load events.")}, nil)
	} else {
		m.aux.SetContent(auxLines(msg.events, msg.community, msg.donations), nil)
	}
	m.auxReady = true
	m.maybeAttach()
	return m, nil
}

func (m model) handleRealtime(msg realtimeMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		m.events = nil
		return m, nil
	}
	next := waitForEvent(m.events)
	switch msg.event.Table {
	case wire.TableComments:
		var c models.Comment
		if err := msg.event.Decode(&c); err != nil {
			m.log.Warn("Bad comment event", "err", err)
			return m, next
		}
		if m.openPost != nil && m.openPost.ID == c.PostID {
			m.loading++
			return m, tea.Batch(next, m.fetchThread(*m.openPost))
		}
		if m.openPost == nil {
			m.loading++
			return m, tea.Batch(next, m.fetchFeed())
		}
	case wire.TableNotifications:
		m.loading++
		return m, tea.Batch(next, m.fetchNav())
	}
	return m, next
}

// maybeAttach wires the scroll sync once all three panes have content.
func (m *model) maybeAttach() {
	if m.detach != nil || !m.navReady || !m.contentReady || !m.auxReady {
		return
	}
	m.detach = m.sync.Attach(scrollsync.Panes{
		Primary:   m.content,
		Secondary: m.nav,
		Tertiary:  m.aux,
	})
	m.log.Debug("Scroll sync attached")
}

func (m model) detachScroll() {
	if m.detach != nil {
		m.detach()
	}
}
