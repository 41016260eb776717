// Package tui is the full screen terminal client: communities and
// notifications on the left, the feed or a comment thread in the middle,
// events and donations on the right. The three columns scroll together.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/communehq/commune/internal/apiclient"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/realtime/wire"
	"github.com/communehq/commune/internal/thread"
)

// API is the part of the HTTP client the interface reads from.
type API interface {
	Feed(ctx context.Context, q apiclient.FeedQuery) (*apiclient.FeedPage, error)
	CommentTree(ctx context.Context, postID string) ([]*thread.Node, error)
	MyCommunities(ctx context.Context) ([]models.Community, error)
	Notifications(ctx context.Context, limit int) (*apiclient.NotificationPage, error)
	UpcomingEvents(ctx context.Context) ([]models.Event, error)
	Donations(ctx context.Context, community string) (*apiclient.DonationPage, error)
	Subscribe(ctx context.Context, tables ...string) (<-chan wire.Event, error)
}

var _ API = (*apiclient.Client)(nil)

// Options configures the interface.
type Options struct {
	// GuardDelay is passed to the scroll synchronizer.
	GuardDelay time.Duration
	// FeedSize is how many posts the content pane loads.
	FeedSize int
	// Live subscribes to comment and notification changes.
	Live   bool
	Logger *log.Logger
}

// Run starts the interface and blocks until the user quits.
func Run(ctx context.Context, api API, opts Options) error {
	p := tea.NewProgram(
		newModel(ctx, api, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if m, ok := final.(model); ok {
		m.detachScroll()
	}
	return err
}

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "250", Dark: "238"})

	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.AdaptiveColor{Light: "125", Dark: "205"})

	paneTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "246"})

	focusedTitleStyle = paneTitleStyle.
				Foreground(lipgloss.AdaptiveColor{Light: "125", Dark: "205"})

	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "125", Dark: "205"})
	authorStyle  = lipgloss.NewStyle().Bold(true)
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "246"})
	gutterStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "250", Dark: "240"})
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	unreadStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "33"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}).Bold(true)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "246"})
)

type keyMap struct {
	Focus     key.Binding
	FocusBack key.Binding
	Down      key.Binding
	Up        key.Binding
	Open      key.Binding
	Back      key.Binding
	Refresh   key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Focus, k.Down, k.Up, k.Open, k.Back, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
	FocusBack: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous pane")),
	Down:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
	Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
	Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "comments")),
	Back:      key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "feed")),
	Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
