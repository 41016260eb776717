package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/communehq/commune/internal/scrollsync"
)

var _ scrollsync.Pane = (*Pane)(nil)

// Pane is a titled, scrollable column. Its content is a list of lines;
// items mark the first line of each selectable entry. The cursor always
// points at an entry that starts inside the viewport when one does.
type Pane struct {
	title  string
	vp     viewport.Model
	lines  []string
	items  []int
	cursor int

	listeners map[int]func()
	nextID    int
}

// NewPane creates an empty pane.
func NewPane(title string) *Pane {
	return &Pane{
		title:     title,
		vp:        viewport.New(0, 0),
		listeners: map[int]func(){},
	}
}

// Title returns the pane heading.
func (p *Pane) Title() string { return p.title }

// SetTitle changes the pane heading.
func (p *Pane) SetTitle(title string) { p.title = title }

// SetSize resizes the viewport to the area inside the border and heading.
func (p *Pane) SetSize(width, height int) {
	p.vp.Width = max(0, width-2)
	p.vp.Height = max(0, height-3)
	p.render()
	p.SetScrollTop(p.vp.YOffset)
}

// SetContent replaces the lines. items holds the first line index of each
// selectable entry, in order. The scroll position is kept when it still fits.
func (p *Pane) SetContent(lines []string, items []int) {
	p.lines = lines
	p.items = items
	before := p.vp.YOffset
	p.render()
	p.vp.SetYOffset(before)
	if p.vp.YOffset != before {
		p.notify()
	}
	if p.clampCursor() {
		p.render()
	}
}

// render pushes the lines into the viewport, marking the cursor entry when
// the pane has selectable entries.
func (p *Pane) render() {
	out := make([]string, len(p.lines))
	if len(p.items) == 0 {
		for i, l := range p.lines {
			out[i] = truncate(l, p.vp.Width)
		}
		p.vp.SetContent(strings.Join(out, "\n"))
		return
	}
	marked := -1
	if p.cursor < len(p.items) {
		marked = p.items[p.cursor]
	}
	for i, l := range p.lines {
		l = truncate(l, p.vp.Width-2)
		if i == marked {
			out[i] = cursorStyle.Render("▸ ") + l
		} else {
			out[i] = "  " + l
		}
	}
	p.vp.SetContent(strings.Join(out, "\n"))
}

// Lines returns the current content.
func (p *Pane) Lines() []string { return p.lines }

// ScrollTop is the index of the first visible line.
func (p *Pane) ScrollTop() int { return p.vp.YOffset }

// ScrollHeight is the number of content lines.
func (p *Pane) ScrollHeight() int { return len(p.lines) }

// ClientHeight is the number of visible lines.
func (p *Pane) ClientHeight() int { return p.vp.Height }

// SetScrollTop moves the viewport, clamped to the content, and notifies
// listeners when the position changed.
func (p *Pane) SetScrollTop(top int) {
	before := p.vp.YOffset
	p.vp.SetYOffset(top)
	if p.vp.YOffset != before {
		p.notify()
	}
}

// ScrollBy moves the viewport by delta lines.
func (p *Pane) ScrollBy(delta int) {
	p.SetScrollTop(p.vp.YOffset + delta)
}

// OnScroll registers fn and returns a function that unregisters it.
func (p *Pane) OnScroll(fn func()) func() {
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() { delete(p.listeners, id) }
}

// Down scrolls one line, or moves the cursor to the next entry once the
// content is scrolled to the end.
func (p *Pane) Down() {
	before := p.vp.YOffset
	p.ScrollBy(1)
	if p.vp.YOffset == before && p.cursor < len(p.items)-1 {
		p.cursor++
		p.render()
	}
}

// Up scrolls one line, or moves the cursor to the previous entry at the top.
func (p *Pane) Up() {
	before := p.vp.YOffset
	p.ScrollBy(-1)
	if p.vp.YOffset == before && p.cursor > 0 {
		p.cursor--
		p.render()
	}
}

func (p *Pane) notify() {
	if p.clampCursor() {
		p.render()
	}
	for _, fn := range p.listeners {
		fn()
	}
}

// clampCursor pulls the cursor back into the visible window and reports
// whether it moved.
func (p *Pane) clampCursor() bool {
	if len(p.items) == 0 {
		changed := p.cursor != 0
		p.cursor = 0
		return changed
	}
	before := p.cursor
	if p.cursor >= len(p.items) {
		p.cursor = len(p.items) - 1
	}
	top := p.vp.YOffset
	for p.cursor < len(p.items)-1 && p.items[p.cursor] < top {
		p.cursor++
	}
	if p.vp.Height > 0 {
		bottom := top + p.vp.Height
		for p.cursor > 0 && p.items[p.cursor] >= bottom {
			p.cursor--
		}
	}
	return p.cursor != before
}

// Selected returns the cursor entry, or -1 when the pane has no entries.
func (p *Pane) Selected() int {
	if len(p.items) == 0 {
		return -1
	}
	return p.cursor
}

// View renders the pane with its border. The focused pane gets the accent
// border color.
func (p *Pane) View(focused bool) string {
	border := paneStyle
	title := paneTitleStyle
	if focused {
		border = focusedPaneStyle
		title = focusedTitleStyle
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		title.Render(truncate(p.title, p.vp.Width)),
		p.vp.View(),
	)
	return border.Width(p.vp.Width).Height(p.vp.Height + 1).Render(body)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}
