package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/communehq/commune/internal/apiclient"
	"github.com/communehq/commune/internal/cli/output"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/thread"
)

const emptyThread = "No comments yet. Be the first to reply."

func feedLines(posts []apiclient.Post, now time.Time) ([]string, []int) {
	if len(posts) == 0 {
		return []string{metaStyle.Render("No posts yet.")}, nil
	}
	var lines []string
	items := make([]int, 0, len(posts))
	for _, p := range posts {
		items = append(items, len(lines))
		lines = append(lines,
			authorStyle.Render(name(p.User))+" "+metaStyle.Render(output.Ago(now, p.CreatedAt)),
		)
		lines = append(lines, strings.Split(p.Content, "\n")...)
		meta := fmt.Sprintf("%d comments", p.CommentCount)
		if r := output.Reactions(p.Reactions); r != "" {
			meta += "  " + r
		}
		lines = append(lines, metaStyle.Render(meta), "")
	}
	return lines, items
}

// threadLines draws the opened post followed by its comment tree. Replies
// are indented per depth with a │ or └ gutter.
func threadLines(post apiclient.Post, roots []*thread.Node, now time.Time) []string {
	lines := []string{
		authorStyle.Render(name(post.User)) + " " + metaStyle.Render(output.Ago(now, post.CreatedAt)),
	}
	lines = append(lines, strings.Split(post.Content, "\n")...)
	lines = append(lines, "")

	rows := thread.Lines(roots)
	if len(rows) == 0 {
		return append(lines, metaStyle.Render(emptyThread))
	}
	for _, row := range rows {
		gutter := gutterStyle.Render(row.Prefix)
		if row.Node.IsDeleted {
			lines = append(lines, gutter+metaStyle.Render("[deleted]"))
			continue
		}
		body := strings.Split(row.Node.Content, "\n")
		lines = append(lines, gutter+authorStyle.Render(name(row.Node.User))+" "+metaStyle.Render(output.Ago(now, row.Node.CreatedAt)))
		// Continuation lines line up under the author.
		indent := gutterStyle.Render(continuation(row.Prefix))
		for _, b := range body {
			lines = append(lines, indent+b)
		}
	}
	return lines
}

// continuation is the gutter for a comment's body lines: an open branch
// keeps its │, a closed one is blank.
func continuation(prefix string) string {
	return strings.ReplaceAll(prefix, "└", " ")
}

func navLines(communities []models.Community, notes *apiclient.NotificationPage, now time.Time) []string {
	lines := []string{headingStyle.Render("Communities")}
	if len(communities) == 0 {
		lines = append(lines, metaStyle.Render("Not a member of any community."))
	}
	for _, c := range communities {
		lines = append(lines, fmt.Sprintf("%s %s", c.Name, metaStyle.Render(fmt.Sprintf("(%d)", c.MemberCount))))
	}

	lines = append(lines, "")
	heading := headingStyle.Render("Notifications")
	if notes != nil && notes.Unread > 0 {
		heading += unreadStyle.Render(fmt.Sprintf(" %d new", notes.Unread))
	}
	lines = append(lines, heading)
	if notes == nil || len(notes.Notifications) == 0 {
		return append(lines, metaStyle.Render("Nothing new."))
	}
	for _, n := range notes.Notifications {
		marker := "  "
		if n.ReadAt == nil {
			marker = unreadStyle.Render("• ")
		}
		lines = append(lines, marker+name(n.Actor)+" "+output.Describe(n))
		lines = append(lines, "  "+metaStyle.Render(output.Ago(now, n.CreatedAt)))
	}
	return lines
}

func auxLines(events []models.Event, community string, donations *apiclient.DonationPage) []string {
	lines := []string{headingStyle.Render("Upcoming events")}
	if len(events) == 0 {
		lines = append(lines, metaStyle.Render("No events scheduled."))
	}
	for _, e := range events {
		lines = append(lines, authorStyle.Render(e.Title))
		when := e.StartsAt.Local().Format("Mon Jan 2 15:04")
		if e.Location != "" {
			when += " · " + e.Location
		}
		lines = append(lines, metaStyle.Render(when))
		lines = append(lines, metaStyle.Render(fmt.Sprintf("%d going", e.GoingCount)), "")
	}

	lines = append(lines, headingStyle.Render("Donations"))
	if community == "" {
		return append(lines, metaStyle.Render("Join a community to see its pledges."))
	}
	if donations == nil || len(donations.Donations) == 0 {
		return append(lines, metaStyle.Render("No pledges for "+community+" yet."))
	}
	lines = append(lines, metaStyle.Render(community))
	currencies := make([]string, 0, len(donations.Totals.ByCents))
	for cur := range donations.Totals.ByCents {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)
	for _, cur := range currencies {
		lines = append(lines, "Total "+money(donations.Totals.ByCents[cur], cur))
	}
	for _, d := range donations.Donations {
		line := money(d.AmountCents, d.Currency)
		if d.Message != "" {
			line += " " + metaStyle.Render(d.Message)
		}
		lines = append(lines, line)
	}
	return lines
}

func money(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}

func name(u *models.User) string {
	if u == nil {
		return "someone"
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return "@" + u.Username
}

func (m model) statusLine() string {
	var parts []string
	switch {
	case m.err != nil:
		parts = append(parts, errorStyle.Render(m.err.Error()))
	case m.loading > 0:
		parts = append(parts, statusStyle.Render("Loading…"))
	case m.openPost != nil:
		parts = append(parts, statusStyle.Render(fmt.Sprintf("%d comments", thread.Count(m.roots))))
	}
	parts = append(parts, m.help.View(keys))
	return strings.Join(parts, statusStyle.Render("  ·  "))
}
