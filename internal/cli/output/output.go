// Package output prints API results for humans when the terminal client is
// not running full screen.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/communehq/commune/internal/apiclient"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/thread"
	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/term"
)

var (
	bold    = color.New(color.Bold)
	faint   = color.New(color.Faint)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	info    = color.New(color.FgCyan)
	accent  = color.New(color.FgMagenta)
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Interactive reports whether both stdin and stdout are terminals, which is
// what the full screen interface needs.
func Interactive() bool {
	return IsTerminal(os.Stdin) && IsTerminal(os.Stdout)
}

// Printer writes formatted results to w.
type Printer struct {
	w    io.Writer
	json bool
	now  func() time.Time
}

// New creates a Printer. With asJSON every result is written as indented JSON.
func New(w io.Writer, asJSON bool) *Printer {
	return &Printer{w: w, json: asJSON, now: time.Now}
}

// Stdout prints to color.Output, which handles Windows consoles.
func Stdout(asJSON bool) *Printer {
	return New(color.Output, asJSON)
}

// Success prints a green confirmation line.
func (p *Printer) Success(format string, args ...interface{}) {
	success.Fprintf(p.w, format+"\n", args...)
}

// Info prints a cyan line.
func (p *Printer) Info(format string, args ...interface{}) {
	info.Fprintf(p.w, format+"\n", args...)
}

// Error prints err in red. API errors include the status and the offending field.
func (p *Printer) Error(err error) {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if apiErr.Field != "" {
			msg += " (" + apiErr.Field + ")"
		}
		failure.Fprintf(p.w, "Error: %s [%d %s]\n", msg, apiErr.StatusCode, apiErr.Code)
		return
	}
	failure.Fprintf(p.w, "Error: %v\n", err)
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v interface{}) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Feed prints one page of posts.
func (p *Printer) Feed(page *apiclient.FeedPage) error {
	if p.json {
		return p.JSON(page)
	}
	if len(page.Posts) == 0 {
		faint.Fprintln(p.w, "No posts yet.")
		return nil
	}
	for i := range page.Posts {
		p.post(&page.Posts[i])
	}
	if page.HasMore {
		faint.Fprintf(p.w, "Showing %d-%d of %d. Use --offset %d for more.\n",
			page.Offset+1, page.Offset+len(page.Posts), page.Total, page.Offset+len(page.Posts))
	}
	return nil
}

func (p *Printer) post(post *apiclient.Post) {
	bold.Fprint(p.w, author(post.User))
	faint.Fprintf(p.w, "  %s  %s\n", Ago(p.now(), post.CreatedAt), post.ID)
	fmt.Fprintln(p.w, post.Content)
	meta := fmt.Sprintf("%d comments", post.CommentCount)
	if r := Reactions(post.Reactions); r != "" {
		meta += "  " + r
	}
	info.Fprintln(p.w, meta)
	fmt.Fprintln(p.w)
}

// Thread prints a comment tree, one comment per line, indented by depth.
func (p *Printer) Thread(roots []*thread.Node) error {
	if p.json {
		return p.JSON(roots)
	}
	lines := thread.Lines(roots)
	if len(lines) == 0 {
		faint.Fprintln(p.w, "No comments yet.")
		return nil
	}
	for _, l := range lines {
		faint.Fprint(p.w, l.Prefix)
		if l.Node.IsDeleted {
			faint.Fprintln(p.w, "[deleted]")
			continue
		}
		accent.Fprint(p.w, author(l.Node.User))
		fmt.Fprintf(p.w, ": %s", l.Node.Content)
		faint.Fprintf(p.w, "  %s  %s\n", Ago(p.now(), l.Node.CreatedAt), l.Node.ID)
	}
	return nil
}

// Notifications prints the notification list with unread entries marked.
func (p *Printer) Notifications(page *apiclient.NotificationPage) error {
	if p.json {
		return p.JSON(page)
	}
	bold.Fprintf(p.w, "%d unread\n", page.Unread)
	for _, n := range page.Notifications {
		marker := " "
		if n.ReadAt == nil {
			marker = "•"
		}
		fmt.Fprintf(p.w, "%s %s %s", marker, author(n.Actor), Describe(n))
		faint.Fprintf(p.w, "  %s\n", Ago(p.now(), n.CreatedAt))
	}
	return nil
}

// Communities prints communities as a table.
func (p *Printer) Communities(list []models.Community) error {
	if p.json {
		return p.JSON(list)
	}
	if len(list) == 0 {
		faint.Fprintln(p.w, "No communities.")
		return nil
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	bold.Fprintln(tw, "SLUG\tNAME\tMEMBERS")
	for _, c := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Slug, c.Name, c.MemberCount)
	}
	return tw.Flush()
}

func author(u *models.User) string {
	if u == nil {
		return "someone"
	}
	if u.DisplayName != "" {
		return u.DisplayName + " @" + u.Username
	}
	return "@" + u.Username
}

// Describe renders what a notification is about.
func Describe(n models.Notification) string {
	switch n.Type {
	case models.NotificationFollow:
		return "started following you"
	case models.NotificationComment:
		return "commented on your post"
	case models.NotificationReply:
		return "replied to your comment"
	case models.NotificationReaction:
		return "reacted to your " + n.TargetType
	case models.NotificationEvent:
		return "posted a new event"
	default:
		return n.Type
	}
}

// Reactions formats reaction counts as "like 2  love 1", sorted by kind.
func Reactions(counts map[string]int) string {
	kinds := make([]string, 0, len(counts))
	for k, n := range counts {
		if n > 0 {
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s %d", k, counts[k])
	}
	return strings.Join(parts, "  ")
}

// Ago renders t relative to now in the coarsest sensible unit.
func Ago(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
