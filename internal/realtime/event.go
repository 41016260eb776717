// Package realtime fans row-level change events out to subscribers.
// Subscribers receive a channel and a cancel function; the hub closes the
// channel once the subscription ends.
package realtime

import (
	"context"

	"github.com/communehq/commune/internal/realtime/wire"
)

// Change types
const (
	Insert = wire.Insert
	Update = wire.Update
	Delete = wire.Delete
)

// Tables that publish change events.
const (
	TableComments      = wire.TableComments
	TablePosts         = wire.TablePosts
	TableReactions     = wire.TableReactions
	TableNotifications = wire.TableNotifications
	TableEvents        = wire.TableEvents
)

// KnownTables lists every table a client may subscribe to.
var KnownTables = wire.KnownTables

// Event is one change to one row.
type Event = wire.Event

// NewEvent encodes record into a change event stamped with the current time.
func NewEvent(table, changeType string, record interface{}) (Event, error) {
	return wire.NewEvent(table, changeType, record)
}

// Filter selects which events a subscription receives.
type Filter struct {
	Tables []string // empty means all tables
	UserID string   // receives events addressed to this user
}

func (f Filter) matches(e Event) bool {
	if e.Audience != "" && e.Audience != f.UserID {
		return false
	}
	if len(f.Tables) == 0 {
		return true
	}
	for _, t := range f.Tables {
		if t == e.Table {
			return true
		}
	}
	return false
}

// CancelFunc ends a subscription. Safe to call more than once.
type CancelFunc func()

// Feed publishes change events and hands out subscriptions.
type Feed interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context, f Filter) (<-chan Event, CancelFunc)
}
