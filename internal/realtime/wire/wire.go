// Package wire is the change-event format shared by the realtime server and
// its clients. It depends only on the WebSocket library so clients can
// import it without the server stack.
package wire

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Change types
const (
	Insert = "INSERT"
	Update = "UPDATE"
	Delete = "DELETE"
)

// Tables that publish change events.
const (
	TableComments      = "comments"
	TablePosts         = "posts"
	TableReactions     = "reactions"
	TableNotifications = "notifications"
	TableEvents        = "events"
)

// KnownTables lists every table a client may subscribe to.
var KnownTables = []string{TableComments, TablePosts, TableReactions, TableNotifications, TableEvents}

// Event is one change to one row.
type Event struct {
	Table  string          `json:"table"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
	At     time.Time       `json:"at"`
	// Audience restricts delivery to one user. Empty means everyone
	// subscribed to Table.
	Audience string `json:"audience,omitempty"`
}

// NewEvent encodes record into a change event stamped with the current time.
func NewEvent(table, changeType string, record interface{}) (Event, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, err
	}
	return Event{Table: table, Type: changeType, Record: raw, At: time.Now().UTC()}, nil
}

// Decode unmarshals the event's record into dest.
func (e Event) Decode(dest interface{}) error {
	return json.Unmarshal(e.Record, dest)
}

const readBuffer = 64

// Dial connects to a realtime endpoint and streams decoded events until ctx
// is done or the server closes the connection.
func Dial(ctx context.Context, url string, header http.Header) (<-chan Event, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, err
	}

	out := make(chan Event, readBuffer)
	go func() {
		defer close(out)
		defer conn.CloseNow()
		for {
			var e Event
			if err := wsjson.Read(ctx, conn, &e); err != nil {
				return
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
