package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/communehq/commune/internal/realtime/wire"
)

// Subscribe opens the realtime socket for the given tables. The channel is
// closed when ctx ends or the server drops the connection.
func (c *Client) Subscribe(ctx context.Context, tables ...string) (<-chan wire.Event, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/realtime")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if len(tables) > 0 {
		u.RawQuery = url.Values{"tables": {strings.Join(tables, ",")}}.Encode()
	}

	header := http.Header{}
	if token := c.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	c.debug("Realtime subscribe", "url", u.String())
	return wire.Dial(ctx, u.String(), header)
}
