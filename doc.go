// Package commune is the Commune community platform: an API server for
// communities, posts, threaded comments, reactions, events and donations,
// and a terminal client for reading them.
//
// The code is organized into subpackages:
//
//   - cmd/server: the HTTP API and realtime socket
//   - cmd/commune: the terminal client and its three-pane TUI
//   - cmd/seed: development data
//   - internal/handlers: HTTP request handlers for all API endpoints
//   - internal/models: data models and database schemas
//   - internal/repository: database access behind the Store interface
//   - internal/thread: comment tree assembly
//   - internal/richtext: mention, hashtag and link segmentation
//   - internal/realtime: change feed hub, websocket handler and Redis bridge
//   - internal/scrollsync: proportional scroll synchronization between panes
//   - internal/queue: outbound mail queue
//   - internal/retention: notification and media cleanup
//
// See the individual package documentation for detailed API reference.
package commune
