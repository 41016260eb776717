package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/metrics"
	"go.uber.org/zap"
)

// ErrHubClosed is returned by Publish after Shutdown.
var ErrHubClosed = errors.New("realtime hub closed")

const subscriptionBuffer = 64

type subscription struct {
	filter Filter
	events chan Event
	ready  chan struct{}
}

// Hub is the in-process Feed. One goroutine (Run) owns the subscriber set
// and is the only writer to subscriber channels.
type Hub struct {
	subs map[*subscription]struct{}

	register   chan *subscription
	unregister chan *subscription
	broadcast  chan Event

	stats Stats

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Stats tracks hub activity
type Stats struct {
	ActiveSubscribers atomic.Int64
	Published         atomic.Int64
	Delivered         atomic.Int64
	Dropped           atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats
type StatsSnapshot struct {
	ActiveSubscribers int64 `json:"active_subscribers"`
	Published         int64 `json:"published"`
	Delivered         int64 `json:"delivered"`
	Dropped           int64 `json:"dropped"`
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("subscribers=%d published=%d delivered=%d dropped=%d",
		s.ActiveSubscribers, s.Published, s.Delivered, s.Dropped)
}

// NewHub creates a new Hub instance. Call Run to start it.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		subs:       make(map[*subscription]struct{}),
		register:   make(chan *subscription, 16),
		unregister: make(chan *subscription, 16),
		broadcast:  make(chan Event, 256),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	logger.Log.Info("Realtime hub starting")
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case sub := <-h.register:
			// Events queued before this registration belong to the
			// existing subscribers only.
			h.flush()
			h.subs[sub] = struct{}{}
			h.stats.ActiveSubscribers.Add(1)
			metrics.Get().RealtimeSubscribers.Inc()
			close(sub.ready)

		case sub := <-h.unregister:
			h.remove(sub)

		case e := <-h.broadcast:
			h.deliver(e)
		}
	}
}

func (h *Hub) remove(sub *subscription) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.events)
	h.stats.ActiveSubscribers.Add(-1)
	metrics.Get().RealtimeSubscribers.Dec()
}

func (h *Hub) flush() {
	for {
		select {
		case e := <-h.broadcast:
			h.deliver(e)
		default:
			return
		}
	}
}

// deliver never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) deliver(e Event) {
	for sub := range h.subs {
		if !sub.filter.matches(e) {
			continue
		}
		select {
		case sub.events <- e:
			h.stats.Delivered.Add(1)
		default:
			h.stats.Dropped.Add(1)
			metrics.Get().RealtimeDroppedTotal.WithLabelValues(e.Table).Inc()
		}
	}
}

// Publish queues e for delivery.
func (h *Hub) Publish(ctx context.Context, e Event) error {
	select {
	case h.broadcast <- e:
		h.stats.Published.Add(1)
		metrics.Get().RealtimeEventsTotal.WithLabelValues(e.Table, e.Type).Inc()
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a subscription that lasts until cancel is called or
// ctx is done. The returned channel is closed when it ends. Events
// published after Subscribe returns are delivered.
func (h *Hub) Subscribe(ctx context.Context, f Filter) (<-chan Event, CancelFunc) {
	sub := &subscription{
		filter: f,
		events: make(chan Event, subscriptionBuffer),
		ready:  make(chan struct{}),
	}

	closed := func() (<-chan Event, CancelFunc) {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	select {
	case h.register <- sub:
	case <-h.ctx.Done():
		return closed()
	}
	select {
	case <-sub.ready:
	case <-h.done:
		return closed()
	}

	var once sync.Once
	stop := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(stop)
			select {
			case h.unregister <- sub:
			case <-h.ctx.Done():
			}
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-stop:
		}
	}()

	return sub.events, cancel
}

// Stats returns current hub counters
func (h *Hub) Stats() StatsSnapshot {
	return StatsSnapshot{
		ActiveSubscribers: h.stats.ActiveSubscribers.Load(),
		Published:         h.stats.Published.Load(),
		Delivered:         h.stats.Delivered.Load(),
		Dropped:           h.stats.Dropped.Load(),
	}
}

// Shutdown stops the hub and closes every subscriber channel.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
		logger.Log.Info("Realtime hub stopped", zap.Stringer("stats", h.Stats()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (h *Hub) shutdown() {
	for sub := range h.subs {
		h.remove(sub)
	}
}
