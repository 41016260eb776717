// Package scrollsync keeps three scrollable panes at the same relative
// scroll position. Scrolling one pane moves the other two by the same
// fraction of their own range.
package scrollsync

import (
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultGuardDelay is how long scroll events are ignored after a sync.
const DefaultGuardDelay = 50 * time.Millisecond

// Pane is an independently scrollable region measured in lines.
type Pane interface {
	ScrollTop() int
	ScrollHeight() int
	ClientHeight() int
	SetScrollTop(int)
	// OnScroll registers fn to run after every change of ScrollTop,
	// including changes made through SetScrollTop.
	OnScroll(fn func()) (remove func())
}

// Panes is the triple kept in step.
type Panes struct {
	Primary   Pane
	Secondary Pane
	Tertiary  Pane
}

// DetachFunc removes the scroll listeners. Safe to call more than once.
type DetachFunc func()

// Timer is the part of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, fn func()) Timer

// Option configures a Controller.
type Option func(*Controller)

// WithGuardDelay sets how long the guard stays up after a sync.
func WithGuardDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.guardDelay = d
		}
	}
}

// WithAfterFunc replaces the timer source.
func WithAfterFunc(f AfterFunc) Option {
	return func(c *Controller) {
		if f != nil {
			c.afterFunc = f
		}
	}
}

// Controller wires pane triples together.
type Controller struct {
	guardDelay time.Duration
	afterFunc  AfterFunc
}

// New creates a Controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		guardDelay: DefaultGuardDelay,
		afterFunc: func(d time.Duration, fn func()) Timer {
			return time.AfterFunc(d, fn)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach starts syncing panes with a default Controller.
func Attach(panes Panes) DetachFunc {
	return New().Attach(panes)
}

// Attach starts syncing panes. If any pane is nil, including a typed nil
// pointer, nothing is wired and the returned DetachFunc does nothing.
func (c *Controller) Attach(panes Panes) DetachFunc {
	if absent(panes.Primary) || absent(panes.Secondary) || absent(panes.Tertiary) {
		return func() {}
	}

	b := &binding{
		ctrl:  c,
		panes: [3]Pane{panes.Primary, panes.Secondary, panes.Tertiary},
	}
	for i, p := range b.panes {
		src := i
		b.removers[i] = p.OnScroll(func() { b.onScroll(src) })
	}
	return b.detach
}

func absent(p Pane) bool {
	if p == nil {
		return true
	}
	switch v := reflect.ValueOf(p); v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// binding is one attached triple. The guard is shared by all three panes.
type binding struct {
	ctrl     *Controller
	panes    [3]Pane
	removers [3]func()

	guard    atomic.Bool
	detached atomic.Bool

	mu    sync.Mutex
	timer Timer
	once  sync.Once
}

func (b *binding) onScroll(src int) {
	if b.detached.Load() {
		return
	}
	if !b.guard.CompareAndSwap(false, true) {
		return
	}

	f := Fraction(b.panes[src])
	for i, p := range b.panes {
		if i != src {
			p.SetScrollTop(offset(p, f))
		}
	}
	b.release()
}

// release clears the guard after the configured delay.
func (b *binding) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.detached.Load() {
		b.guard.Store(false)
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = b.ctrl.afterFunc(b.ctrl.guardDelay, func() {
		b.guard.Store(false)
	})
}

func (b *binding) detach() {
	b.once.Do(func() {
		b.detached.Store(true)
		for _, remove := range b.removers {
			if remove != nil {
				remove()
			}
		}

		b.mu.Lock()
		if b.timer != nil {
			b.timer.Stop()
			b.timer = nil
		}
		b.mu.Unlock()
	})
}

// Fraction is p's scroll position over its scrollable range, in [0,1].
// A pane that does not overflow reports 0.
func Fraction(p Pane) float64 {
	span := p.ScrollHeight() - p.ClientHeight()
	if span <= 0 {
		return 0
	}
	f := float64(p.ScrollTop()) / float64(span)
	return math.Min(1, math.Max(0, f))
}

// offset converts a fraction to p's nearest line offset.
func offset(p Pane, f float64) int {
	span := p.ScrollHeight() - p.ClientHeight()
	if span <= 0 {
		return 0
	}
	return int(math.Round(f * float64(span)))
}
