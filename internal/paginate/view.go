package paginate

import (
	"errors"
	"sync"
	"time"

	"github.com/mesh-intelligence/shopkeeper/internal/card"
)

// DefaultTimeout is the idle time after which a View expires.
const DefaultTimeout = 180 * time.Second

// Control ids understood by Handle.
const (
	ActionPrevious = "previous"
	ActionNext     = "next"
	ActionClose    = "close"
)

// View errors.
var (
	ErrInactive      = errors.New("view is no longer active")
	ErrUnknownAction = errors.New("unknown view action")
)

// State is the lifecycle state of a View.
type State int

// View states. Expired and Closed are terminal.
const (
	Active State = iota
	Expired
	Closed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Expired:
		return "expired"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Frame is what the delivery channel displays for a View.
type Frame[T any] struct {
	Items    []T
	Page     int // 1-based
	Pages    int
	State    State
	Controls []card.Control
}

type options struct {
	pageSize int
	timeout  time.Duration
	closable bool
	onExpire func()
}

// Option configures a View.
type Option func(*options)

// WithPageSize sets the number of items per page.
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// WithTimeout sets the idle timeout. A non-positive value disables expiry.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithClose adds a close control.
func WithClose() Option {
	return func(o *options) { o.closable = true }
}

// OnExpire registers fn to run once when the View expires. fn runs on the
// timer goroutine without the View's lock held.
func OnExpire(fn func()) Option {
	return func(o *options) { o.onExpire = fn }
}

// View is an interactive paginated surface. Each accepted action resets the
// idle timer; on expiry every control is disabled and the last page stays
// visible.
type View[T any] struct {
	mu    sync.Mutex
	pager *Pager[T]
	state State
	opts  options
	timer *time.Timer
}

// NewView starts an active View on the first page of items.
func NewView[T any](items []T, opts ...Option) *View[T] {
	o := options{pageSize: DefaultPageSize, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	v := &View[T]{pager: New(items, o.pageSize), opts: o}
	if o.timeout > 0 {
		v.timer = time.AfterFunc(o.timeout, v.expire)
	}
	return v
}

// Handle applies a control action and returns the resulting frame.
func (v *View[T]) Handle(action string) (Frame[T], error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != Active {
		return v.frameLocked(), ErrInactive
	}

	switch action {
	case ActionPrevious:
		v.pager.Previous()
	case ActionNext:
		v.pager.Next()
	case ActionClose:
		if !v.opts.closable {
			return v.frameLocked(), ErrUnknownAction
		}
		v.state = Closed
		v.stopLocked()
		return v.frameLocked(), nil
	default:
		return v.frameLocked(), ErrUnknownAction
	}

	if v.timer != nil {
		v.timer.Reset(v.opts.timeout)
	}
	return v.frameLocked(), nil
}

// Frame returns the current frame without changing state.
func (v *View[T]) Frame() Frame[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frameLocked()
}

// State returns the lifecycle state.
func (v *View[T]) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Stop cancels the idle timer without changing the state. Used when the
// owner discards the View.
func (v *View[T]) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopLocked()
}

func (v *View[T]) expire() {
	v.mu.Lock()
	if v.state != Active {
		v.mu.Unlock()
		return
	}
	v.state = Expired
	v.timer = nil
	fn := v.opts.onExpire
	v.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (v *View[T]) stopLocked() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

func (v *View[T]) frameLocked() Frame[T] {
	f := Frame[T]{
		Page:  v.pager.Cursor() + 1,
		Pages: v.pager.PageCount(),
		State: v.state,
	}
	if v.state == Closed {
		f.Items = []T{}
		return f
	}
	f.Items = v.pager.Current()

	active := v.state == Active
	f.Controls = []card.Control{
		{ID: ActionPrevious, Label: "Previous", Disabled: !active || !v.pager.CanPrevious()},
		{ID: ActionNext, Label: "Next", Disabled: !active || !v.pager.CanNext()},
	}
	if v.opts.closable {
		f.Controls = append(f.Controls, card.Control{ID: ActionClose, Label: "Close", Disabled: !active})
	}
	return f
}
