// Package session tracks short-lived multi-step flows (form, selection,
// confirmation) per actor. Nothing is committed until Confirm; a flow that
// times out or is cancelled leaves no trace.
package session

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds each wait for the actor's next step.
const DefaultTimeout = 60 * time.Second

// State is the position of a flow.
type State int

// Flow states. Committed and Abandoned are terminal.
const (
	AwaitingForm State = iota
	AwaitingSelection
	AwaitingConfirmation
	Committed
	Abandoned
)

func (s State) String() string {
	switch s {
	case AwaitingForm:
		return "awaiting-form"
	case AwaitingSelection:
		return "awaiting-selection"
	case AwaitingConfirmation:
		return "awaiting-confirmation"
	case Committed:
		return "committed"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Flow errors.
var (
	ErrFlowNotFound     = errors.New("flow not found")
	ErrTimeout          = errors.New("flow timed out")
	ErrWrongStep        = errors.New("flow is not waiting for this step")
	ErrInvalidSelection = errors.New("selection is not one of the offered options")
)

// Key identifies a flow.
type Key struct {
	Actor  string
	FlowID string
}

// Flow is a snapshot of one session.
type Flow struct {
	Key
	Kind      string
	State     State
	Form      map[string]string
	Options   []string
	Selection string
	Deadline  time.Time
}

func (f Flow) clone() Flow {
	f.Form = maps.Clone(f.Form)
	f.Options = slices.Clone(f.Options)
	return f
}

// CommitFunc performs the flow's effect. It runs at most once per flow.
type CommitFunc func(ctx context.Context, f Flow) error

// Manager holds the open flows. Manager is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	flows   map[Key]*Flow
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets the per-step timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		flows:   make(map[Key]*Flow),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin opens a flow of the given kind for actor, awaiting its form.
func (m *Manager) Begin(actor, kind string) (Flow, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Flow{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f := &Flow{
		Key:      Key{Actor: actor, FlowID: id.String()},
		Kind:     kind,
		State:    AwaitingForm,
		Deadline: m.now().Add(m.timeout),
	}
	m.flows[f.Key] = f
	return f.clone(), nil
}

// Get returns the flow, or ErrTimeout if its deadline passed.
func (m *Manager) Get(key Key) (Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.liveLocked(key)
	if err != nil {
		return Flow{}, err
	}
	return f.clone(), nil
}

// SubmitForm records the form fields and the options the actor may pick
// from next. An empty options list skips straight to confirmation.
func (m *Manager) SubmitForm(key Key, fields map[string]string, options []string) (Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.stepLocked(key, AwaitingForm)
	if err != nil {
		return Flow{}, err
	}
	f.Form = maps.Clone(fields)
	f.Options = slices.Clone(options)
	f.State = AwaitingSelection
	if len(options) == 0 {
		f.State = AwaitingConfirmation
	}
	f.Deadline = m.now().Add(m.timeout)
	return f.clone(), nil
}

// Select records the actor's choice among the offered options.
func (m *Manager) Select(key Key, option string) (Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.stepLocked(key, AwaitingSelection)
	if err != nil {
		return Flow{}, err
	}
	if !slices.Contains(f.Options, option) {
		return Flow{}, ErrInvalidSelection
	}
	f.Selection = option
	f.State = AwaitingConfirmation
	f.Deadline = m.now().Add(m.timeout)
	return f.clone(), nil
}

// Confirm runs commit and closes the flow. The flow is removed before commit
// runs, so a second Confirm reports ErrFlowNotFound. A failing commit leaves
// the flow abandoned.
func (m *Manager) Confirm(ctx context.Context, key Key, commit CommitFunc) (Flow, error) {
	m.mu.Lock()
	f, err := m.stepLocked(key, AwaitingConfirmation)
	if err != nil {
		m.mu.Unlock()
		return Flow{}, err
	}
	delete(m.flows, key)
	snapshot := f.clone()
	m.mu.Unlock()

	if err := commit(ctx, snapshot); err != nil {
		snapshot.State = Abandoned
		return snapshot, err
	}
	snapshot.State = Committed
	return snapshot, nil
}

// Cancel abandons the flow.
func (m *Manager) Cancel(key Key) (Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.liveLocked(key)
	if err != nil {
		return Flow{}, err
	}
	delete(m.flows, key)
	out := f.clone()
	out.State = Abandoned
	return out, nil
}

// Sweep drops every flow whose deadline has passed and returns them in the
// Abandoned state.
func (m *Manager) Sweep() []Flow {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var expired []Flow
	for key, f := range m.flows {
		if now.After(f.Deadline) {
			delete(m.flows, key)
			out := f.clone()
			out.State = Abandoned
			expired = append(expired, out)
		}
	}
	return expired
}

// Run sweeps every interval until ctx is done, passing abandoned flows to
// onExpire when it is non-nil.
func (m *Manager) Run(ctx context.Context, interval time.Duration, onExpire func(Flow)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, f := range m.Sweep() {
				if onExpire != nil {
					onExpire(f)
				}
			}
		}
	}
}

// Len returns the number of open flows.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flows)
}

// liveLocked returns the flow, abandoning it first if its deadline passed.
func (m *Manager) liveLocked(key Key) (*Flow, error) {
	f, ok := m.flows[key]
	if !ok {
		return nil, ErrFlowNotFound
	}
	if m.now().After(f.Deadline) {
		delete(m.flows, key)
		return nil, ErrTimeout
	}
	return f, nil
}

func (m *Manager) stepLocked(key Key, want State) (*Flow, error) {
	f, err := m.liveLocked(key)
	if err != nil {
		return nil, err
	}
	if f.State != want {
		return nil, ErrWrongStep
	}
	return f, nil
}
