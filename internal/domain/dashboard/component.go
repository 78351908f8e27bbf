package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

const fetchMethod = "get_dashboard_data"

// ErrEmptyPayload reports a fetch that returned no dashboard data.
var ErrEmptyPayload = errors.New("dashboard data response was empty")

// Caller is the remote ORM call the dashboard depends on.
type Caller interface {
	Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error)
}

// Phase names where a mount is in its lifecycle.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseFailed  Phase = "failed"
)

// ViewState is what the dashboard renders from. Once loading completes Data
// is always set; Err is set only when the live fetch failed and Data holds
// the fallback payload.
type ViewState struct {
	Loading bool
	Data    *Payload
	Err     error
}

func (s ViewState) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.Err != nil:
		return PhaseFailed
	default:
		return PhaseLoaded
	}
}

// Component is one mounted dashboard. It fetches exactly once; a remount is
// a new Component.
type Component struct {
	caller     Caller
	dispatcher Dispatcher

	loadOnce sync.Once

	mu          sync.Mutex
	state       ViewState
	subscribers map[int]func(ViewState)
	nextSubID   int
}

// NewComponent returns an unmounted dashboard in the loading state.
func NewComponent(caller Caller, dispatcher Dispatcher) *Component {
	return &Component{
		caller:      caller,
		dispatcher:  dispatcher,
		state:       ViewState{Loading: true},
		subscribers: map[int]func(ViewState){},
	}
}

// State returns a snapshot of the current view-state.
func (c *Component) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for every subsequent transition and returns a
// function that removes it.
func (c *Component) Subscribe(fn func(ViewState)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Mount runs Load and returns the settled state. It blocks until the fetch
// settles.
func (c *Component) Mount(ctx context.Context) ViewState {
	c.Load(ctx)
	return c.State()
}

// Load announces the loading state to subscribers and issues the dashboard
// fetch. Failures are absorbed into the state: the fallback payload is shown
// and Err records why. Only the first call on a component does anything.
func (c *Component) Load(ctx context.Context) {
	c.loadOnce.Do(func() {
		c.set(func(s *ViewState) { s.Loading = true })

		var (
			data *Payload
			err  error
		)
		defer func() {
			c.set(func(s *ViewState) {
				s.Data = data
				s.Err = err
				s.Loading = false
			})
		}()

		data, err = c.fetch(ctx)
		if err != nil {
			slog.Warn("dashboard data fetch failed, showing fallback", "err", err)
			data = Fallback()
		}
	})
}

func (c *Component) fetch(ctx context.Context) (payload *Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload, err = nil, fmt.Errorf("dashboard fetch panicked: %v", r)
		}
	}()

	raw, err := c.caller.Call(ctx, ModelPerformance, fetchMethod, []any{}, nil)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrEmptyPayload
	}
	var decoded Payload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode dashboard data: %w", err)
	}
	return &decoded, nil
}

func (c *Component) set(mutate func(*ViewState)) {
	c.mu.Lock()
	mutate(&c.state)
	snapshot := c.state
	subs := make([]func(ViewState), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// AddKPI opens a blank objective form.
func (c *Component) AddKPI(ctx context.Context) {
	c.dispatch(ctx, AddKPIAction())
}

// EvaluatePerformance opens a blank performance record form.
func (c *Component) EvaluatePerformance(ctx context.Context) {
	c.dispatch(ctx, EvaluatePerformanceAction())
}

// SubmitAppraisal opens the appraisal entries list.
func (c *Component) SubmitAppraisal(ctx context.Context) {
	c.dispatch(ctx, SubmitAppraisalAction())
}

func (c *Component) dispatch(ctx context.Context, action Action) {
	if c.dispatcher == nil {
		slog.Warn("dashboard action dropped, no dispatcher", "action", action.Name, "xmlId", action.XMLID)
		return
	}
	c.dispatcher.Dispatch(ctx, action)
}
