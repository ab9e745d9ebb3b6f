package delay

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

type (
	// Scheduler owns the set of pending events and fires them as the host's
	// clock advances. It is not safe for concurrent use
	Scheduler struct {
		pending  *pending
		dispatch Dispatcher
		resolver ActorResolver
		listener Listener
		log      *zap.Logger
	}

	// Option configures a Scheduler
	Option func(*Scheduler)

	// PanicError wraps a value recovered from a panicking Dispatcher
	PanicError struct {
		Value any
	}
)

var _ Engine = (*Scheduler)(nil)

// NewScheduler creates a Scheduler that executes due events through the
// provided Dispatcher
func NewScheduler(d Dispatcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		pending:  newPending(),
		dispatch: d,
		listener: NopListener,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// WithLogger sets the Scheduler's logger
func WithLogger(log *zap.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithResolver sets the ActorResolver consulted when importing records
func WithResolver(r ActorResolver) Option {
	return func(s *Scheduler) {
		s.resolver = r
	}
}

// WithListener sets the Listener notified of event lifecycle changes
func WithListener(l Listener) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.listener = l
		}
	}
}

// Add stores the Event. It returns false, leaving the pending set untouched,
// if an Event with the same ID is already pending
func (s *Scheduler) Add(ev Event) bool {
	if !s.pending.insert(ev) {
		s.log.Debug("Duplicate event identifier",
			zap.String("id", ev.ID),
		)
		return false
	}
	s.listener.EventScheduled(ev)
	return true
}

// Remove cancels the pending Event with the given ID, returning false if no
// such Event exists
func (s *Scheduler) Remove(id string) bool {
	ev, ok := s.pending.remove(id)
	if !ok {
		return false
	}
	s.listener.EventCancelled(ev)
	return true
}

// Get returns a copy of the pending Event with the given ID
func (s *Scheduler) Get(id string) (Event, bool) {
	e, ok := s.pending.get(id)
	if !ok {
		return Event{}, false
	}
	return e.event, true
}

// Len returns the number of pending events
func (s *Scheduler) Len() int {
	return s.pending.len()
}

// List returns the pending events in the order they were added
func (s *Scheduler) List() []Event {
	return s.pending.events()
}

// IDs returns the identifiers of the pending events in insertion order
func (s *Scheduler) IDs() []string {
	evs := s.pending.events()
	res := make([]string, len(evs))
	for i, ev := range evs {
		res[i] = ev.ID
	}
	return res
}

// Advance fires every pending Event whose Tick is at or before now. The due
// batch is removed from the pending set, ordered by priority and then by ID,
// and dispatched synchronously. A failing Event is logged and does not stop
// the rest of the batch. Advance returns the number of events dispatched
func (s *Scheduler) Advance(ctx context.Context, now Tick) int {
	batch := s.pending.popDue(now)
	if len(batch) == 0 {
		return 0
	}

	slices.SortFunc(batch, compareEvents)
	for _, ev := range batch {
		err := s.fire(ctx, ev)
		if err != nil {
			s.log.Error("Failed to execute scheduled command",
				zap.String("id", ev.ID),
				zap.Int64("tick", int64(ev.Tick)),
				zap.Int64("now", int64(now)),
				zap.String("command", ev.Command),
				zap.Stringer("source", ev.Source),
				zap.Error(err),
			)
		}
		s.listener.EventFired(ev, err)
	}
	return len(batch)
}

func (s *Scheduler) fire(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return s.dispatch.Dispatch(ctx, ev)
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("command panicked: %v", e.Value)
}

func compareEvents(l, r Event) int {
	if c := cmp.Compare(l.Priority, r.Priority); c != 0 {
		return c
	}
	return cmp.Compare(l.ID, r.ID)
}
