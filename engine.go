package delay

import (
	"context"
	"encoding/json"
)

type (
	// Engine is the capability the command front end depends on. It is not
	// safe for concurrent use; the host drives it from a single tick thread
	Engine interface {
		// Add stores the Event unless its ID is already pending
		Add(Event) bool

		// Remove cancels the pending Event with the given ID
		Remove(id string) bool

		// List returns pending events in insertion order
		List() []Event

		// Advance fires every pending Event due at or before the given tick
		Advance(context.Context, Tick) int

		// Export returns a durable Record for each pending Event
		Export() []Record

		// Import loads raw durable records, skipping malformed ones
		Import([]json.RawMessage) int
	}

	// Dispatcher executes an Event's command under the Event's Source. It is
	// supplied by the host and must honor the Event's Silent flag
	Dispatcher interface {
		Dispatch(context.Context, Event) error
	}

	// DispatchFunc adapts a function to the Dispatcher interface
	DispatchFunc func(context.Context, Event) error

	// ActorResolver reports whether a captured actor reference still exists
	ActorResolver interface {
		ResolveActor(ref string) bool
	}

	// ResolverFunc adapts a function to the ActorResolver interface
	ResolverFunc func(ref string) bool

	// Clock exposes the host's current logical time
	Clock interface {
		Now() Tick
	}
)

// Dispatch calls fn
func (fn DispatchFunc) Dispatch(ctx context.Context, ev Event) error {
	return fn(ctx, ev)
}

// ResolveActor calls fn
func (fn ResolverFunc) ResolveActor(ref string) bool {
	return fn(ref)
}
