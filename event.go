package delay

import "strings"

type (
	// Tick is a unit of the host's logical clock
	Tick int64

	// Event describes one scheduled command. Events are values: the engine
	// stores and hands out copies, so a scheduled Event never changes
	Event struct {
		ID       string
		Command  string
		Source   Source
		Tick     Tick
		Priority int
		Silent   bool
	}

	// Source is the execution principal captured when an Event is scheduled
	Source struct {
		Actor string
		Kind  SourceKind
	}

	// SourceKind distinguishes the host principal from an actor principal
	SourceKind uint8
)

const (
	// SourceHost executes as the host itself
	SourceHost SourceKind = iota

	// SourceActor executes as the actor that scheduled the Event
	SourceActor
)

// DefaultPriority is assigned to events that do not specify one. Lower
// priorities fire first among events due on the same tick
const DefaultPriority = 1000

const (
	hostTag   = "server"
	actorTag  = "self"
	sourceSep = ":"
)

// NewEvent returns an Event with the default priority, not silent, and
// sourced from the host
func NewEvent(id string, tick Tick, command string) Event {
	return Event{
		ID:       id,
		Tick:     tick,
		Command:  command,
		Priority: DefaultPriority,
		Source:   Host(),
	}
}

// Host returns the host principal
func Host() Source {
	return Source{Kind: SourceHost}
}

// Actor returns the principal for the identified actor
func Actor(ref string) Source {
	return Source{Kind: SourceActor, Actor: ref}
}

// IsHost reports whether the Source is the host principal
func (s Source) IsHost() bool {
	return s.Kind == SourceHost
}

// String returns the durable tag for the Source: "server" for the host, or
// "self:<actor>" for an actor
func (s Source) String() string {
	if s.IsHost() {
		return hostTag
	}
	return actorTag + sourceSep + s.Actor
}

// ParseSource decodes a durable source tag. The second result is false when
// the tag is neither "server" nor a "self:" tag with a non-empty actor
func ParseSource(tag string) (Source, bool) {
	if tag == hostTag {
		return Host(), true
	}
	ref, ok := strings.CutPrefix(tag, actorTag+sourceSep)
	if !ok || ref == "" {
		return Host(), false
	}
	return Actor(ref), true
}
