package command

import "github.com/kode4food/delay"

type (
	// Bag accumulates the modifiers of one invocation until its terminal
	// clause consumes them. A Bag belongs to exactly one Invocation
	Bag struct {
		values  map[string]any
		cleared bool
	}

	// Options is the typed view of a Bag's modifiers
	Options struct {
		Source   SourceMode
		Priority int
		Silent   bool
	}

	// SourceMode selects the principal a scheduled command runs as
	SourceMode uint8
)

const (
	// SourceSelf runs the command as the invoker
	SourceSelf SourceMode = iota

	// SourceServer runs the command as the host
	SourceServer
)

// Option names written by the modifiers
const (
	OptSource   = "source"
	OptPriority = "priority"
	OptSilent   = "silent"
)

const (
	sourceSelf   = "self"
	sourceServer = "server"
)

// NewBag returns an empty Bag
func NewBag() *Bag {
	return &Bag{values: map[string]any{}}
}

// Set records a modifier value, replacing any earlier value for the name
func (b *Bag) Set(name string, value any) {
	b.values[name] = value
}

// Get returns the raw value stored under name
func (b *Bag) Get(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Len returns the number of distinct modifiers set
func (b *Bag) Len() int {
	return len(b.values)
}

// Clear empties the Bag. Only the first call has an effect
func (b *Bag) Clear() {
	if b.cleared {
		return
	}
	clear(b.values)
	b.cleared = true
}

// Cleared reports whether Clear has been called
func (b *Bag) Cleared() bool {
	return b.cleared
}

// ReadOption returns the value stored under name as a T, or def when the
// value is absent or holds some other type
func ReadOption[T any](b *Bag, name string, def T) T {
	if b == nil {
		return def
	}
	v, ok := b.values[name]
	if !ok {
		return def
	}
	res, ok := v.(T)
	if !ok {
		return def
	}
	return res
}

// ResolveOptions reads the three modifiers with their defaults: source
// "self", priority 1000, not silent. Any source other than "server" means
// self
func ResolveOptions(b *Bag) Options {
	src := SourceSelf
	if ReadOption(b, OptSource, sourceSelf) == sourceServer {
		src = SourceServer
	}
	return Options{
		Source:   src,
		Priority: ReadOption(b, OptPriority, delay.DefaultPriority),
		Silent:   ReadOption(b, OptSilent, false),
	}
}

func (m SourceMode) String() string {
	if m == SourceServer {
		return sourceServer
	}
	return sourceSelf
}
