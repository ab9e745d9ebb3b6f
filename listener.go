package delay

type (
	// Listener observes the lifecycle of scheduled events. Listener methods
	// are called on the tick thread and should not block
	Listener interface {
		EventScheduled(Event)
		EventCancelled(Event)
		EventFired(Event, error)
	}

	nopListener struct{}

	multiListener []Listener
)

// NopListener ignores all lifecycle notifications
var NopListener Listener = nopListener{}

// MultiListener fans notifications out to each of the provided Listeners
func MultiListener(ls ...Listener) Listener {
	switch len(ls) {
	case 0:
		return NopListener
	case 1:
		return ls[0]
	default:
		return multiListener(ls)
	}
}

func (nopListener) EventScheduled(Event)    {}
func (nopListener) EventCancelled(Event)    {}
func (nopListener) EventFired(Event, error) {}

func (m multiListener) EventScheduled(ev Event) {
	for _, l := range m {
		l.EventScheduled(ev)
	}
}

func (m multiListener) EventCancelled(ev Event) {
	for _, l := range m {
		l.EventCancelled(ev)
	}
}

func (m multiListener) EventFired(ev Event, err error) {
	for _, l := range m {
		l.EventFired(ev, err)
	}
}
