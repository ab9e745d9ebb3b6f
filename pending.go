package delay

import "container/list"

type (
	// pending is the live set of scheduled events. It keeps three views of
	// the same entries: lookup by ID, insertion order for listing and
	// export, and tick order for firing
	pending struct {
		byID  map[string]*entry
		order *list.List
		queue tickQueue
	}

	entry struct {
		elem  *list.Element
		event Event
		index int
	}
)

func newPending() *pending {
	return &pending{
		byID:  map[string]*entry{},
		order: list.New(),
		queue: tickQueue{},
	}
}

func (p *pending) len() int {
	return len(p.byID)
}

func (p *pending) get(id string) (*entry, bool) {
	e, ok := p.byID[id]
	return e, ok
}

func (p *pending) insert(ev Event) bool {
	if _, ok := p.byID[ev.ID]; ok {
		return false
	}
	e := &entry{event: ev}
	e.elem = p.order.PushBack(e)
	p.byID[ev.ID] = e
	p.queue.push(e)
	return true
}

func (p *pending) remove(id string) (Event, bool) {
	e, ok := p.byID[id]
	if !ok {
		return Event{}, false
	}
	p.detach(e)
	return e.event, true
}

// popDue detaches and returns every entry due at or before now, in tick order
func (p *pending) popDue(now Tick) []Event {
	var res []Event
	for e := p.queue.peek(); e != nil && e.event.Tick <= now; e = p.queue.peek() {
		p.queue.pop()
		p.order.Remove(e.elem)
		delete(p.byID, e.event.ID)
		res = append(res, e.event)
	}
	return res
}

func (p *pending) events() []Event {
	res := make([]Event, 0, p.order.Len())
	for el := p.order.Front(); el != nil; el = el.Next() {
		res = append(res, el.Value.(*entry).event)
	}
	return res
}

func (p *pending) detach(e *entry) {
	p.queue.remove(e)
	p.order.Remove(e.elem)
	delete(p.byID, e.event.ID)
}
