package repository

// EventKind tells what happened to the repository.
type EventKind int

const (
	// UpdateStarted is emitted when a load or a fetch begins.
	UpdateStarted EventKind = iota
	// UpdateReady is emitted when new data can be read with GetData.
	UpdateReady
	// UpdateFailed is emitted when a load or a fetch did not produce data.
	UpdateFailed
)

func (k EventKind) String() string {
	switch k {
	case UpdateStarted:
		return "started"
	case UpdateReady:
		return "ready"
	case UpdateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is broadcast to subscribers. Message is only set for failures.
type Event struct {
	Kind    EventKind
	Message string
}

const subscriberBuffer = 16

// Subscribe returns a channel receiving the events emitted from now on, and a
// function to stop receiving them. A subscriber more than a few events behind
// misses UpdateStarted events, and the oldest pending events make room for an
// UpdateReady or UpdateFailed, so the outcome of a task is always delivered.
func (r *Repository) Subscribe() (<-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	id := r.nextSubscriber
	r.nextSubscriber++
	r.subscribers[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(c)
		}
	}
}

// emitLocked must be called with r.mu held.
func (r *Repository) emitLocked(ev Event) {
	r.log.Debug("repository event", "kind", ev.Kind, "message", ev.Message)
	for _, ch := range r.external {
		if !offer(ch, ev) {
			r.log.Warn("subscriber too slow, dropping event", "kind", ev.Kind)
		}
	}
	for _, ch := range r.subscribers {
		if offer(ch, ev) {
			continue
		}
		if ev.Kind == UpdateStarted {
			r.log.Warn("subscriber too slow, dropping event", "kind", ev.Kind)
			continue
		}
		// Only emitLocked sends on ch, so once the oldest event is gone
		// the send below cannot block.
		select {
		case old := <-ch:
			r.log.Warn("subscriber too slow, dropping event", "kind", old.Kind)
		default:
		}
		ch <- ev
	}
}

func offer(ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}
