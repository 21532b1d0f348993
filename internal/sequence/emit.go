package sequence

import "sync"

// Event is one outbound presentation event.
type Event struct {
	Instruction string `json:"instruction"`
	Name        string `json:"name"`
	Payload     any    `json:"payload,omitempty"`
}

// Emitter is the only outbound channel to the presentation layer.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function into an Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(Event) {})

// Recorder buffers events; used by tests and by pull-based transports.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Drain returns and clears the recorded events.
func (r *Recorder) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// Fanout forwards each event to every emitter in order.
type Fanout []Emitter

func (f Fanout) Emit(e Event) {
	for _, em := range f {
		em.Emit(e)
	}
}
