// Package observe carries the session's observability events to whoever wants
// to watch them: the log, a Redis channel, or a test.
package observe

import (
	"sync"
	"time"
)

// Kind names an observability event.
type Kind string

const (
	KindStateChanged   Kind = "state.changed"
	KindSnapshot       Kind = "snapshot"
	KindUpdate         Kind = "doc.update"
	KindAck            Kind = "ack"
	KindNack           Kind = "nack"
	KindPresence       Kind = "presence"
	KindEditSent       Kind = "edit.sent"
	KindEditDropped    Kind = "edit.dropped"
	KindTransportError Kind = "transport.closed"
	KindResync         Kind = "resync"
	KindCreateFailed   Kind = "create.failed"
)

// Event is a single observation. Only the fields relevant to Kind are set.
type Event struct {
	Time       time.Time `json:"time"`
	Kind       Kind      `json:"kind"`
	Session    string    `json:"session,omitempty"`
	DocID      string    `json:"docId,omitempty"`
	Generation uint64    `json:"generation,omitempty"`
	State      string    `json:"state,omitempty"`
	Version    *int      `json:"version,omitempty"`
	Op         string    `json:"op,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Sink receives events. Observe is called from the session's event loop and
// must not block.
type Sink interface {
	Observe(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Observe calls f.
func (f SinkFunc) Observe(e Event) {
	f(e)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

type multi []Sink

func (m multi) Observe(e Event) {
	for _, sink := range m {
		sink.Observe(e)
	}
}

// Multi fans events out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, sink := range sinks {
		if sink != nil {
			m = append(m, sink)
		}
	}
	return m
}

// Recorder keeps every event it sees. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Observe records e.
func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events, in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// Last returns the most recent event of the given kind.
func (r *Recorder) Last(kind Kind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return Event{}, false
}
