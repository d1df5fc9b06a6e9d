package telemetry

import (
	"sync"
	"time"
)

// Event is one observation emitted by a running component
type Event struct {
	Name     string
	At       time.Time
	Duration time.Duration
	// Labels must stay low-cardinality (reason, provider, frequency)
	Labels map[string]string
	Counts map[string]int
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Record(event Event)
}

// Nop discards every event
type Nop struct{}

func (Nop) Record(Event) {}

// Multi fans an event out to several sinks
type Multi []Sink

func (m Multi) Record(event Event) {
	for _, s := range m {
		if s != nil {
			s.Record(event)
		}
	}
}

// OrNop returns s, or a Nop sink when s is nil
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Memory keeps events in memory, mostly for tests
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(event Event) {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
}

// Events returns a copy of the recorded events
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Named returns the recorded events with the given name
func (m *Memory) Named(name string) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
