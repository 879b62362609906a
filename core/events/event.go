// Package events defines the append-only observable log the CDP engine
// writes to on every successful mutating operation.
package events

import (
	"sync"

	"github.com/MGM103/CDP-Stable-Coin/core/types"
)

// Event represents a structured state change emitted by the engine.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards every event. Useful when a caller wants to run the
// engine without wiring an observer.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(Event) {}

// MemoryLog is a minimal in-process observer queue, sufficient for tests and
// for the CLI to print a transcript of what an operation did. It preserves
// emission order.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryLog constructs an empty observer queue.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Emit implements Emitter.
func (l *MemoryLog) Emit(e Event) {
	if l == nil || e == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// All returns a copy of every event recorded so far, in emission order.
func (l *MemoryLog) All() []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Reset clears the log.
func (l *MemoryLog) Reset() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
