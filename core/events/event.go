package events

import (
	"sync"

	"nftmarket/core/types"
)

// Event represents a structured state change emitted by the node.
type Event interface {
	EventType() string
}

// Payload is implemented by events that can be rendered into the canonical
// attribute map consumed by subscribers.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events emitted during a single operation so they can be
// released only once the operation's state changes are committed.
type Buffer struct {
	pending []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.pending = append(b.pending, evt)
}

// Flush forwards the buffered events to the target in emission order and
// clears the buffer.
func (b *Buffer) Flush(target Emitter) {
	if b == nil {
		return
	}
	pending := b.pending
	b.pending = nil
	if target == nil {
		return
	}
	for _, evt := range pending {
		target.Emit(evt)
	}
}

// Discard drops all buffered events.
func (b *Buffer) Discard() {
	if b == nil {
		return
	}
	b.pending = nil
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.pending)
}

// Fanout delivers every event to each registered subscriber.
type Fanout struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers []subscription
}

type subscription struct {
	id      uint64
	emitter Emitter
}

// NewFanout constructs a fanout emitter with the provided subscribers. Nil
// subscribers are ignored.
func NewFanout(subscribers ...Emitter) *Fanout {
	f := &Fanout{}
	for _, sub := range subscribers {
		f.Subscribe(sub)
	}
	return f
}

// Subscribe registers an additional subscriber. The returned function removes
// it again and is safe to call more than once.
func (f *Fanout) Subscribe(sub Emitter) func() {
	if f == nil || sub == nil {
		return func() {}
	}
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subscribers = append(f.subscribers, subscription{id: id, emitter: sub})
	f.mu.Unlock()
	return func() { f.unsubscribe(id) }
}

func (f *Fanout) unsubscribe(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, sub := range f.subscribers {
		if sub.id == id {
			f.subscribers = append(f.subscribers[:i:i], f.subscribers[i+1:]...)
			return
		}
	}
}

// Emit implements the Emitter interface.
func (f *Fanout) Emit(evt Event) {
	if f == nil || evt == nil {
		return
	}
	f.mu.RLock()
	subs := append([]subscription(nil), f.subscribers...)
	f.mu.RUnlock()
	for _, sub := range subs {
		sub.emitter.Emit(evt)
	}
}
