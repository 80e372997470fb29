package service

import "sync"

// Event resources.
const (
	ResourceLayers = "layers"
	ResourceStyles = "styles"
)

// Event actions.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionExported = "exported"
	ActionImported = "imported"
)

// Event is a layer mutation or a finished conversion run.
type Event struct {
	Resource string
	Action   string
	ID       string // layer ID or style name
	Run      string // conversion run ID, empty for layer edits
}

// EventBus is a fan-out pub/sub for change events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers without blocking and reports
// how many received it. Subscribers with a full buffer miss the event.
func (b *EventBus) Publish(e Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for ch := range b.subs {
		select {
		case ch <- e:
			n++
		default:
		}
	}
	return n
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

// DefaultBus is the package-level event bus.
var DefaultBus = NewEventBus()
