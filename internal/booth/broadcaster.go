package booth

import (
	"sync"

	"github.com/kozaktomas/photo-booth/internal/constants"
)

// Event types sent to view listeners.
const (
	EventSlots     = "slots"
	EventPrint     = "print"
	EventOwner     = "owner"
	EventPollError = "poll_error"
	EventClosed    = "closed"
)

// Event is a change notification of a template view.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster fans events out to listeners. Slow listeners drop events
// instead of blocking the sender.
type EventBroadcaster struct {
	listeners []chan Event
	closed    bool
	mu        sync.RWMutex
}

// AddListener adds an event listener. Listeners added after Close receive a
// closed channel.
func (b *EventBroadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// CloseListeners sends a final closed event and closes every listener.
func (b *EventBroadcaster) CloseListeners() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, listener := range b.listeners {
		select {
		case listener <- Event{Type: EventClosed}:
		default:
		}
		close(listener)
	}
	b.listeners = nil
}
