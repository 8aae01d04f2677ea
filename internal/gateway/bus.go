package gateway

import (
	"time"

	"github.com/fpt/polyglot/pkg/relay/domain"
)

// EventKind tells which payload an Event carries.
type EventKind int

const (
	EventMessage EventKind = iota
	EventReaction
)

func (k EventKind) String() string {
	if k == EventReaction {
		return "reaction"
	}
	return "message"
}

// Event is one inbound platform notification. Exactly one of Message and
// Reaction is set, matching Kind.
type Event struct {
	Kind       EventKind
	Message    domain.RelayEvent
	Reaction   domain.ReactionEvent
	ReceivedAt time.Time
}

// MessageEvent wraps a message-created notification.
func MessageEvent(ev domain.RelayEvent) Event {
	return Event{Kind: EventMessage, Message: ev, ReceivedAt: time.Now()}
}

// ReactionAddedEvent wraps a reaction-added notification.
func ReactionAddedEvent(ev domain.ReactionEvent) Event {
	return Event{Kind: EventReaction, Reaction: ev, ReceivedAt: time.Now()}
}

// EventBus decouples adapters from the relay.
type EventBus struct {
	Inbound chan Event
}

// NewEventBus creates an event bus with a buffered channel.
func NewEventBus(bufferSize int) *EventBus {
	return &EventBus{Inbound: make(chan Event, bufferSize)}
}
