package events

import (
	"time"
)

// Event represents a generic event structure
type Event struct {
	Type      string
	Timestamp time.Time
	Data      interface{}
}

// RoundCompletedEvent is published after a round's aggregation barrier
type RoundCompletedEvent struct {
	Iteration   int
	AverageLoss float64
}

// ConvergedEvent is published when a run reaches its terminal state
type ConvergedEvent struct {
	Iteration   int
	AverageLoss float64
	Reason      string
}

// ShardStateChangeEvent is published when shard reachability changes
type ShardStateChangeEvent struct {
	BecameReachable   []string
	BecameUnreachable []string
}

// EventBus represents the event bus that handles event subscription and dispatching
type EventBus struct {
	subscribers map[string][]chan<- Event
}

// NewEventBus creates a new instance of the event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan<- Event),
	}
}

// Subscribe adds a new subscriber for a given event type
func (eb *EventBus) Subscribe(eventType string, subscriber chan<- Event) {
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// Publish sends an event to all subscribers of a given event type
func (eb *EventBus) Publish(event Event) {
	subscribers := eb.subscribers[event.Type]
	for _, subscriber := range subscribers {
		subscriber <- event
	}
}
