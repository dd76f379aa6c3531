package core

import "github.com/google/uuid"

// Subscriber observes hub events through a buffered channel.
type Subscriber struct {
	ID     string
	Events chan *Event
}

// NewSubscriber constructs a subscriber with the given buffer size.
func NewSubscriber(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 1
	}
	return &Subscriber{
		ID:     uuid.NewString(),
		Events: make(chan *Event, buffer),
	}
}

func (s *Subscriber) deliver(event *Event) bool {
	select {
	case s.Events <- event:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}
