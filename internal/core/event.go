package core

import "time"

// EventKind is a notification the hub emits to observers.
type EventKind int

const (
	// EventRoomCreated notifies that a room was registered and selected.
	EventRoomCreated EventKind = iota
	// EventRoomSelected notifies that the active room changed.
	EventRoomSelected
	// EventQuestionSubmitted notifies that a pending question was appended.
	EventQuestionSubmitted
	// EventAnswerResolved notifies that a pending question received its answer.
	EventAnswerResolved
	// EventAnswerExpired notifies that polling for an answer gave up.
	EventAnswerExpired
	// EventQuestionReset notifies that a room was rolled back.
	EventQuestionReset
	// EventQuestionDeleted notifies that a single question was removed.
	EventQuestionDeleted
	// EventError notifies observers about a recoverable failure.
	EventError
)

var eventNames = map[EventKind]string{
	EventRoomCreated:       "room_created",
	EventRoomSelected:      "room_selected",
	EventQuestionSubmitted: "question_submitted",
	EventAnswerResolved:    "answer_resolved",
	EventAnswerExpired:     "answer_expired",
	EventQuestionReset:     "question_reset",
	EventQuestionDeleted:   "question_deleted",
	EventError:             "error",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event describes a state change in the hub.
type Event struct {
	Kind      EventKind
	Room      string
	MessageID string
	Message   Message   // set for question and answer events
	Removed   []Message // messages dropped by reset or delete
	Busy      bool      // busy flag of Room after the change
	Error     *CoreError
	At        time.Time
}

// EventSink receives every event the hub emits, after local subscribers.
type EventSink interface {
	Publish(event *Event) error
}
