package core

import "time"

// PendingAnswer is shown in place of an answer that has not arrived yet.
const PendingAnswer = "thinking..."

// MessageState tracks where a question is in its answer lifecycle.
type MessageState int

const (
	// StatePending means the answer is still being polled for.
	StatePending MessageState = iota
	// StateAnswered means the backend delivered an answer.
	StateAnswered
	// StateExpired means polling gave up after the configured answer timeout.
	StateExpired
)

func (s MessageState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAnswered:
		return "answered"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Message is one question/answer pair in a room transcript.
type Message struct {
	ID         string
	Room       string
	Question   string
	Answer     string
	State      MessageState
	AskedAt    time.Time
	AnsweredAt time.Time
}

// Pending reports whether the message still waits for its answer.
func (m Message) Pending() bool {
	return m.State == StatePending
}

// DisplayAnswer returns the answer text, or the pending placeholder.
func (m Message) DisplayAnswer() string {
	if m.State == StatePending {
		return PendingAnswer
	}
	return m.Answer
}
