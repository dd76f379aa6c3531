package answerd

import (
	"context"
	"strconv"
)

// Question is a delivered question waiting to be answered.
type Question struct {
	Room string `json:"room"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Answer is a produced answer waiting to be fetched. ID is the question it answers.
type Answer struct {
	Room string `json:"room"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Discard asks to roll a room back to before the question ID.
type Discard struct {
	Room string `json:"room"`
	ID   string `json:"id"`
}

// Queue stores pending work per room. Each Put replaces what the room had before;
// each Take removes what it returns.
//
// PutDiscard also drops the room's queued question and unread answer when they
// belong to the discarded question or a later one.
type Queue interface {
	PutQuestion(ctx context.Context, q Question) error
	TakeQuestions(ctx context.Context) ([]Question, error)

	PutAnswer(ctx context.Context, a Answer) error
	// TakeAnswer returns "" when the room has no unread answer.
	TakeAnswer(ctx context.Context, room string) (string, error)

	PutDiscard(ctx context.Context, d Discard) error
	TakeDiscards(ctx context.Context) ([]Discard, error)

	Close() error
}

// notBefore reports whether question id a was asked at or after b.
// Ids are millisecond timestamps; anything else falls back to string order.
func notBefore(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return ai >= bi
	}
	return a >= b
}
