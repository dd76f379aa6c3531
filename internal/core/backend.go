package core

import "context"

// Backend answers questions out of band. The hub delivers questions,
// polls for answers per room, and asks the backend to forget rolled back questions.
type Backend interface {
	// DeliverQuestion hands a new question to the backend.
	DeliverQuestion(ctx context.Context, question, room, id string) error

	// FetchAnswer returns the next available answer for the room, or "" when none is ready.
	FetchAnswer(ctx context.Context, room string) (string, error)

	// DiscardQuestion tells the backend that the question and everything after it were rolled back.
	DiscardQuestion(ctx context.Context, room, id string) error
}
