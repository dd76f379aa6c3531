package answerd

import "context"

// Turn is one answered exchange of a room's history.
type Turn struct {
	ID       string
	Question string
	Answer   string
}

// Answerer produces an answer for a question given the room's earlier turns.
type Answerer interface {
	Answer(ctx context.Context, history []Turn, question string) (string, error)
}

// EchoAnswerer answers every question by echoing it. Useful for local runs and tests.
type EchoAnswerer struct{}

func (EchoAnswerer) Answer(_ context.Context, _ []Turn, question string) (string, error) {
	return "echo: " + question, nil
}

// AnswererFunc adapts a function to the Answerer interface.
type AnswererFunc func(ctx context.Context, history []Turn, question string) (string, error)

func (f AnswererFunc) Answer(ctx context.Context, history []Turn, question string) (string, error) {
	return f(ctx, history, question)
}
