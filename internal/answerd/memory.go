package answerd

import (
	"context"
	"sort"
	"sync"
)

// MemoryQueue keeps the queue in process memory.
type MemoryQueue struct {
	mu        sync.Mutex
	questions map[string]Question
	answers   map[string]Answer
	discards  map[string]Discard
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		questions: make(map[string]Question),
		answers:   make(map[string]Answer),
		discards:  make(map[string]Discard),
	}
}

func (q *MemoryQueue) PutQuestion(_ context.Context, question Question) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.questions[question.Room] = question
	return nil
}

func (q *MemoryQueue) TakeQuestions(_ context.Context) ([]Question, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Question, 0, len(q.questions))
	for room, question := range q.questions {
		out = append(out, question)
		delete(q.questions, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out, nil
}

func (q *MemoryQueue) PutAnswer(_ context.Context, a Answer) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.answers[a.Room] = a
	return nil
}

func (q *MemoryQueue) TakeAnswer(_ context.Context, room string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	a := q.answers[room]
	delete(q.answers, room)
	return a.Text, nil
}

func (q *MemoryQueue) PutDiscard(_ context.Context, d Discard) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.discards[d.Room] = d
	if question, ok := q.questions[d.Room]; ok && notBefore(question.ID, d.ID) {
		delete(q.questions, d.Room)
	}
	if a, ok := q.answers[d.Room]; ok && notBefore(a.ID, d.ID) {
		delete(q.answers, d.Room)
	}
	return nil
}

func (q *MemoryQueue) TakeDiscards(_ context.Context) ([]Discard, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Discard, 0, len(q.discards))
	for room, d := range q.discards {
		out = append(out, d)
		delete(q.discards, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out, nil
}

func (q *MemoryQueue) Close() error {
	return nil
}
