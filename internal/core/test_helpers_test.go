package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

type delivery struct {
	question string
	room     string
	id       string
}

type discard struct {
	room string
	id   string
}

// fakeBackend replays scripted fetch responses per room and records every call.
type fakeBackend struct {
	mu         sync.Mutex
	script     map[string][]string
	fetches    map[string]int
	delivered  []delivery
	discarded  []discard
	deliverErr error
	discardErr error
	fetchErr   error
	onDeliver  func(ctx context.Context)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		script:  make(map[string][]string),
		fetches: make(map[string]int),
	}
}

func (b *fakeBackend) answerAfter(room string, emptyPolls int, answer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < emptyPolls; i++ {
		b.script[room] = append(b.script[room], "")
	}
	b.script[room] = append(b.script[room], answer)
}

func (b *fakeBackend) DeliverQuestion(ctx context.Context, question, room, id string) error {
	if b.onDeliver != nil {
		b.onDeliver(ctx)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delivered = append(b.delivered, delivery{question: question, room: room, id: id})
	return b.deliverErr
}

func (b *fakeBackend) FetchAnswer(_ context.Context, room string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches[room]++
	if b.fetchErr != nil {
		return "", b.fetchErr
	}
	queue := b.script[room]
	if len(queue) == 0 {
		return "", nil
	}
	b.script[room] = queue[1:]
	return queue[0], nil
}

func (b *fakeBackend) DiscardQuestion(_ context.Context, room, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discarded = append(b.discarded, discard{room: room, id: id})
	return b.discardErr
}

func (b *fakeBackend) fetchCount(room string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches[room]
}

func (b *fakeBackend) discards() []discard {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]discard(nil), b.discarded...)
}

func startTestHub(t *testing.T, backend Backend, opts Options) (*Hub, *Subscriber, context.Context) {
	t.Helper()

	if opts.PollInterval == 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(backend, nil, opts)
	go hub.Run(ctx)

	sub, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return hub, sub, ctx
}

func mustCreateRoom(t *testing.T, ctx context.Context, hub *Hub, name string) {
	t.Helper()
	if err := hub.CreateRoom(ctx, name); err != nil {
		t.Fatalf("create room %s: %v", name, err)
	}
}

func mustSubmit(t *testing.T, ctx context.Context, hub *Hub, text string) Message {
	t.Helper()
	msg, err := hub.SubmitQuestion(ctx, text)
	if err != nil {
		t.Fatalf("submit %q: %v", text, err)
	}
	return msg
}

func questions(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Question)
	}
	return out
}
