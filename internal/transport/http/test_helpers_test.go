package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/askroom/internal/config"
	"github.com/vovakirdan/askroom/internal/core"
	"github.com/vovakirdan/askroom/internal/events"
)

// stubBackend answers every room with the configured answer once answers are released.
type stubBackend struct {
	mu         sync.Mutex
	answers    map[string]string
	deliverErr error
	discardErr error
	discarded  []string
}

func newStubBackend() *stubBackend {
	return &stubBackend{answers: make(map[string]string)}
}

func (b *stubBackend) DeliverQuestion(_ context.Context, _, _, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deliverErr
}

func (b *stubBackend) FetchAnswer(_ context.Context, room string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	answer := b.answers[room]
	delete(b.answers, room)
	return answer, nil
}

func (b *stubBackend) DiscardQuestion(_ context.Context, _, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discarded = append(b.discarded, id)
	return b.discardErr
}

func (b *stubBackend) release(room, answer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answers[room] = answer
}

func (b *stubBackend) failDelivery(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliverErr = err
}

func (b *stubBackend) failDiscard(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discardErr = err
}

var errBackendDown = errors.New("backend down")

type testEnv struct {
	hub     *core.Hub
	backend *stubBackend
	server  *httptest.Server
}

func startTestServer(t *testing.T, mutate func(cfg *config.Config)) *testEnv {
	t.Helper()

	disabledLogger := zerolog.New(nil)
	backend := newStubBackend()
	bus := events.NewBus(32, &disabledLogger)

	opts := core.DefaultOptions()
	opts.PollInterval = 5 * time.Millisecond
	sink := events.NewSink(bus.Publisher(), events.Topic, 64, &disabledLogger)
	hub := core.NewHub(backend, &disabledLogger, opts, sink)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	cfg := config.Default()
	cfg.Addr = ":0"
	if mutate != nil {
		mutate(&cfg)
	}

	server := NewServer(hub, bus, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		_ = bus.Close()
		sink.Close()
	})

	return &testEnv{hub: hub, backend: backend, server: ts}
}
