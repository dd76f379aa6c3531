package answerd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkInterval is how often the worker drains the queue.
const DefaultWorkInterval = 3 * time.Second

// Worker answers queued questions on a fixed tick and keeps each room's history.
type Worker struct {
	queue    Queue
	answerer Answerer
	interval time.Duration
	log      *zerolog.Logger

	mu       sync.Mutex
	history  map[string][]Turn
	inflight map[string]*flight
}

// flight is a question currently being answered.
type flight struct {
	id      string
	dropped bool
}

func NewWorker(queue Queue, answerer Answerer, interval time.Duration, logger *zerolog.Logger) *Worker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if interval <= 0 {
		interval = DefaultWorkInterval
	}
	l := logger.With().Str("component", "answerd.worker").Logger()
	return &Worker{
		queue:    queue,
		answerer: answerer,
		interval: interval,
		log:      &l,
		history:  make(map[string][]Turn),
		inflight: make(map[string]*flight),
	}
}

// Deliver queues a question, replacing any unanswered one of the same room.
func (w *Worker) Deliver(ctx context.Context, q Question) error {
	if err := w.queue.PutQuestion(ctx, q); err != nil {
		return err
	}
	w.log.Debug().Str("room", q.Room).Str("id", q.ID).Msg("question queued")
	return nil
}

// Fetch pops the room's unread answer, "" when there is none.
func (w *Worker) Fetch(ctx context.Context, room string) (string, error) {
	return w.queue.TakeAnswer(ctx, room)
}

// Discard queues a rollback. An answer still being produced for the discarded
// question (or a later one) is thrown away when it completes.
func (w *Worker) Discard(ctx context.Context, d Discard) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.queue.PutDiscard(ctx, d); err != nil {
		return err
	}
	if f := w.inflight[d.Room]; f != nil && notBefore(f.id, d.ID) {
		f.dropped = true
	}
	w.log.Debug().Str("room", d.Room).Str("id", d.ID).Msg("discard queued")
	return nil
}

// History returns a copy of the room's answered turns.
func (w *Worker) History(room string) []Turn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Turn(nil), w.history[room]...)
}

// Run ticks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Msg("worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopped")
			return nil
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Error().Err(err).Msg("worker tick failed")
			}
		}
	}
}

// Tick applies queued rollbacks, then answers every queued question, one
// goroutine per room, and waits for all of them.
func (w *Worker) Tick(ctx context.Context) error {
	discards, err := w.queue.TakeDiscards(ctx)
	if err != nil {
		return fmt.Errorf("take discards: %w", err)
	}
	for _, d := range discards {
		w.rollback(d)
	}

	// Taking questions and marking them in flight share one critical section with
	// Discard, so a discard either drops the queued question or the in-flight answer.
	w.mu.Lock()
	questions, err := w.queue.TakeQuestions(ctx)
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("take questions: %w", err)
	}
	jobs := make([]job, 0, len(questions))
	for _, q := range questions {
		jobs = append(jobs, w.begin(q))
	}
	w.mu.Unlock()

	if len(jobs) == 0 {
		return nil
	}

	var g errgroup.Group
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			return w.answer(ctx, j.question, j.history, j.flight)
		})
	}
	return g.Wait()
}

type job struct {
	question Question
	history  []Turn
	flight   *flight
}

// begin records q as in flight. w.mu must be held.
func (w *Worker) begin(q Question) job {
	f := &flight{id: q.ID}
	w.inflight[q.Room] = f
	return job{question: q, history: append([]Turn(nil), w.history[q.Room]...), flight: f}
}

func (w *Worker) answer(ctx context.Context, q Question, history []Turn, f *flight) error {
	text, err := w.answerer.Answer(ctx, history, q.Text)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inflight[q.Room] == f {
		delete(w.inflight, q.Room)
	}

	if err != nil {
		w.log.Warn().Err(err).Str("room", q.Room).Str("id", q.ID).Msg("answer failed")
		return nil
	}
	if f.dropped {
		w.log.Debug().Str("room", q.Room).Str("id", q.ID).Msg("answer discarded")
		return nil
	}
	if text == "" {
		w.log.Warn().Str("room", q.Room).Str("id", q.ID).Msg("empty answer not stored")
		return nil
	}

	w.history[q.Room] = append(w.history[q.Room], Turn{ID: q.ID, Question: q.Text, Answer: text})
	if err := w.queue.PutAnswer(ctx, Answer{Room: q.Room, ID: q.ID, Text: text}); err != nil {
		return fmt.Errorf("store answer for room %s: %w", q.Room, err)
	}
	w.log.Debug().Str("room", q.Room).Str("id", q.ID).Int("turns", len(w.history[q.Room])).Msg("answer stored")
	return nil
}

// rollback drops the turn d.ID and everything after it. An id the room never
// answered clears the whole history.
func (w *Worker) rollback(d Discard) {
	w.mu.Lock()
	defer w.mu.Unlock()

	turns := w.history[d.Room]
	keep := 0
	for i, turn := range turns {
		if turn.ID == d.ID {
			keep = i
			break
		}
	}
	if keep == 0 {
		delete(w.history, d.Room)
	} else {
		w.history[d.Room] = turns[:keep]
	}
	w.log.Debug().Str("room", d.Room).Str("id", d.ID).Int("turns", keep).Msg("history rolled back")
}
