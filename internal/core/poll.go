package core

import (
	"context"
	"time"
)

// pollTask is the handle a pending message owns while its answer is outstanding.
type pollTask struct {
	id     string
	room   string
	cancel context.CancelFunc
}

func (h *Hub) startPoll(ctx context.Context, id, room string) {
	taskCtx, cancel := context.WithCancel(ctx)
	task := &pollTask{id: id, room: room, cancel: cancel}
	h.tasks[id] = task

	h.polls.Add(1)
	go func() {
		defer h.polls.Done()
		h.poll(taskCtx, task)
	}()
}

func (h *Hub) stopPoll(id string) {
	task, ok := h.tasks[id]
	if !ok {
		return
	}
	task.cancel()
	delete(h.tasks, id)
}

// poll fetches answers for the task's room until one arrives, the deadline passes,
// or the task is cancelled. Fetch errors are treated like an empty answer.
func (h *Hub) poll(ctx context.Context, task *pollTask) {
	ticker := time.NewTicker(h.opts.PollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if h.opts.AnswerTimeout > 0 {
		timer := time.NewTimer(h.opts.AnswerTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			h.post(ctx, &Command{Kind: commandAnswerExpired, MessageID: task.id})
			return
		case <-ticker.C:
			answer, err := h.backend.FetchAnswer(ctx, task.room)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				h.log.Debug().Err(err).Str("room", task.room).Str("message_id", task.id).Msg("fetch answer")
				continue
			}
			if answer == "" {
				continue
			}
			h.post(ctx, &Command{Kind: commandAnswerReady, MessageID: task.id, answer: answer})
			return
		}
	}
}
