package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/askroom/internal/utils"
)

// Options tune the hub's polling behaviour.
type Options struct {
	// PollInterval is the delay between answer fetches for a pending question.
	PollInterval time.Duration
	// AnswerTimeout stops polling for a question after this long. Zero polls forever.
	AnswerTimeout time.Duration
	// EventBuffer is the channel size given to subscribers.
	EventBuffer int
	// Now is the clock used for message ids and timestamps.
	Now func() time.Time
}

// DefaultOptions returns the polling setup of the desktop client: one fetch per second, no limit.
func DefaultOptions() Options {
	return Options{
		PollInterval: time.Second,
		EventBuffer:  32,
		Now:          time.Now,
	}
}

// Hub owns every room and transcript. All state lives on a single goroutine (Run);
// public methods send a command to it and wait for the result.
type Hub struct {
	backend Backend
	log     *zerolog.Logger
	opts    Options
	sinks   []EventSink

	commands chan *Command
	done     chan struct{}

	// Owned by the Run goroutine.
	rooms  map[string]*Room
	order  []string
	active string
	index  map[string]string // message id -> room name
	tasks  map[string]*pollTask
	subs   map[string]*Subscriber
	ids    utils.IDSequence
	polls  sync.WaitGroup
}

// NewHub creates a hub that talks to the given backend.
func NewHub(backend Backend, logger *zerolog.Logger, opts Options, sinks ...EventSink) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	defaults := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaults.EventBuffer
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}
	hubLog := logger.With().Str("component", "hub").Logger()

	return &Hub{
		backend:  backend,
		log:      &hubLog,
		opts:     opts,
		sinks:    sinks,
		commands: make(chan *Command),
		done:     make(chan struct{}),
		rooms:    make(map[string]*Room),
		index:    make(map[string]string),
		tasks:    make(map[string]*pollTask),
		subs:     make(map[string]*Subscriber),
	}
}

// Run processes commands until ctx is cancelled. It returns once every poll task has stopped.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case cmd := <-h.commands:
			h.handleCommand(ctx, cmd)
		}
	}
}

func (h *Hub) shutdown() {
	for id, task := range h.tasks {
		task.cancel()
		delete(h.tasks, id)
	}
	h.polls.Wait()
	for id, sub := range h.subs {
		close(sub.Events)
		delete(h.subs, id)
	}
	h.log.Debug().Msg("hub stopped")
}

// Execute runs a command on the hub loop. Submit and reset also talk to the backend
// after the local state change, exactly as the dedicated methods do.
func (h *Hub) Execute(ctx context.Context, cmd Command) (Result, error) {
	switch cmd.Kind {
	case CommandSubmitQuestion:
		msg, err := h.SubmitQuestion(ctx, cmd.Text)
		return Result{Message: msg, Found: msg.ID != ""}, err
	case CommandResetQuestion:
		found, err := h.ResetQuestion(ctx, cmd.MessageID)
		return Result{Found: found}, err
	case CommandCreateRoom, CommandSelectRoom, CommandDeleteQuestion, CommandSnapshot, CommandTranscript:
		return h.send(ctx, &cmd)
	default:
		return Result{}, fmt.Errorf("unknown command %d: %w", cmd.Kind, ErrBadRequest)
	}
}

// CreateRoom registers an empty room and makes it active.
func (h *Hub) CreateRoom(ctx context.Context, name string) error {
	_, err := h.send(ctx, &Command{Kind: CommandCreateRoom, Room: name})
	return err
}

// SelectRoom makes name the active room. The name is not checked.
func (h *Hub) SelectRoom(ctx context.Context, name string) error {
	_, err := h.send(ctx, &Command{Kind: CommandSelectRoom, Room: name})
	return err
}

// ListRooms returns room names in creation order.
func (h *Hub) ListRooms(ctx context.Context) ([]string, error) {
	res, err := h.send(ctx, &Command{Kind: CommandSnapshot})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Rooms))
	for _, r := range res.Rooms {
		names = append(names, r.Name)
	}
	return names, nil
}

// Rooms returns the listing view of every room in creation order.
func (h *Hub) Rooms(ctx context.Context) ([]RoomInfo, error) {
	res, err := h.send(ctx, &Command{Kind: CommandSnapshot})
	if err != nil {
		return nil, err
	}
	return res.Rooms, nil
}

// ActiveRoom returns the name of the selected room, or "" before any room exists.
func (h *Hub) ActiveRoom(ctx context.Context) (string, error) {
	res, err := h.send(ctx, &Command{Kind: CommandSnapshot})
	if err != nil {
		return "", err
	}
	return res.Active, nil
}

// Transcript returns the messages of the active room.
func (h *Hub) Transcript(ctx context.Context) ([]Message, error) {
	res, err := h.send(ctx, &Command{Kind: CommandSnapshot})
	if err != nil {
		return nil, err
	}
	return res.Messages, nil
}

// RoomTranscript returns the messages of a named room.
func (h *Hub) RoomTranscript(ctx context.Context, name string) ([]Message, error) {
	res, err := h.send(ctx, &Command{Kind: CommandTranscript, Room: name})
	if err != nil {
		return nil, err
	}
	return res.Messages, nil
}

// Busy reports whether the named room waits for an answer.
func (h *Hub) Busy(ctx context.Context, name string) (bool, error) {
	rooms, err := h.Rooms(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range rooms {
		if r.Name == name {
			return r.Busy, nil
		}
	}
	return false, ErrRoomNotFound
}

// SubmitQuestion appends a pending question to the active room, starts polling for
// its answer and delivers it to the backend. The returned message is valid even when
// delivery fails; polling continues in that case.
func (h *Hub) SubmitQuestion(ctx context.Context, text string) (Message, error) {
	res, err := h.send(ctx, &Command{Kind: CommandSubmitQuestion, Text: text})
	if err != nil {
		return Message{}, err
	}
	msg := res.Message

	// The message is already pending, so delivery must not be cut short by the caller leaving.
	if err := h.backend.DeliverQuestion(context.WithoutCancel(ctx), msg.Question, msg.Room, msg.ID); err != nil {
		h.log.Warn().Err(err).Str("room", msg.Room).Str("message_id", msg.ID).Msg("deliver question")
		h.report(msg.Room, msg.ID, coreError(ErrCodeDeliverFailed, err.Error()))
		return msg, fmt.Errorf("%w: %v", ErrDeliverFailed, err)
	}
	return msg, nil
}

// ResetQuestion rolls the active room back to before the message and tells the backend.
// An unknown id is a no-op and returns false.
func (h *Hub) ResetQuestion(ctx context.Context, id string) (bool, error) {
	res, err := h.send(ctx, &Command{Kind: CommandResetQuestion, MessageID: id})
	if err != nil || !res.Found {
		return false, err
	}

	room := res.Active
	if err := h.backend.DiscardQuestion(context.WithoutCancel(ctx), room, id); err != nil {
		h.log.Warn().Err(err).Str("room", room).Str("message_id", id).Msg("discard question")
		h.report(room, id, coreError(ErrCodeDiscardFailed, err.Error()))
		return true, fmt.Errorf("%w: %v", ErrDiscardFailed, err)
	}
	return true, nil
}

// DeleteQuestion removes one message from the active room without telling the backend.
// An unknown id is a no-op and returns false.
func (h *Hub) DeleteQuestion(ctx context.Context, id string) (bool, error) {
	res, err := h.send(ctx, &Command{Kind: CommandDeleteQuestion, MessageID: id})
	return res.Found, err
}

// Subscribe registers a new observer of hub events.
func (h *Hub) Subscribe(ctx context.Context) (*Subscriber, error) {
	res, err := h.send(ctx, &Command{Kind: commandSubscribe, sub: NewSubscriber(h.opts.EventBuffer)})
	if err != nil {
		return nil, err
	}
	return res.sub, nil
}

// Unsubscribe removes the observer and closes its channel.
func (h *Hub) Unsubscribe(ctx context.Context, sub *Subscriber) error {
	_, err := h.send(ctx, &Command{Kind: commandUnsubscribe, sub: sub})
	return err
}

func (h *Hub) send(ctx context.Context, cmd *Command) (Result, error) {
	cmd.reply = make(chan Result, 1)

	select {
	case h.commands <- cmd:
	case <-h.done:
		return Result{}, ErrHubStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	// The loop has taken the command and will apply it, so its result is returned
	// even if ctx ends meanwhile.
	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-h.done:
		select {
		case res := <-cmd.reply:
			return res, res.err
		default:
			return Result{}, ErrHubStopped
		}
	}
}

// post hands an internal command to the loop without waiting for a reply.
func (h *Hub) post(ctx context.Context, cmd *Command) {
	select {
	case h.commands <- cmd:
	case <-h.done:
	case <-ctx.Done():
	}
}

func (h *Hub) report(room, id string, cerr *CoreError) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.post(ctx, &Command{Kind: commandReportError, Room: room, MessageID: id, err: cerr})
}

func (h *Hub) handleCommand(ctx context.Context, cmd *Command) {
	var res Result

	switch cmd.Kind {
	case CommandCreateRoom:
		res.err = h.createRoom(cmd.Room)
	case CommandSelectRoom:
		h.selectRoom(cmd.Room)
	case CommandSubmitQuestion:
		res.Message, res.err = h.submitQuestion(ctx, cmd.Text)
	case CommandResetQuestion:
		res.Active = h.active
		res.Found = h.resetQuestion(cmd.MessageID)
	case CommandDeleteQuestion:
		res.Found = h.deleteQuestion(cmd.MessageID)
	case CommandSnapshot:
		res = h.snapshot()
	case CommandTranscript:
		room, ok := h.rooms[cmd.Room]
		if !ok {
			res.err = ErrRoomNotFound
			break
		}
		res.Messages = room.Transcript()
		res.Found = true
	case commandSubscribe:
		h.subs[cmd.sub.ID] = cmd.sub
		res.sub = cmd.sub
	case commandUnsubscribe:
		if _, ok := h.subs[cmd.sub.ID]; ok {
			delete(h.subs, cmd.sub.ID)
			close(cmd.sub.Events)
		}
	case commandAnswerReady:
		h.resolveAnswer(cmd.MessageID, cmd.answer)
	case commandAnswerExpired:
		h.expireAnswer(cmd.MessageID)
	case commandReportError:
		h.emit(&Event{Kind: EventError, Room: cmd.Room, MessageID: cmd.MessageID, Error: cmd.err})
	default:
		res.err = fmt.Errorf("unknown command %d: %w", cmd.Kind, ErrBadRequest)
	}

	if cmd.reply != nil {
		cmd.reply <- res
	}
}

func (h *Hub) createRoom(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("room name is required: %w", ErrBadRequest)
	}
	if _, exists := h.rooms[name]; exists {
		h.log.Debug().Str("room", name).Msg("duplicate room name rejected")
		return ErrDuplicateRoom
	}

	room := NewRoom(name)
	h.rooms[name] = room
	h.order = append(h.order, name)
	h.active = name

	h.log.Info().Str("room", name).Msg("room created")
	h.emit(&Event{Kind: EventRoomCreated, Room: name})
	return nil
}

func (h *Hub) selectRoom(name string) {
	h.active = name
	busy := false
	if room, ok := h.rooms[name]; ok {
		busy = room.busy
	}
	h.emit(&Event{Kind: EventRoomSelected, Room: name, Busy: busy})
}

func (h *Hub) submitQuestion(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, fmt.Errorf("question is required: %w", ErrBadRequest)
	}
	if h.active == "" {
		return Message{}, ErrNoActiveRoom
	}
	room, ok := h.rooms[h.active]
	if !ok {
		return Message{}, fmt.Errorf("active room %q: %w", h.active, ErrRoomNotFound)
	}

	now := h.opts.Now()
	msg := &Message{
		ID:       h.ids.Next(now),
		Room:     room.Name,
		Question: text,
		State:    StatePending,
		AskedAt:  now,
	}
	room.Append(msg)
	h.index[msg.ID] = room.Name
	room.busy = true

	h.startPoll(ctx, msg.ID, room.Name)

	h.log.Debug().Str("room", room.Name).Str("message_id", msg.ID).Msg("question submitted")
	h.emit(&Event{Kind: EventQuestionSubmitted, Room: room.Name, MessageID: msg.ID, Message: *msg, Busy: true})
	return *msg, nil
}

func (h *Hub) resetQuestion(id string) bool {
	room, ok := h.rooms[h.active]
	if !ok {
		return false
	}
	dropped := room.TruncateAt(id)
	if dropped == nil {
		return false
	}

	removed := h.release(room, dropped)
	h.log.Debug().Str("room", room.Name).Str("message_id", id).Int("removed", len(removed)).Msg("room rolled back")
	h.emit(&Event{Kind: EventQuestionReset, Room: room.Name, MessageID: id, Removed: removed, Busy: room.busy})
	return true
}

func (h *Hub) deleteQuestion(id string) bool {
	room, ok := h.rooms[h.active]
	if !ok {
		return false
	}
	msg := room.Remove(id)
	if msg == nil {
		return false
	}

	removed := h.release(room, []*Message{msg})
	h.log.Debug().Str("room", room.Name).Str("message_id", id).Msg("question deleted")
	h.emit(&Event{Kind: EventQuestionDeleted, Room: room.Name, MessageID: id, Removed: removed, Busy: room.busy})
	return true
}

// release forgets removed messages: index entries go away and pending ones lose their poll task.
// Busy is recomputed only when a pending message was removed, since nothing else could clear it.
func (h *Hub) release(room *Room, dropped []*Message) []Message {
	removed := make([]Message, 0, len(dropped))
	hadPending := false
	for _, m := range dropped {
		delete(h.index, m.ID)
		if m.Pending() {
			hadPending = true
			h.stopPoll(m.ID)
		}
		removed = append(removed, *m)
	}
	if hadPending {
		room.busy = room.HasPending()
	}
	return removed
}

func (h *Hub) resolveAnswer(id, answer string) {
	msg, room, ok := h.locate(id)
	if !ok || !msg.Pending() {
		h.log.Debug().Str("message_id", id).Msg("answer for unknown message dropped")
		h.stopPoll(id)
		return
	}

	msg.Answer = answer
	msg.State = StateAnswered
	msg.AnsweredAt = h.opts.Now()
	h.stopPoll(id)
	room.busy = false

	h.log.Debug().Str("room", room.Name).Str("message_id", id).Msg("answer resolved")
	h.emit(&Event{Kind: EventAnswerResolved, Room: room.Name, MessageID: id, Message: *msg, Busy: false})
}

func (h *Hub) expireAnswer(id string) {
	msg, room, ok := h.locate(id)
	if !ok || !msg.Pending() {
		h.stopPoll(id)
		return
	}

	msg.State = StateExpired
	msg.AnsweredAt = h.opts.Now()
	h.stopPoll(id)
	room.busy = room.HasPending()

	h.log.Warn().Str("room", room.Name).Str("message_id", id).Dur("timeout", h.opts.AnswerTimeout).Msg("answer timed out")
	h.emit(&Event{Kind: EventAnswerExpired, Room: room.Name, MessageID: id, Message: *msg, Busy: room.busy})
}

// locate finds a message anywhere in the hub through the id index.
func (h *Hub) locate(id string) (*Message, *Room, bool) {
	name, ok := h.index[id]
	if !ok {
		return nil, nil, false
	}
	room, ok := h.rooms[name]
	if !ok {
		return nil, nil, false
	}
	msg, ok := room.Lookup(id)
	if !ok {
		return nil, nil, false
	}
	return msg, room, true
}

func (h *Hub) snapshot() Result {
	res := Result{
		Rooms:  make([]RoomInfo, 0, len(h.order)),
		Active: h.active,
	}
	for _, name := range h.order {
		res.Rooms = append(res.Rooms, h.rooms[name].Info())
	}
	if room, ok := h.rooms[h.active]; ok {
		res.Messages = room.Transcript()
		res.Found = true
	} else {
		res.Messages = []Message{}
	}
	return res
}

func (h *Hub) emit(event *Event) {
	if event.At.IsZero() {
		event.At = h.opts.Now()
	}
	for _, sub := range h.subs {
		if !sub.deliver(event) {
			h.log.Debug().Str("subscriber", sub.ID).Str("event", event.Kind.String()).Msg("dropped event for slow subscriber")
		}
	}
	for _, sink := range h.sinks {
		if err := sink.Publish(event); err != nil {
			h.log.Warn().Err(err).Str("event", event.Kind.String()).Msg("publish event")
		}
	}
}
