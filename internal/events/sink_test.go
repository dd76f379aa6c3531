package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/askroom/internal/core"
	"github.com/vovakirdan/askroom/internal/proto"
)

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestSinkPublishesEncodedEvents(t *testing.T) {
	logger := zerolog.New(nil)
	bus := NewBus(8, &logger)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	sink := NewSink(bus.Publisher(), Topic, 8, &logger)
	defer sink.Close()
	asked := time.UnixMilli(1700000000000)
	require.NoError(t, sink.Publish(&core.Event{
		Kind:      core.EventQuestionSubmitted,
		Room:      "general",
		MessageID: "1700000000000",
		Busy:      true,
		Message: core.Message{
			ID:       "1700000000000",
			Room:     "general",
			Question: "why?",
			State:    core.StatePending,
			AskedAt:  asked,
		},
	}))

	msg := receive(t, ch)
	assert.Equal(t, "question_submitted", msg.Metadata.Get(MetadataEvent))
	assert.Equal(t, "general", msg.Metadata.Get(MetadataRoom))

	var out struct {
		Type  string              `json:"type"`
		Event string              `json:"event"`
		Data  proto.EventQuestion `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &out))
	assert.Equal(t, proto.OutboundTypeEvent, out.Type)
	assert.Equal(t, "question_submitted", out.Event)
	assert.True(t, out.Data.Busy)
	assert.Equal(t, core.PendingAnswer, out.Data.Message.Answer)
	assert.Equal(t, "pending", out.Data.Message.State)
	assert.Equal(t, int64(1700000000000), out.Data.Message.AskedAt)
	assert.Zero(t, out.Data.Message.AnsweredAt)
}

func TestSinkKeepsOrderAndRejectsAfterClose(t *testing.T) {
	logger := zerolog.New(nil)
	bus := NewBus(8, &logger)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	sink := NewSink(bus.Publisher(), Topic, 16, &logger)
	kinds := []core.EventKind{core.EventRoomCreated, core.EventQuestionSubmitted, core.EventAnswerResolved, core.EventQuestionDeleted}
	for _, kind := range kinds {
		require.NoError(t, sink.Publish(&core.Event{Kind: kind, Room: "r"}))
	}
	for _, kind := range kinds {
		assert.Equal(t, kind.String(), receive(t, ch).Metadata.Get(MetadataEvent))
	}

	sink.Close()
	assert.ErrorIs(t, sink.Publish(&core.Event{Kind: core.EventRoomCreated}), ErrSinkClosed)
}

func TestEncodeRemovedAndErrors(t *testing.T) {
	out := Encode(&core.Event{
		Kind:      core.EventQuestionReset,
		Room:      "r",
		MessageID: "2",
		Removed:   []core.Message{{ID: "2"}, {ID: "3"}},
	})
	assert.Equal(t, "question_reset", out.Event)
	assert.Equal(t, proto.EventRemoved{Room: "r", ID: "2", Removed: []string{"2", "3"}}, out.Data)

	out = Encode(&core.Event{
		Kind:      core.EventError,
		Room:      "r",
		MessageID: "2",
		Error:     &core.CoreError{Code: core.ErrCodeDiscardFailed, Message: "backend down"},
	})
	assert.Equal(t, proto.OutboundTypeError, out.Type)
	require.NotNil(t, out.Error)
	assert.Equal(t, proto.Error{Code: core.ErrCodeDiscardFailed, Msg: "backend down", Room: "r", MessageID: "2"}, *out.Error)

	out = Encode(&core.Event{Kind: core.EventError})
	require.NotNil(t, out.Error)
	assert.Equal(t, core.ErrCodeInternal, out.Error.Code)
}

func TestMessageToProtoAnswered(t *testing.T) {
	m := core.Message{
		ID:         "5",
		Room:       "r",
		Question:   "q",
		Answer:     "a",
		State:      core.StateAnswered,
		AskedAt:    time.UnixMilli(10),
		AnsweredAt: time.UnixMilli(20),
	}
	assert.Equal(t, proto.EventMessage{
		ID: "5", Room: "r", Question: "q", Answer: "a", State: "answered", AskedAt: 10, AnsweredAt: 20,
	}, MessageToProto(m))
}
