package events

import (
	"github.com/vovakirdan/askroom/internal/core"
	"github.com/vovakirdan/askroom/internal/proto"
)

// MessageToProto converts a transcript entry to its wire form. Pending entries
// carry the placeholder answer.
func MessageToProto(m core.Message) proto.EventMessage {
	out := proto.EventMessage{
		ID:       m.ID,
		Room:     m.Room,
		Question: m.Question,
		Answer:   m.DisplayAnswer(),
		State:    m.State.String(),
		AskedAt:  m.AskedAt.UnixMilli(),
	}
	if !m.AnsweredAt.IsZero() {
		out.AnsweredAt = m.AnsweredAt.UnixMilli()
	}
	return out
}

// MessagesToProto converts a transcript.
func MessagesToProto(msgs []core.Message) []proto.EventMessage {
	out := make([]proto.EventMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageToProto(m))
	}
	return out
}

// Encode converts a hub event to the outbound envelope sent to clients.
func Encode(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomCreated, core.EventRoomSelected:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: event.Kind.String(),
			Data:  proto.EventRoom{Room: event.Room, Busy: event.Busy},
		}
	case core.EventQuestionSubmitted, core.EventAnswerResolved, core.EventAnswerExpired:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: event.Kind.String(),
			Data: proto.EventQuestion{
				Room:    event.Room,
				Busy:    event.Busy,
				Message: MessageToProto(event.Message),
			},
		}
	case core.EventQuestionReset, core.EventQuestionDeleted:
		removed := make([]string, 0, len(event.Removed))
		for _, m := range event.Removed {
			removed = append(removed, m.ID)
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: event.Kind.String(),
			Data: proto.EventRemoved{
				Room:    event.Room,
				ID:      event.MessageID,
				Busy:    event.Busy,
				Removed: removed,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: core.ErrCodeInternal, Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type: proto.OutboundTypeError,
			Error: &proto.Error{
				Code:      event.Error.Code,
				Msg:       event.Error.Message,
				Room:      event.Room,
				MessageID: event.MessageID,
			},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: event.Kind.String()}
	}
}
