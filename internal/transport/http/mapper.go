package http

import (
	"encoding/json"
	"errors"

	"github.com/vovakirdan/askroom/internal/core"
	"github.com/vovakirdan/askroom/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeCreate, proto.InboundTypeSelect:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		kind := core.CommandCreateRoom
		if inbound.Type == proto.InboundTypeSelect {
			kind = core.CommandSelectRoom
		}
		return &core.Command{Kind: kind, Room: data.Room}, nil, nil
	case proto.InboundTypeAsk:
		var data proto.AskData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Text == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "text is required"}, nil
		}
		return &core.Command{Kind: core.CommandSubmitQuestion, Text: data.Text}, nil, nil
	case proto.InboundTypeReset, proto.InboundTypeDelete:
		var data proto.MessageRef
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.ID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "id is required"}, nil
		}
		kind := core.CommandResetQuestion
		if inbound.Type == proto.InboundTypeDelete {
			kind = core.CommandDeleteQuestion
		}
		return &core.Command{Kind: kind, MessageID: data.ID}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

// replyForResult builds the error sent back to the issuing connection, or nil when
// the command succeeded. Backend failures are already broadcast as error events.
func replyForResult(cmd *core.Command, res core.Result, err error) *proto.Error {
	if err != nil {
		if errors.Is(err, core.ErrDeliverFailed) || errors.Is(err, core.ErrDiscardFailed) {
			return nil
		}
		return &proto.Error{Code: core.ErrorCode(err), Msg: err.Error(), Room: cmd.Room, MessageID: cmd.MessageID}
	}
	switch cmd.Kind {
	case core.CommandResetQuestion, core.CommandDeleteQuestion:
		if !res.Found {
			return &proto.Error{Code: core.ErrCodeMessageNotFound, Msg: core.ErrMessageNotFound.Error(), MessageID: cmd.MessageID}
		}
	}
	return nil
}
