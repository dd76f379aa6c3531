package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeCreate = "create"
	InboundTypeSelect = "select"
	InboundTypeAsk    = "ask"
	InboundTypeReset  = "reset"
	InboundTypeDelete = "delete"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// RoomData names a room to create or select.
type RoomData struct {
	Room string `json:"room"`
}

// AskData is a question for the active room.
type AskData struct {
	Text string `json:"text"`
}

// MessageRef points at a transcript entry of the active room.
type MessageRef struct {
	ID string `json:"id"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage is a transcript entry as seen by clients.
type EventMessage struct {
	ID         string `json:"id"`
	Room       string `json:"room"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	State      string `json:"state"`
	AskedAt    int64  `json:"asked_at"`
	AnsweredAt int64  `json:"answered_at,omitempty"`
}

// EventRoom notifies about room creation or selection.
type EventRoom struct {
	Room string `json:"room"`
	Busy bool   `json:"busy"`
}

// EventQuestion notifies about a submitted, answered or expired question.
type EventQuestion struct {
	Room    string       `json:"room"`
	Busy    bool         `json:"busy"`
	Message EventMessage `json:"message"`
}

// EventRemoved notifies that transcript entries were reset or deleted.
type EventRemoved struct {
	Room    string   `json:"room"`
	ID      string   `json:"id"`
	Busy    bool     `json:"busy"`
	Removed []string `json:"removed"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code      string `json:"code"`
	Msg       string `json:"msg"`
	Room      string `json:"room,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}
