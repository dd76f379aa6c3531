package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeDuplicateRoom   = "duplicate_room"
	ErrCodeRoomNotFound    = "room_not_found"
	ErrCodeNoActiveRoom    = "no_active_room"
	ErrCodeMessageNotFound = "message_not_found"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeDeliverFailed   = "deliver_failed"
	ErrCodeDiscardFailed   = "discard_failed"
	ErrCodeUnavailable     = "unavailable"
	ErrCodeInternal        = "internal"
)

var (
	ErrDuplicateRoom   = errors.New("room name already exists")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNoActiveRoom    = errors.New("no active room")
	ErrMessageNotFound = errors.New("message not found")
	ErrBadRequest      = errors.New("bad request")
	ErrDeliverFailed   = errors.New("deliver question failed")
	ErrDiscardFailed   = errors.New("discard question failed")
	ErrHubStopped      = errors.New("hub stopped")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// ErrorCode maps an error returned by the hub to its wire code.
func ErrorCode(err error) string {
	var ce *CoreError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ce):
		return ce.Code
	case errors.Is(err, ErrDuplicateRoom):
		return ErrCodeDuplicateRoom
	case errors.Is(err, ErrRoomNotFound):
		return ErrCodeRoomNotFound
	case errors.Is(err, ErrNoActiveRoom):
		return ErrCodeNoActiveRoom
	case errors.Is(err, ErrMessageNotFound):
		return ErrCodeMessageNotFound
	case errors.Is(err, ErrBadRequest):
		return ErrCodeBadRequest
	case errors.Is(err, ErrDeliverFailed):
		return ErrCodeDeliverFailed
	case errors.Is(err, ErrDiscardFailed):
		return ErrCodeDiscardFailed
	case errors.Is(err, ErrHubStopped):
		return ErrCodeUnavailable
	default:
		return ErrCodeInternal
	}
}
