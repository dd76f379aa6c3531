package proto

// Backend HTTP routes served by answerd and called by the hub's backend client.
const (
	BackendPathDeliver = "/api/deliver"
	BackendPathAnswer  = "/api/answer"
	BackendPathDiscard = "/api/discard"
)

// DeliverRequest hands a new question to the answering backend.
type DeliverRequest struct {
	Question string `json:"question" binding:"required"`
	Room     string `json:"room" binding:"required"`
	ID       string `json:"id" binding:"required"`
}

// AnswerRequest polls the next answer of a room.
type AnswerRequest struct {
	Room string `json:"room" binding:"required"`
}

// AnswerResponse carries the answer, empty when none is ready yet.
type AnswerResponse struct {
	Answer string `json:"answer"`
}

// DiscardRequest rolls a room back to before the given question.
type DiscardRequest struct {
	Room string `json:"room" binding:"required"`
	ID   string `json:"id" binding:"required"`
}

// Ack acknowledges deliver and discard requests.
type Ack struct {
	OK bool `json:"ok"`
}

// ErrorBody is returned by the backend on failure.
type ErrorBody struct {
	Error string `json:"error"`
}
