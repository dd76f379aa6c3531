package core

// CommandKind describes what the caller wants the hub to do.
type CommandKind int

const (
	// CommandCreateRoom registers a new room and makes it active.
	CommandCreateRoom CommandKind = iota
	// CommandSelectRoom switches the active room.
	CommandSelectRoom
	// CommandSubmitQuestion asks a question in the active room.
	CommandSubmitQuestion
	// CommandResetQuestion rolls the active room back to before a question.
	CommandResetQuestion
	// CommandDeleteQuestion removes a single question from the active room.
	CommandDeleteQuestion
	// CommandSnapshot reads the room listing, the active room and its transcript.
	CommandSnapshot
	// CommandTranscript reads the transcript of a named room.
	CommandTranscript

	commandSubscribe
	commandUnsubscribe
	commandAnswerReady
	commandAnswerExpired
	commandReportError
)

// Command represents an operation executed on the hub loop.
type Command struct {
	Kind      CommandKind
	Room      string
	Text      string
	MessageID string

	answer string
	err    *CoreError
	sub    *Subscriber
	reply  chan Result
}

// Result carries what a command produced.
type Result struct {
	Message  Message
	Messages []Message
	Rooms    []RoomInfo
	Active   string
	Found    bool

	sub *Subscriber
	err error
}
