package core

// Room is a named conversation with its own transcript.
type Room struct {
	Name      string
	busy      bool
	messages  []*Message
	positions map[string]int
}

// RoomInfo is a read-only view of a room for listings.
type RoomInfo struct {
	Name     string
	Busy     bool
	Messages int
}

// NewRoom constructs an empty, idle room.
func NewRoom(name string) *Room {
	return &Room{
		Name:      name,
		positions: make(map[string]int),
	}
}

// Append adds a message at the end of the transcript.
func (r *Room) Append(m *Message) {
	r.positions[m.ID] = len(r.messages)
	r.messages = append(r.messages, m)
}

// Lookup returns the message with the given id.
func (r *Room) Lookup(id string) (*Message, bool) {
	pos, ok := r.positions[id]
	if !ok {
		return nil, false
	}
	return r.messages[pos], true
}

// Remove deletes a single message, keeping the order of the rest.
// Returns the removed message, or nil when the id is unknown.
func (r *Room) Remove(id string) *Message {
	pos, ok := r.positions[id]
	if !ok {
		return nil
	}
	removed := r.messages[pos]
	r.messages = append(r.messages[:pos], r.messages[pos+1:]...)
	delete(r.positions, id)
	for i := pos; i < len(r.messages); i++ {
		r.positions[r.messages[i].ID] = i
	}
	return removed
}

// TruncateAt drops the message with the given id and everything after it.
// Returns the dropped messages in transcript order, or nil when the id is unknown.
func (r *Room) TruncateAt(id string) []*Message {
	pos, ok := r.positions[id]
	if !ok {
		return nil
	}
	dropped := make([]*Message, len(r.messages)-pos)
	copy(dropped, r.messages[pos:])
	for _, m := range dropped {
		delete(r.positions, m.ID)
	}
	r.messages = r.messages[:pos:pos]
	return dropped
}

// HasPending reports whether any message in the room still waits for an answer.
func (r *Room) HasPending() bool {
	for _, m := range r.messages {
		if m.Pending() {
			return true
		}
	}
	return false
}

// Transcript returns a copy of the messages in order.
func (r *Room) Transcript() []Message {
	out := make([]Message, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, *m)
	}
	return out
}

// Info returns the listing view of the room.
func (r *Room) Info() RoomInfo {
	return RoomInfo{Name: r.Name, Busy: r.busy, Messages: len(r.messages)}
}
