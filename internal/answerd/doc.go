// Package answerd is the reference answering backend.
//
// It keeps, per room, the latest delivered question, the latest unread answer and the
// latest rollback request in a Queue. A Worker drains the queue on a fixed tick: rollbacks
// first, then questions, which are answered concurrently by an Answerer using the room's
// conversation history. Clients poll answers through the HTTP routes in proto.
package answerd
