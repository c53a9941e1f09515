package core

import "github.com/google/uuid"

// Frame is a raw encoded message.
type Frame []byte

// SessionID is the transport-assigned identifier of one live connection.
type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Notifier delivers outbound protocol messages. Implementations must not
// block: delivery is fire-and-forget.
type Notifier interface {
	// Send delivers msg to one connection; unknown connections are ignored.
	Send(sid SessionID, msg any)
	// Broadcast delivers msg to every live connection.
	Broadcast(msg any)
}
