package core

import (
	"github.com/goccy/go-json"

	"github.com/dkeye/Ring/internal/domain"
)

// Outbound message types.
const (
	TypeWelcome        = "welcome"
	TypePresence       = "presence"
	TypeJoined         = "joined"
	TypeJoinFailed     = "join_failed"
	TypeIncomingCall   = "incoming_call"
	TypeCallRequestAck = "call_request_ack"
	TypeCallAccepted   = "call_accepted"
	TypeCallDeclined   = "call_declined"
	TypeCallEnded      = "call_ended"
	TypeCallCancelled  = "call_cancelled"
	TypeSignal         = "signal"
)

// Reasons attached to call_declined when nobody pressed "decline".
const (
	DeclineBusy    = "busy"
	DeclineGone    = "gone"
	DeclineTimeout = "timeout"
)

// PresenceEntry is one line of the presence view.
type PresenceEntry struct {
	ID        SessionID `json:"id"`
	Username  string    `json:"username"`
	Available bool      `json:"available"`
}

type Welcome struct {
	Type string    `json:"type"`
	ID   SessionID `json:"id"`
}

type Presence struct {
	Type  string          `json:"type"`
	Users []PresenceEntry `json:"users"`
}

type Joined struct {
	Type     string    `json:"type"`
	ID       SessionID `json:"id"`
	Username string    `json:"username"`
}

type JoinFailed struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type IncomingCall struct {
	Type           string        `json:"type"`
	Caller         SessionID     `json:"caller"`
	CallerName     string        `json:"caller_name"`
	CallerEndpoint string        `json:"caller_endpoint,omitempty"`
	Room           domain.RoomID `json:"room"`
}

type CallRequestAck struct {
	Type    string        `json:"type"`
	Success bool          `json:"success"`
	Room    domain.RoomID `json:"room,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}

type CallAccepted struct {
	Type             string        `json:"type"`
	Acceptor         SessionID     `json:"acceptor"`
	AcceptorName     string        `json:"acceptor_name"`
	AcceptorEndpoint string        `json:"acceptor_endpoint,omitempty"`
	Room             domain.RoomID `json:"room"`
}

type CallDeclined struct {
	Type   string        `json:"type"`
	ByName string        `json:"by_name"`
	Room   domain.RoomID `json:"room"`
	Reason string        `json:"reason,omitempty"`
}

type CallEnded struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
}

type CallCancelled struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
}

// SignalRelay carries an opaque peer negotiation payload between partners.
type SignalRelay struct {
	Type    string          `json:"type"`
	From    SessionID       `json:"from"`
	Room    domain.RoomID   `json:"room"`
	Payload json.RawMessage `json:"payload"`
}
