package domain

import "github.com/google/uuid"

// RoomID identifies one pairing of a caller and a callee.
type RoomID string

// NewRoomID returns a random UUIDv4 pairing id. Partner lookup relies on
// pairing ids never being reused.
func NewRoomID() RoomID {
	return RoomID(uuid.NewString())
}
