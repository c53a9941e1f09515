package app

import "github.com/dkeye/Ring/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(sid core.SessionID, broadcast bool) BackpressureAction
}

// SimplePolicy drops presence frames, which the next broadcast supersedes,
// and kicks members that cannot take a direct protocol message.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(_ core.SessionID, broadcast bool) BackpressureAction {
	if broadcast {
		return DropFrame
	}
	return KickMember
}
