package signal

import (
	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
)

// handleWhoAmI reports the caller's own registry entry. Sessions that have
// not joined get only their id back.
func (ctl *SignalWSController) handleWhoAmI(sid core.SessionID, conn core.SignalConnection) {
	resp := struct {
		Type     string           `json:"type"`
		ID       core.SessionID   `json:"id"`
		Joined   bool             `json:"joined"`
		Username string           `json:"username,omitempty"`
		Endpoint string           `json:"endpoint,omitempty"`
		State    domain.CallState `json:"state"`
		Room     domain.RoomID    `json:"room,omitempty"`
	}{
		Type: "whoami",
		ID:   sid,
	}
	if user, ok := ctl.Coord.Registry.Lookup(sid); ok {
		resp.Joined = true
		resp.Username = user.Username
		resp.Endpoint = user.Endpoint
		resp.State = user.State
		resp.Room = user.Room
	}
	ctl.sendJSON(conn, resp)
}
