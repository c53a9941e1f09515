package app

import (
	"github.com/goccy/go-json"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
	"github.com/rs/zerolog/log"
)

// connect sends a freshly attached connection its first presence
// snapshot. The connection is already reachable by Broadcast, so no
// presence change can fall between the snapshot and the next broadcast.
func (c *Coordinator) connect(sid core.SessionID) {
	c.out.Send(sid, core.Presence{Type: core.TypePresence, Users: c.Registry.Snapshot()})
}

func (c *Coordinator) join(sid core.SessionID, name string) {
	u, err := c.Registry.Register(sid, name)
	if err != nil {
		log.Info().Err(err).Str("module", "app.coordinator").Str("sid", string(sid)).Msg("join failed")
		c.out.Send(sid, core.JoinFailed{Type: core.TypeJoinFailed, Reason: domain.Code(err)})
		return
	}
	c.out.Send(sid, core.Joined{Type: core.TypeJoined, ID: sid, Username: u.Username})
	c.broadcastPresence()
}

func (c *Coordinator) registerEndpoint(sid core.SessionID, endpoint string) {
	if !c.Registry.SetMediaEndpoint(sid, endpoint) {
		log.Debug().Str("module", "app.coordinator").Str("sid", string(sid)).Msg("endpoint for unknown session")
	}
}

// disconnect releases everything sid was part of and forgets it.
func (c *Coordinator) disconnect(sid core.SessionID) {
	u, ok := c.Registry.Lookup(sid)
	if !ok {
		return
	}
	c.cancelInvitesFrom(sid)
	c.declineInvitesTo(sid, core.DeclineGone)
	if u.Room != "" {
		if partner, ok := c.Registry.Partner(sid); ok {
			c.toIdle(partner)
			c.out.Send(partner, core.CallEnded{Type: core.TypeCallEnded, Room: u.Room})
			log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("partner", string(partner)).Str("room", string(u.Room)).Msg("partner left the call")
		}
	}
	c.Registry.Remove(sid)
	c.broadcastPresence()
}

// relaySignal forwards an opaque negotiation payload to sid's partner.
func (c *Coordinator) relaySignal(sid core.SessionID, room domain.RoomID, payload []byte) {
	u, ok := c.Registry.Lookup(sid)
	if !ok || room == "" || u.Room != room {
		log.Debug().Str("module", "app.coordinator").Str("sid", string(sid)).Str("room", string(room)).Msg("signal outside of own room")
		return
	}
	partner, ok := c.Registry.Partner(sid)
	if !ok {
		log.Debug().Str("module", "app.coordinator").Str("sid", string(sid)).Str("room", string(room)).Msg("signal without partner")
		return
	}
	c.out.Send(partner, core.SignalRelay{
		Type:    core.TypeSignal,
		From:    sid,
		Room:    room,
		Payload: json.RawMessage(payload),
	})
}
