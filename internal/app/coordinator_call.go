package app

import (
	"time"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
	"github.com/dkeye/Ring/internal/metrics"
	"github.com/rs/zerolog/log"
)

func (c *Coordinator) callRequest(sid, target core.SessionID) {
	reject := func(err error) {
		metrics.Calls.WithLabelValues("rejected").Inc()
		log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("target", string(target)).Str("reason", domain.Code(err)).Msg("call request rejected")
		c.out.Send(sid, core.CallRequestAck{Type: core.TypeCallRequestAck, Reason: domain.Code(err)})
	}

	caller, ok := c.Registry.Lookup(sid)
	if !ok {
		reject(domain.ErrNotJoined)
		return
	}
	if target == sid {
		reject(domain.ErrInvalidTarget)
		return
	}
	callee, ok := c.Registry.Lookup(target)
	if !ok {
		reject(domain.ErrTargetNotFound)
		return
	}
	if callee.State != domain.Idle {
		reject(domain.ErrTargetBusy)
		return
	}
	if caller.State != domain.Idle {
		reject(domain.ErrCallerBusy)
		return
	}

	room := domain.NewRoomID()
	if err := c.Registry.Transition(sid, domain.Calling, room); err != nil {
		c.heal(err, sid)
		reject(domain.ErrCallerBusy)
		return
	}
	inv := &invitation{room: room, caller: sid, callee: target}
	if c.ringTimeout > 0 {
		inv.timer = time.AfterFunc(c.ringTimeout, func() {
			c.Dispatch(Event{Kind: EventRingTimeout, From: sid, Room: room})
		})
	}
	c.invites[room] = inv
	metrics.Calls.WithLabelValues("requested").Inc()
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("target", string(target)).Str("room", string(room)).Msg("call requested")

	c.out.Send(target, core.IncomingCall{
		Type:           core.TypeIncomingCall,
		Caller:         sid,
		CallerName:     caller.Username,
		CallerEndpoint: caller.Endpoint,
		Room:           room,
	})
	c.out.Send(sid, core.CallRequestAck{Type: core.TypeCallRequestAck, Success: true, Room: room})
	c.broadcastPresence()
}

func (c *Coordinator) callAccept(sid, callerSID core.SessionID, room domain.RoomID) {
	fail := func(err error) {
		log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("caller", string(callerSID)).Str("room", string(room)).Str("reason", domain.Code(err)).Msg("accept failed")
		c.out.Send(sid, core.JoinFailed{Type: core.TypeJoinFailed, Reason: domain.Code(err)})
	}

	acceptor, ok := c.Registry.Lookup(sid)
	if !ok {
		log.Debug().Str("module", "app.coordinator").Str("sid", string(sid)).Msg("accept from unknown session")
		return
	}
	if acceptor.State != domain.Idle {
		fail(domain.ErrCallerBusy)
		return
	}
	caller, ok := c.Registry.Lookup(callerSID)
	if !ok {
		fail(domain.ErrCallerGone)
		return
	}
	inv := c.invites[room]
	if room == "" || caller.State != domain.Calling || caller.Room != room ||
		inv == nil || inv.caller != callerSID || inv.callee != sid {
		fail(domain.ErrStaleInvitation)
		return
	}

	c.dropInvite(inv)
	if err := c.Registry.Transition(callerSID, domain.InCall, room); err != nil {
		c.heal(err, callerSID)
		fail(domain.ErrStaleInvitation)
		return
	}
	if err := c.Registry.Transition(sid, domain.InCall, room); err != nil {
		c.heal(err, callerSID, sid)
		c.out.Send(callerSID, core.CallEnded{Type: core.TypeCallEnded, Room: room})
		fail(domain.ErrStaleInvitation)
		return
	}
	metrics.Calls.WithLabelValues("accepted").Inc()
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("caller", string(callerSID)).Str("room", string(room)).Msg("call accepted")

	c.out.Send(callerSID, core.CallAccepted{
		Type:             core.TypeCallAccepted,
		Acceptor:         sid,
		AcceptorName:     acceptor.Username,
		AcceptorEndpoint: acceptor.Endpoint,
		Room:             room,
	})
	c.declineInvitesTo(sid, core.DeclineBusy)
	c.declineInvitesTo(callerSID, core.DeclineBusy)
	c.broadcastPresence()
}

// callDecline cancels the caller's pending invitation when it really was
// addressed to sid. Anything else is a silent no-op, which also makes a
// repeated decline harmless.
func (c *Coordinator) callDecline(sid, callerSID core.SessionID, room domain.RoomID) {
	var inv *invitation
	if room != "" {
		inv = c.invites[room]
	} else {
		for _, candidate := range c.invites {
			if candidate.caller == callerSID && candidate.callee == sid {
				inv = candidate
				break
			}
		}
	}
	if inv == nil || inv.caller != callerSID || inv.callee != sid {
		log.Debug().Str("module", "app.coordinator").Str("sid", string(sid)).Str("caller", string(callerSID)).Msg("decline without matching invitation")
		return
	}

	decliner, _ := c.Registry.Lookup(sid)
	c.dropInvite(inv)
	c.toIdle(callerSID)
	metrics.Calls.WithLabelValues("declined").Inc()
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("caller", string(callerSID)).Str("room", string(inv.room)).Msg("call declined")

	c.out.Send(callerSID, core.CallDeclined{Type: core.TypeCallDeclined, ByName: decliner.Username, Room: inv.room})
	c.broadcastPresence()
}

// callEnd hangs up sid's call or withdraws its pending invitation.
func (c *Coordinator) callEnd(sid core.SessionID, room domain.RoomID) {
	u, ok := c.Registry.Lookup(sid)
	if !ok || room == "" || u.Room != room {
		log.Debug().Str("module", "app.coordinator").Str("sid", string(sid)).Str("room", string(room)).Msg("end for a room the session does not hold")
		return
	}

	if inv, ok := c.invites[room]; ok {
		c.dropInvite(inv)
		c.out.Send(inv.callee, core.CallCancelled{Type: core.TypeCallCancelled, Room: room})
	}
	partner, hasPartner := c.Registry.Partner(sid)
	c.toIdle(sid)
	if hasPartner {
		c.toIdle(partner)
		c.out.Send(partner, core.CallEnded{Type: core.TypeCallEnded, Room: room})
	}
	metrics.Calls.WithLabelValues("ended").Inc()
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("room", string(room)).Msg("call ended")
	c.broadcastPresence()
}

func (c *Coordinator) ringTimedOut(room domain.RoomID) {
	inv, ok := c.invites[room]
	if !ok {
		return
	}
	callee, _ := c.Registry.Lookup(inv.callee)
	c.dropInvite(inv)
	c.toIdle(inv.caller)
	metrics.Calls.WithLabelValues("timeout").Inc()
	log.Info().Str("module", "app.coordinator").Str("sid", string(inv.caller)).Str("room", string(room)).Msg("call not answered")

	c.out.Send(inv.caller, core.CallDeclined{
		Type:   core.TypeCallDeclined,
		ByName: callee.Username,
		Room:   room,
		Reason: core.DeclineTimeout,
	})
	c.out.Send(inv.callee, core.CallCancelled{Type: core.TypeCallCancelled, Room: room})
	c.broadcastPresence()
}

// declineInvitesTo turns down every invitation still ringing at callee on
// its behalf.
func (c *Coordinator) declineInvitesTo(callee core.SessionID, reason string) {
	u, _ := c.Registry.Lookup(callee)
	for room, inv := range c.invites {
		if inv.callee != callee {
			continue
		}
		c.dropInvite(inv)
		c.toIdle(inv.caller)
		metrics.Calls.WithLabelValues("declined").Inc()
		c.out.Send(inv.caller, core.CallDeclined{
			Type:   core.TypeCallDeclined,
			ByName: u.Username,
			Room:   room,
			Reason: reason,
		})
	}
}

// cancelInvitesFrom withdraws invitations sent by caller.
func (c *Coordinator) cancelInvitesFrom(caller core.SessionID) {
	for room, inv := range c.invites {
		if inv.caller != caller {
			continue
		}
		c.dropInvite(inv)
		c.out.Send(inv.callee, core.CallCancelled{Type: core.TypeCallCancelled, Room: room})
	}
}

func (c *Coordinator) dropInvite(inv *invitation) {
	if inv.timer != nil {
		inv.timer.Stop()
	}
	delete(c.invites, inv.room)
}
