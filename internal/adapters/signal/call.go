package signal

import (
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/dkeye/Ring/internal/app"
	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
	"github.com/rs/zerolog/log"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodePayload unmarshals and validates an inbound message, answering
// bad_payload on failure.
func (ctl *SignalWSController) decodePayload(sid core.SessionID, c core.SignalConnection, data []byte, p any) bool {
	if err := json.Unmarshal(data, p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad payload")
		ctl.sendError(c, "bad_payload")
		return false
	}
	if err := validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("invalid payload")
		ctl.sendError(c, "bad_payload")
		return false
	}
	return true
}

func (ctl *SignalWSController) handleJoin(sid core.SessionID, c core.SignalConnection, data []byte) {
	// Name rules live in the domain so a bad name comes back as join_failed.
	var p struct {
		Name string `json:"name"`
	}
	if !ctl.decodePayload(sid, c, data, &p) {
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("name", p.Name).Msg("join")
	ctl.Coord.Dispatch(app.Event{Kind: app.EventJoin, From: sid, Name: p.Name})
}

func (ctl *SignalWSController) handleRegisterEndpoint(sid core.SessionID, c core.SignalConnection, data []byte) {
	var p struct {
		Endpoint string `json:"endpoint" validate:"required,max=256"`
	}
	if !ctl.decodePayload(sid, c, data, &p) {
		return
	}
	ctl.Coord.Dispatch(app.Event{Kind: app.EventRegisterEndpoint, From: sid, Endpoint: p.Endpoint})
}

func (ctl *SignalWSController) handleCallRequest(sid core.SessionID, client string, c core.SignalConnection, data []byte) {
	var p struct {
		Target string `json:"target" validate:"required,max=64"`
	}
	if !ctl.decodePayload(sid, c, data, &p) {
		return
	}
	key := client
	if key == "" {
		key = string(sid)
	}
	if !ctl.Limiter.Allow(key) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("client", client).Msg("call request rate limited")
		ctl.sendJSON(c, core.CallRequestAck{Type: core.TypeCallRequestAck, Reason: domain.ErrRateLimited.Code})
		return
	}
	ctl.Coord.Dispatch(app.Event{Kind: app.EventCallRequest, From: sid, Peer: core.SessionID(p.Target)})
}

func (ctl *SignalWSController) handleCallAccept(sid core.SessionID, c core.SignalConnection, data []byte) {
	var p struct {
		Caller string `json:"caller" validate:"required,max=64"`
		Room   string `json:"room" validate:"required,max=64"`
	}
	if !ctl.decodePayload(sid, c, data, &p) {
		return
	}
	ctl.Coord.Dispatch(app.Event{
		Kind: app.EventCallAccept,
		From: sid,
		Peer: core.SessionID(p.Caller),
		Room: domain.RoomID(p.Room),
	})
}

func (ctl *SignalWSController) handleCallDecline(sid core.SessionID, c core.SignalConnection, data []byte) {
	var p struct {
		Caller string `json:"caller" validate:"required,max=64"`
		Room   string `json:"room" validate:"omitempty,max=64"`
	}
	if !ctl.decodePayload(sid, c, data, &p) {
		return
	}
	ctl.Coord.Dispatch(app.Event{
		Kind: app.EventCallDecline,
		From: sid,
		Peer: core.SessionID(p.Caller),
		Room: domain.RoomID(p.Room),
	})
}

func (ctl *SignalWSController) handleCallEnd(sid core.SessionID, c core.SignalConnection, data []byte) {
	var p struct {
		Room string `json:"room" validate:"required,max=64"`
	}
	if !ctl.decodePayload(sid, c, data, &p) {
		return
	}
	ctl.Coord.Dispatch(app.Event{Kind: app.EventCallEnd, From: sid, Room: domain.RoomID(p.Room)})
}

// handleRelay passes offer/answer/candidate payloads through untouched.
func (ctl *SignalWSController) handleRelay(sid core.SessionID, c core.SignalConnection, data []byte) {
	var p struct {
		Room    string          `json:"room" validate:"required,max=64"`
		Payload json.RawMessage `json:"payload" validate:"required"`
	}
	if !ctl.decodePayload(sid, c, data, &p) {
		return
	}
	ctl.Coord.Dispatch(app.Event{
		Kind:    app.EventSignal,
		From:    sid,
		Room:    domain.RoomID(p.Room),
		Payload: p.Payload,
	})
}
