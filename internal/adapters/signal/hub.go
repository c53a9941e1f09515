package signal

import (
	"errors"
	"maps"
	"sync"

	"github.com/goccy/go-json"

	"github.com/dkeye/Ring/internal/app"
	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Hub tracks live signaling connections and implements core.Notifier on
// top of them.
type Hub struct {
	mu     sync.RWMutex
	conns  map[core.SessionID]core.SignalConnection
	policy app.Policy
}

func NewHub(policy app.Policy) *Hub {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &Hub{
		conns:  make(map[core.SessionID]core.SignalConnection),
		policy: policy,
	}
}

func (h *Hub) Attach(sid core.SessionID, conn core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[sid] = conn
	metrics.Connections.Inc()
	log.Debug().Str("module", "signal.hub").Str("sid", string(sid)).Int("connections", len(h.conns)).Msg("attached")
}

func (h *Hub) Detach(sid core.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[sid]; !ok {
		return
	}
	delete(h.conns, sid)
	metrics.Connections.Dec()
	log.Debug().Str("module", "signal.hub").Str("sid", string(sid)).Int("connections", len(h.conns)).Msg("detached")
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) Send(sid core.SessionID, msg any) {
	h.mu.RLock()
	conn, ok := h.conns[sid]
	h.mu.RUnlock()
	if !ok {
		log.Debug().Str("module", "signal.hub").Str("sid", string(sid)).Msg("send to unknown connection")
		return
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Msg("marshal")
		return
	}
	h.deliver(sid, conn, frame, false)
}

func (h *Hub) Broadcast(msg any) {
	frame, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Msg("marshal")
		return
	}
	h.mu.RLock()
	targets := maps.Clone(h.conns)
	h.mu.RUnlock()

	for sid, conn := range targets {
		h.deliver(sid, conn, frame, true)
	}
}

func (h *Hub) deliver(sid core.SessionID, conn core.SignalConnection, frame core.Frame, broadcast bool) {
	err := conn.TrySend(frame)
	if err == nil || errors.Is(err, ErrConnClosed) {
		return
	}
	switch h.policy.OnBackPressure(sid, broadcast) {
	case app.KickMember:
		metrics.Dropped.WithLabelValues("kick").Inc()
		log.Warn().Err(err).Str("module", "signal.hub").Str("sid", string(sid)).Msg("slow member kicked")
		conn.Close()
	case app.DropFrame:
		metrics.Dropped.WithLabelValues("drop").Inc()
		log.Debug().Err(err).Str("module", "signal.hub").Str("sid", string(sid)).Msg("frame dropped")
	case app.NoAction:
	}
}
