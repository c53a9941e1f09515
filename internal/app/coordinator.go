package app

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
	"github.com/dkeye/Ring/internal/metrics"
	"github.com/rs/zerolog/log"
)

type EventKind int

const (
	EventJoin EventKind = iota
	EventRegisterEndpoint
	EventCallRequest
	EventCallAccept
	EventCallDecline
	EventCallEnd
	EventSignal
	EventDisconnect
	EventRingTimeout
	EventConnect
)

var eventNames = [...]string{
	EventJoin:             "join",
	EventRegisterEndpoint: "register_endpoint",
	EventCallRequest:      "call_request",
	EventCallAccept:       "call_accept",
	EventCallDecline:      "call_decline",
	EventCallEnd:          "call_end",
	EventSignal:           "signal",
	EventDisconnect:       "disconnect",
	EventRingTimeout:      "ring_timeout",
	EventConnect:          "connect",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is one inbound protocol step. Peer is the call target for
// EventCallRequest and the original caller for accept and decline.
type Event struct {
	Kind     EventKind
	From     core.SessionID
	Name     string
	Endpoint string
	Peer     core.SessionID
	Room     domain.RoomID
	Payload  []byte
}

type Options struct {
	// RingTimeout turns an unanswered invitation into a decline. Zero
	// lets it ring until someone acts.
	RingTimeout time.Duration
	QueueSize   int
}

type invitation struct {
	room   domain.RoomID
	caller core.SessionID
	callee core.SessionID
	timer  *time.Timer
}

// Coordinator owns every Registry mutation. Events are applied one at a
// time by Run, so each busy or stale check sees the state it acts on.
type Coordinator struct {
	Registry *Registry

	out         core.Notifier
	ringTimeout time.Duration
	invites     map[domain.RoomID]*invitation

	events chan Event
	done   chan struct{}
}

func NewCoordinator(reg *Registry, out core.Notifier, opts Options) *Coordinator {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	return &Coordinator{
		Registry:    reg,
		out:         out,
		ringTimeout: opts.RingTimeout,
		invites:     make(map[domain.RoomID]*invitation),
		events:      make(chan Event, opts.QueueSize),
		done:        make(chan struct{}),
	}
}

// Dispatch enqueues ev for Run. Events dispatched after Run returned are
// dropped.
func (c *Coordinator) Dispatch(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
		log.Debug().Str("module", "app.coordinator").Str("event", ev.Kind.String()).Msg("coordinator stopped, event dropped")
	}
}

// Run applies queued events until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	log.Info().Str("module", "app.coordinator").Msg("coordinator started")
	for {
		select {
		case <-ctx.Done():
			for _, inv := range c.invites {
				c.dropInvite(inv)
			}
			log.Info().Str("module", "app.coordinator").Msg("coordinator stopped")
			return nil
		case ev := <-c.events:
			c.Handle(ev)
		}
	}
}

// Handle applies one event. It must only be called from a single
// goroutine; Run is that goroutine in production.
func (c *Coordinator) Handle(ev Event) {
	metrics.Events.WithLabelValues(ev.Kind.String()).Inc()
	switch ev.Kind {
	case EventJoin:
		c.join(ev.From, ev.Name)
	case EventRegisterEndpoint:
		c.registerEndpoint(ev.From, ev.Endpoint)
	case EventCallRequest:
		c.callRequest(ev.From, ev.Peer)
	case EventCallAccept:
		c.callAccept(ev.From, ev.Peer, ev.Room)
	case EventCallDecline:
		c.callDecline(ev.From, ev.Peer, ev.Room)
	case EventCallEnd:
		c.callEnd(ev.From, ev.Room)
	case EventSignal:
		c.relaySignal(ev.From, ev.Room, ev.Payload)
	case EventDisconnect:
		c.disconnect(ev.From)
	case EventRingTimeout:
		c.ringTimedOut(ev.Room)
	case EventConnect:
		c.connect(ev.From)
	default:
		log.Warn().Str("module", "app.coordinator").Int("kind", int(ev.Kind)).Msg("unknown event")
	}
}

// pending reports the number of unanswered invitations. Like Handle it
// is only safe on the coordinator goroutine.
func (c *Coordinator) pending() int { return len(c.invites) }

func (c *Coordinator) broadcastPresence() {
	users := c.Registry.Snapshot()
	metrics.UsersOnline.Set(float64(len(users)))
	c.out.Broadcast(core.Presence{Type: core.TypePresence, Users: users})
}

// toIdle returns sid to Idle. Unknown sessions are ignored.
func (c *Coordinator) toIdle(sid core.SessionID) {
	if err := c.Registry.Transition(sid, domain.Idle, ""); err != nil && !errors.Is(err, ErrNotFound) {
		log.Error().Err(err).Str("module", "app.coordinator").Str("sid", string(sid)).Msg("reset to idle")
	}
}

// heal forces the given sessions back to Idle after a refused transition
// and republishes presence.
func (c *Coordinator) heal(cause error, sids ...core.SessionID) {
	for _, sid := range sids {
		log.Warn().Err(cause).Str("module", "app.coordinator").Str("sid", string(sid)).Msg("forcing idle")
		c.cancelInvitesFrom(sid)
		c.toIdle(sid)
	}
	c.broadcastPresence()
}
