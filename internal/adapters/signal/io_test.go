package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Ring/internal/app"
	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
)

func newTestController(t *testing.T, limiter *CallRateLimiter) *SignalWSController {
	t.Helper()
	hub := NewHub(app.SimplePolicy{})
	coord := app.NewCoordinator(app.NewRegistry(), hub, app.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = coord.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return NewSignalWSController(coord, hub, limiter, Options{})
}

func attach(ctl *SignalWSController, sid core.SessionID) *fakeConn {
	c := &fakeConn{}
	ctl.Hub.Attach(sid, c)
	return c
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func lastType(c *fakeConn, typ string) func() bool {
	return func() bool {
		types := c.types()
		return len(types) > 0 && types[len(types)-1] == typ
	}
}

func received(c *fakeConn, typ string) func() bool {
	return func() bool {
		for _, got := range c.types() {
			if got == typ {
				return true
			}
		}
		return false
	}
}

func stateIs(ctl *SignalWSController, sid core.SessionID, state domain.CallState) func() bool {
	return func() bool {
		u, ok := ctl.Coord.Registry.Lookup(sid)
		return ok && u.State == state
	}
}

func TestHandleSignalRejectsMalformedInput(t *testing.T) {
	ctl := newTestController(t, nil)
	c := attach(ctl, "s1")

	cases := []struct {
		name string
		data string
		want string
	}{
		{"not json", `{`, "bad_json"},
		{"unknown type", `{"type":"dance"}`, "unknown_type"},
		{"missing target", `{"type":"call_request"}`, "bad_payload"},
		{"accept without room", `{"type":"call_accept","caller":"x"}`, "bad_payload"},
		{"signal without payload", `{"type":"signal","room":"r"}`, "bad_payload"},
		{"wrong field type", `{"type":"join","name":5}`, "bad_payload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctl.handleSignal("s1", "", c, []byte(tc.data))
			m := c.last(t)
			assert.Equal(t, "error", m["type"])
			assert.Equal(t, tc.want, m["error"])
		})
	}
}

func TestHandleSignalPingAndWhoAmI(t *testing.T) {
	ctl := newTestController(t, nil)
	c := attach(ctl, "s1")

	ctl.handleSignal("s1", "", c, []byte(`{"type":"ping"}`))
	assert.Equal(t, "pong", c.last(t)["type"])

	ctl.handleSignal("s1", "", c, []byte(`{"type":"whoami"}`))
	m := c.last(t)
	assert.Equal(t, "whoami", m["type"])
	assert.Equal(t, false, m["joined"])
	assert.Equal(t, "idle", m["state"])

	ctl.handleSignal("s1", "", c, []byte(`{"type":"join","name":"alice"}`))
	eventually(t, func() bool { return ctl.Coord.Registry.Len() == 1 })

	ctl.handleSignal("s1", "", c, []byte(`{"type":"whoami"}`))
	m = c.last(t)
	assert.Equal(t, true, m["joined"])
	assert.Equal(t, "alice", m["username"])
}

func TestHandleSignalCallFlow(t *testing.T) {
	ctl := newTestController(t, nil)
	alice := attach(ctl, "alice")
	bob := attach(ctl, "bob")

	ctl.handleSignal("alice", "", alice, []byte(`{"type":"join","name":"Alice"}`))
	ctl.handleSignal("bob", "", bob, []byte(`{"type":"join","name":"Bob"}`))
	ctl.handleSignal("bob", "", bob, []byte(`{"type":"register_endpoint","endpoint":"udp://10.0.0.2:5000"}`))
	eventually(t, func() bool { return ctl.Coord.Registry.Len() == 2 })

	ctl.handleSignal("alice", "", alice, []byte(`{"type":"call_request","target":"bob"}`))
	eventually(t, stateIs(ctl, "alice", domain.Calling))
	eventually(t, received(bob, core.TypeIncomingCall))

	user, ok := ctl.Coord.Registry.Lookup("alice")
	require.True(t, ok)
	room := string(user.Room)
	require.NotEmpty(t, room)

	ctl.handleSignal("bob", "", bob, []byte(`{"type":"call_accept","caller":"alice","room":"`+room+`"}`))
	eventually(t, stateIs(ctl, "bob", domain.InCall))
	eventually(t, received(alice, core.TypeCallAccepted))

	ctl.handleSignal("alice", "", alice, []byte(`{"type":"signal","room":"`+room+`","payload":{"sdp":"v=0"}}`))
	eventually(t, lastType(bob, core.TypeSignal))

	ctl.handleSignal("bob", "", bob, []byte(`{"type":"call_end","room":"`+room+`"}`))
	eventually(t, received(alice, core.TypeCallEnded))
	eventually(t, stateIs(ctl, "alice", domain.Idle))
	eventually(t, stateIs(ctl, "bob", domain.Idle))
}

func TestHandleSignalRateLimitsCallRequests(t *testing.T) {
	ctl := newTestController(t, NewCallRateLimiter(0.001, 1))
	c := attach(ctl, "s1")

	ctl.handleSignal("s1", "tok", c, []byte(`{"type":"call_request","target":"nobody"}`))
	ctl.handleSignal("s1", "tok", c, []byte(`{"type":"call_request","target":"nobody"}`))

	eventually(t, func() bool {
		n := 0
		for _, typ := range c.types() {
			if typ == core.TypeCallRequestAck {
				n++
			}
		}
		return n == 2
	})
}
