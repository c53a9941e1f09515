package app

import (
	"testing"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireInvariants checks the pairing invariants over the raw registry.
func requireInvariants(t *testing.T, r *Registry) {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()

	holders := make(map[domain.RoomID][]core.SessionID)
	for sid, u := range r.users {
		require.Equal(t, u.State == domain.Idle, u.Room == "", "sid %s state %s room %q", sid, u.State, u.Room)
		if u.Room != "" {
			holders[u.Room] = append(holders[u.Room], sid)
		}
	}
	for room, sids := range holders {
		require.LessOrEqual(t, len(sids), 2, "room %s", room)
		require.ElementsMatch(t, sids, r.rooms[room], "room index for %s", room)
		if len(sids) == 1 {
			require.Equal(t, domain.Calling, r.users[sids[0]].State, "lone holder of %s", room)
		}
	}
	require.Len(t, r.rooms, len(holders))
	require.Len(t, r.order, len(r.users))
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	u, err := r.Register("c1", "  Ann ")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Username)
	assert.Equal(t, domain.Idle, u.State)
	assert.Empty(t, u.Room)

	_, err = r.Register("c1", "Ann again")
	require.ErrorIs(t, err, domain.ErrDuplicateConnection)

	_, err = r.Register("c2", "   ")
	require.ErrorIs(t, err, domain.ErrInvalidName)
	assert.Equal(t, "InvalidName", domain.Code(err))

	got, ok := r.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, "Ann", got.Username)

	_, ok = r.Lookup("c2")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySetMediaEndpoint(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("c1", "Ann")
	require.NoError(t, err)

	assert.True(t, r.SetMediaEndpoint("c1", "peer-1"))
	assert.False(t, r.SetMediaEndpoint("gone", "peer-2"))

	u, _ := r.Lookup("c1")
	assert.Equal(t, "peer-1", u.Endpoint)
}

func TestRegistryTransitionGuards(t *testing.T) {
	r := NewRegistry()
	for _, sid := range []core.SessionID{"c1", "c2", "c3"} {
		_, err := r.Register(sid, string(sid))
		require.NoError(t, err)
	}
	room := domain.NewRoomID()

	require.ErrorIs(t, r.Transition("c1", domain.Idle, room), ErrInvalidTransition)
	require.ErrorIs(t, r.Transition("c1", domain.InCall, ""), ErrInvalidTransition)
	require.ErrorIs(t, r.Transition("nobody", domain.Calling, room), ErrNotFound)

	require.NoError(t, r.Transition("c1", domain.Calling, room))
	require.NoError(t, r.Transition("c1", domain.InCall, room))
	require.NoError(t, r.Transition("c2", domain.InCall, room))
	require.ErrorIs(t, r.Transition("c3", domain.InCall, room), ErrPairingFull)

	u, _ := r.Lookup("c3")
	assert.Equal(t, domain.Idle, u.State)
	assert.ElementsMatch(t, []core.SessionID{"c1", "c2"}, r.holders(room))
	requireInvariants(t, r)
}

func TestRegistryPartnerAndRemove(t *testing.T) {
	r := NewRegistry()
	for _, sid := range []core.SessionID{"c1", "c2"} {
		_, err := r.Register(sid, string(sid))
		require.NoError(t, err)
	}
	room := domain.NewRoomID()
	require.NoError(t, r.Transition("c1", domain.InCall, room))

	_, ok := r.Partner("c1")
	assert.False(t, ok, "lone holder has no partner")

	require.NoError(t, r.Transition("c2", domain.InCall, room))
	p, ok := r.Partner("c1")
	require.True(t, ok)
	assert.Equal(t, core.SessionID("c2"), p)

	removed, ok := r.Remove("c2")
	require.True(t, ok)
	assert.Equal(t, room, removed.Room)
	assert.Equal(t, []core.SessionID{"c1"}, r.holders(room))

	_, ok = r.Remove("c2")
	assert.False(t, ok)

	require.NoError(t, r.Transition("c1", domain.Idle, ""))
	assert.Empty(t, r.holders(room))
	requireInvariants(t, r)
}

func TestRegistrySnapshotKeepsJoinOrder(t *testing.T) {
	r := NewRegistry()
	for _, sid := range []core.SessionID{"c3", "c1", "c2"} {
		_, err := r.Register(sid, "user-"+string(sid))
		require.NoError(t, err)
	}
	require.NoError(t, r.Transition("c1", domain.Calling, domain.NewRoomID()))
	r.Remove("c3")

	assert.Equal(t, []core.PresenceEntry{
		{ID: "c1", Username: "user-c1", Available: false},
		{ID: "c2", Username: "user-c2", Available: true},
	}, r.Snapshot())

	views := r.Users()
	require.Len(t, views, 2)
	assert.Equal(t, core.SessionID("c1"), views[0].ID)
	assert.Equal(t, domain.Calling, views[0].State)
}
