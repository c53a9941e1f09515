package domain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("  Ann  ")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Username)
	assert.True(t, u.Available())
	assert.False(t, u.JoinedAt.IsZero())

	_, err = NewUser(" ")
	assert.ErrorIs(t, err, ErrUsernameEmpty)

	_, err = NewUser(strings.Repeat("x", MaxUsernameLen+1))
	assert.ErrorIs(t, err, ErrUsernameTooLong)
}

func TestCallStateText(t *testing.T) {
	b, err := json.Marshal(User{Username: "Ann", State: InCall, Room: "r1"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"state":"in_call"`)

	var s CallState
	require.NoError(t, s.UnmarshalText([]byte("ringing")))
	assert.Equal(t, RingingIncoming, s)
	assert.Error(t, s.UnmarshalText([]byte("dialing")))
	assert.Equal(t, "CallState(9)", CallState(9).String())
}

func TestCode(t *testing.T) {
	assert.Equal(t, "TargetBusy", Code(ErrTargetBusy))
	assert.Equal(t, "StaleInvitation", Code(fmt.Errorf("accept: %w", ErrStaleInvitation)))
	assert.Equal(t, "Internal", Code(fmt.Errorf("boom")))
}

func TestNewRoomIDIsUnique(t *testing.T) {
	seen := make(map[RoomID]bool)
	for i := 0; i < 100; i++ {
		id := NewRoomID()
		require.False(t, seen[id], "duplicate room id %s", id)
		seen[id] = true
	}
}
