// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"time"
)

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// User is the presence and call record of one joined connection.
type User struct {
	Username string    `json:"username"`
	Endpoint string    `json:"endpoint,omitempty"`
	State    CallState `json:"state"`
	Room     RoomID    `json:"room,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username string) (*User, error) {
	name, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	return &User{Username: name, State: Idle, JoinedAt: time.Now()}, nil
}

// Available reports whether the user can be called.
func (u *User) Available() bool { return u.State == Idle }

func normalizeUsername(username string) (string, error) {
	name := strings.TrimSpace(username)
	if len(name) == 0 {
		return "", ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return name, nil
}
