package app

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound          = errors.New("session not registered")
	ErrInvalidTransition = errors.New("state and room disagree")
	ErrPairingFull       = errors.New("room already has two holders")
)

// Registry is the authoritative store of joined users keyed by connection.
// The coordinator is its only writer; readers may come from any goroutine.
type Registry struct {
	mu    sync.RWMutex
	users map[core.SessionID]*domain.User
	order []core.SessionID
	rooms map[domain.RoomID][]core.SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[core.SessionID]*domain.User),
		rooms: make(map[domain.RoomID][]core.SessionID),
	}
}

func (r *Registry) Register(sid core.SessionID, name string) (domain.User, error) {
	u, err := domain.NewUser(name)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrInvalidName, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[sid]; ok {
		return domain.User{}, domain.ErrDuplicateConnection
	}
	r.users[sid] = u
	r.order = append(r.order, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("username", u.Username).Msg("registered user")
	return *u, nil
}

// SetMediaEndpoint reports false when sid is unknown.
func (r *Registry) SetMediaEndpoint(sid core.SessionID, endpoint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[sid]
	if !ok {
		return false
	}
	u.Endpoint = endpoint
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("endpoint", endpoint).Msg("updated media endpoint")
	return true
}

func (r *Registry) Lookup(sid core.SessionID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[sid]
	if !ok {
		return domain.User{}, false
	}
	return *u, true
}

// Transition sets state and room together. Legality of the protocol step
// is the caller's concern; Transition only guards the pairing invariants.
func (r *Registry) Transition(sid core.SessionID, state domain.CallState, room domain.RoomID) error {
	if (state == domain.Idle) != (room == "") {
		return fmt.Errorf("%w: %s with room %q", ErrInvalidTransition, state, room)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[sid]
	if !ok {
		return ErrNotFound
	}
	if room != "" && room != u.Room && len(r.rooms[room]) >= 2 {
		return ErrPairingFull
	}
	if u.Room != room {
		r.unindex(sid, u.Room)
		if room != "" {
			r.rooms[room] = append(r.rooms[room], sid)
		}
	}
	u.State = state
	u.Room = room
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Str("state", state.String()).Str("room", string(room)).Msg("transition")
	return nil
}

func (r *Registry) Remove(sid core.SessionID) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[sid]
	if !ok {
		return domain.User{}, false
	}
	r.unindex(sid, u.Room)
	delete(r.users, sid)
	if i := slices.Index(r.order, sid); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed user")
	return *u, true
}

// Partner returns the other holder of sid's room.
func (r *Registry) Partner(sid core.SessionID) (core.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[sid]
	if !ok || u.Room == "" {
		return "", false
	}
	for _, other := range r.rooms[u.Room] {
		if other != sid {
			return other, true
		}
	}
	return "", false
}

func (r *Registry) holders(room domain.RoomID) []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.rooms[room])
}

func (r *Registry) Snapshot() []core.PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.PresenceEntry, 0, len(r.order))
	for _, sid := range r.order {
		u := r.users[sid]
		out = append(out, core.PresenceEntry{ID: sid, Username: u.Username, Available: u.Available()})
	}
	return out
}

// UserView is a read-only view for APIs.
type UserView struct {
	ID core.SessionID `json:"id"`
	domain.User
}

func (r *Registry) Users() []UserView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]UserView, 0, len(r.order))
	for _, sid := range r.order {
		out = append(out, UserView{ID: sid, User: *r.users[sid]})
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *Registry) unindex(sid core.SessionID, room domain.RoomID) {
	if room == "" {
		return
	}
	holders := slices.DeleteFunc(r.rooms[room], func(s core.SessionID) bool { return s == sid })
	if len(holders) == 0 {
		delete(r.rooms, room)
		return
	}
	r.rooms[room] = holders
}
