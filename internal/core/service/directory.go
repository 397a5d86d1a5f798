package service

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quietbit/parley/internal/core/domain"
)

// Directory owns room membership. Rooms spring into existence on first
// join and are dropped when the last member leaves, so memory stays
// bounded by active usage. The directory holds identities only; the
// registry remains the single source of truth for liveness.
//
// Member slices keep join order. Every returned slice is a snapshot:
// later mutations are never visible through it.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string][]domain.ClientID
}

func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[string][]domain.ClientID),
	}
}

// Join adds the identity to the named room, creating the room if
// absent. Re-joining is idempotent: changed reports whether membership
// actually changed, so callers can skip redundant roster broadcasts.
func (d *Directory) Join(room string, id domain.ClientID) (members []domain.ClientID, changed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, m := range d.rooms[room] {
		if m == id {
			return snapshot(d.rooms[room]), false
		}
	}
	d.rooms[room] = append(d.rooms[room], id)
	log.Debug().Str("room", room).Str("client_id", id.String()).Int("size", len(d.rooms[room])).Msg("Joined room")
	return snapshot(d.rooms[room]), true
}

// LeaveRoom removes the identity from one named room. ok reports
// whether the membership existed. A room emptied by the removal is
// deleted and yields a nil members snapshot.
func (d *Directory) LeaveRoom(room string, id domain.ClientID) (members []domain.ClientID, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeLocked(room, id)
}

// LeaveAll removes the identity from every room it belongs to and
// returns post-removal snapshots keyed by room, for the rooms that
// still exist afterwards. Emptied rooms are deleted and omitted.
func (d *Directory) LeaveAll(id domain.ClientID) map[string][]domain.ClientID {
	d.mu.Lock()
	defer d.mu.Unlock()

	affected := make(map[string][]domain.ClientID)
	for room := range d.rooms {
		if members, ok := d.removeLocked(room, id); ok && members != nil {
			affected[room] = members
		}
	}
	return affected
}

// MembersOf returns a snapshot of the room's roster in join order, or
// nil for an unknown room.
func (d *Directory) MembersOf(room string) []domain.ClientID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members, ok := d.rooms[room]
	if !ok {
		return nil
	}
	return snapshot(members)
}

// Rooms reports how many rooms currently exist.
func (d *Directory) Rooms() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

func (d *Directory) removeLocked(room string, id domain.ClientID) ([]domain.ClientID, bool) {
	members, exists := d.rooms[room]
	if !exists {
		return nil, false
	}

	idx := -1
	for i, m := range members {
		if m == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	members = append(members[:idx], members[idx+1:]...)
	if len(members) == 0 {
		delete(d.rooms, room)
		log.Debug().Str("room", room).Msg("Room deleted")
		return nil, true
	}
	d.rooms[room] = members
	return snapshot(members), true
}

func snapshot(members []domain.ClientID) []domain.ClientID {
	out := make([]domain.ClientID, len(members))
	copy(out, members)
	return out
}
