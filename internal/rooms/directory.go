// Package rooms maintains named membership sets of connections and fans
// events out to their current members.
package rooms

import (
	"log/slog"
	"sync"

	"github.com/jortega/partidasync/internal/model"
)

// DefaultRoom is the room every connection joins on connect
const DefaultRoom = "general"

// Directory holds named sets of connection ids. Rooms are created
// implicitly on first join and pruned when their last member leaves.
type Directory struct {
	mu     sync.RWMutex
	rooms  map[string]map[model.ConnectionID]struct{}
	byConn map[model.ConnectionID]map[string]struct{}
	logger *slog.Logger
}

// NewDirectory creates a new Directory
func NewDirectory(logger *slog.Logger) *Directory {
	return &Directory{
		rooms:  make(map[string]map[model.ConnectionID]struct{}),
		byConn: make(map[model.ConnectionID]map[string]struct{}),
		logger: logger.With(slog.String("component", "rooms")),
	}
}

// Join adds a connection to a room. Joining twice is a no-op.
func (d *Directory) Join(room string, id model.ConnectionID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rooms[room] == nil {
		d.rooms[room] = make(map[model.ConnectionID]struct{})
	}
	d.rooms[room][id] = struct{}{}

	if d.byConn[id] == nil {
		d.byConn[id] = make(map[string]struct{})
	}
	d.byConn[id][room] = struct{}{}
}

// Leave removes a connection from a room, pruning the room if it empties
func (d *Directory) Leave(room string, id model.ConnectionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leaveLocked(room, id)
}

func (d *Directory) leaveLocked(room string, id model.ConnectionID) {
	if members, ok := d.rooms[room]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(d.rooms, room)
		}
	}
	if joined, ok := d.byConn[id]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(d.byConn, id)
		}
	}
}

// LeaveAll removes a connection from every room it belongs to.
// Called on disconnect.
func (d *Directory) LeaveAll(id model.ConnectionID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for room := range d.byConn[id] {
		d.leaveLocked(room, id)
	}
	delete(d.byConn, id)
}

// Members returns a snapshot of the current members of a room.
// The caller may iterate it freely while joins and leaves proceed.
func (d *Directory) Members(room string) []model.ConnectionID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := make([]model.ConnectionID, 0, len(d.rooms[room]))
	for id := range d.rooms[room] {
		members = append(members, id)
	}
	return members
}

// Count returns the number of members in a room
func (d *Directory) Count(room string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms[room])
}

// Rooms returns a snapshot of the rooms a connection belongs to
func (d *Directory) Rooms(id model.ConnectionID) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms := make([]string, 0, len(d.byConn[id]))
	for room := range d.byConn[id] {
		rooms = append(rooms, room)
	}
	return rooms
}
