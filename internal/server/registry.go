// Package server coordinates room creation, lookup, and idle-room eviction
// for the typeto.me session system via the Registry type.
package server

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrRoomExists is returned by Create when the requested id is already taken.
var ErrRoomExists = errors.New("room with given id already exists")

// Registry owns the mapping from room id to live Room instance. It is the
// only shared mutable handle passed to sessions; all map access is serialized
// through a single mutex held just for the lookup or insert, never across a
// room-level operation.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Create inserts a new empty room under id. It rejects an id that is already
// registered so a colliding generated id can never clobber a live room;
// callers re-roll a fresh id instead.
func (reg *Registry) Create(id string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.rooms[id]; exists {
		return nil, ErrRoomExists
	}

	room := NewRoom(id)
	reg.rooms[id] = room
	return room, nil
}

// GetOrCreate returns the room registered under id, constructing and
// registering an empty one if the id is unknown. The lookup and insert happen
// under one lock acquisition, so two connections racing to fetch the same
// unknown id always share a single Room instance.
func (reg *Registry) GetOrCreate(id string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, exists := reg.rooms[id]; exists {
		return room
	}

	room := NewRoom(id)
	reg.rooms[id] = room
	return room
}

// Get returns the room registered under id, if any.
func (reg *Registry) Get(id string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[id]
	return room, exists
}

// Len reports the number of registered rooms.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// StartSweeper launches a background goroutine that periodically evicts rooms
// idle for longer than ttl. A ttl of zero disables eviction and the goroutine
// is not started. The sweeper stops when ctx is canceled.
func (reg *Registry) StartSweeper(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := reg.sweep(time.Now().Add(-ttl)); evicted > 0 {
					log.Printf("Evicted %d idle room(s); %d remaining", evicted, reg.Len())
				}
			}
		}
	}()
}

// sweep removes every room whose last activity predates cutoff and returns
// how many were evicted. Room activity is read without the registry lock held
// so a sweep never blocks room operations.
func (reg *Registry) sweep(cutoff time.Time) int {
	reg.mu.Lock()
	snapshot := make(map[string]*Room, len(reg.rooms))
	for id, room := range reg.rooms {
		snapshot[id] = room
	}
	reg.mu.Unlock()

	var idle []string
	for id, room := range snapshot {
		if room.LastActive().Before(cutoff) {
			idle = append(idle, id)
		}
	}

	if len(idle) == 0 {
		return 0
	}

	// Re-check activity before taking the registry lock; room locks are
	// never acquired while the registry lock is held.
	stillIdle := idle[:0]
	for _, id := range idle {
		if snapshot[id].LastActive().Before(cutoff) {
			stillIdle = append(stillIdle, id)
		}
	}

	evicted := 0
	reg.mu.Lock()
	for _, id := range stillIdle {
		if _, exists := reg.rooms[id]; exists {
			delete(reg.rooms, id)
			evicted++
		}
	}
	reg.mu.Unlock()

	return evicted
}
