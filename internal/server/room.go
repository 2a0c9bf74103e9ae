// Package server models a single collaborative room: the participant buffers
// it owns and the snapshot views it renders for clients.
package server

import (
	"sync"
	"time"
)

// Room is one named shared session. Each participant owns a text buffer
// modeled as a sequence of lines. All access to the participant state is
// serialized through a single room-level mutex; rooms are expected to hold
// only a handful of participants, so finer-grained locking buys nothing.
type Room struct {
	id string

	mu           sync.Mutex
	participants map[string][]string
	// order records participant ids in join order so rendered views are
	// deterministic instead of depending on map iteration.
	order      []string
	lastActive time.Time
}

// NewRoom creates an empty room with the given identifier.
func NewRoom(id string) *Room {
	return &Room{
		id:           id,
		participants: make(map[string][]string),
		lastActive:   time.Now(),
	}
}

// ID returns the room's identifier. The identifier never changes after
// creation.
func (r *Room) ID() string {
	return r.id
}

// Join adds the participant to the room with an initial buffer of one empty
// line. Joining is idempotent: rejoining with the same id leaves the existing
// buffer untouched.
func (r *Room) Join(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if _, ok := r.participants[participantID]; ok {
		return
	}

	r.participants[participantID] = []string{""}
	r.order = append(r.order, participantID)
}

// Render takes a point-in-time snapshot of the room for the requesting
// participant. The lock covers only the snapshot copy; callers serialize and
// send the view without holding it. Other participants are listed in join
// order and theirId is the earliest-joined other participant, if any.
func (r *Room) Render(participantID string) RoomView {
	r.mu.Lock()

	r.lastActive = time.Now()

	messages := make(map[string][]string, len(r.participants))
	for id, lines := range r.participants {
		messages[id] = append([]string(nil), lines...)
	}

	otherIDs := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if id != participantID {
			otherIDs = append(otherIDs, id)
		}
	}

	r.mu.Unlock()

	theirID := ""
	if len(otherIDs) > 0 {
		theirID = otherIDs[0]
	}

	return RoomView{
		Messages:            messages,
		Participants:        len(messages),
		ID:                  r.id,
		YourID:              participantID,
		TheirID:             theirID,
		OtherParticipantIDs: otherIDs,
	}
}

// LastActive reports when the room was last joined or rendered. The registry
// sweeper uses it to find idle rooms.
func (r *Room) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}
