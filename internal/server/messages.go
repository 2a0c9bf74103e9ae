// Package server defines the JSON wire schema exchanged with clients and
// utility helpers reused across session logic.
package server

import "strings"

// Client message types.
const (
	msgNewRoom   = "newroom"
	msgFetchRoom = "fetchRoom"
	msgKeyPress  = "keyPress"
)

// Server message types.
const (
	msgRoomCreated = "roomCreated"
	msgGotRoom     = "gotRoom"
)

// clientMessage is the envelope for every message a client sends. Type
// discriminates; the remaining fields are populated per type.
type clientMessage struct {
	Type string `json:"type"`

	// ID names the room to fetch (fetchRoom only).
	ID string `json:"id,omitempty"`

	// SocketID optionally carries a client-chosen participant id
	// (newroom, fetchRoom).
	SocketID string `json:"socketId,omitempty"`

	// Key and CursorPos describe an edit (keyPress only).
	Key       string `json:"key,omitempty"`
	CursorPos *int   `json:"cursorPos,omitempty"`
}

// roomMessage is the envelope for room responses sent back to clients.
type roomMessage struct {
	Type string   `json:"type"`
	Room RoomView `json:"room"`
}

// RoomView is the read-only snapshot of room state sent to a client after a
// join. TheirId is omitted when the requester is alone; OtherParticipantIds
// is always present, empty for a single-participant room.
type RoomView struct {
	Messages            map[string][]string `json:"messages"`
	Participants        int                 `json:"participants"`
	ID                  string              `json:"id"`
	YourID              string              `json:"yourId"`
	TheirID             string              `json:"theirId,omitempty"`
	OtherParticipantIDs []string            `json:"otherParticipantIds"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
