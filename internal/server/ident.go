// Package server generates the opaque hexadecimal identifiers used for rooms
// and participants.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// RoomIDLength is the length of a generated room identifier in hex digits.
	RoomIDLength = 6

	// ParticipantIDLength is the length of an auto-generated participant
	// identifier in hex digits.
	ParticipantIDLength = 20
)

// GenerateID returns length lowercase hex digits drawn from the operating
// system's random source. The length must be even and positive; anything else
// is a programming error and panics.
func GenerateID(length int) string {
	if length <= 0 || length%2 != 0 {
		panic(fmt.Sprintf("server: GenerateID length must be even and positive, got %d", length))
	}

	buf := make([]byte, length/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand reads from the kernel and does not fail on any
		// supported platform; treat failure as unrecoverable.
		panic(fmt.Sprintf("server: reading random bytes: %v", err))
	}

	return hex.EncodeToString(buf)
}
