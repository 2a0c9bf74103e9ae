package integration

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmd/typeto.me2/test/testhelpers"
)

// TestConcurrentFetchSameUnknownRoom verifies registry atomicity end to end:
// many connections racing to fetch the same unknown id all land in a single
// room.
func TestConcurrentFetchSameUnknownRoom(t *testing.T) {
	srv, registry := newTestServer(t)
	wsURL := testhelpers.WebSocketURL(srv)

	const clients = 8

	var wg sync.WaitGroup
	errs := make(chan error, clients)

	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			conn, err := testhelpers.ConnectWebSocket(wsURL)
			if err != nil {
				errs <- fmt.Errorf("client %d: connect: %w", i, err)
				return
			}
			defer conn.Close()

			request := map[string]string{
				"type":     "fetchRoom",
				"id":       "race01",
				"socketId": fmt.Sprintf("client-%02d", i),
			}
			if err := testhelpers.SendJSON(conn, request); err != nil {
				errs <- fmt.Errorf("client %d: send: %w", i, err)
				return
			}

			// Read directly instead of using the helper: test helpers
			// must not call t.Fatal from a non-test goroutine.
			if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
				errs <- fmt.Errorf("client %d: deadline: %w", i, err)
				return
			}
			var msg testhelpers.RoomMessage
			if err := conn.ReadJSON(&msg); err != nil {
				errs <- fmt.Errorf("client %d: read: %w", i, err)
				return
			}
			if msg.Room.ID != "race01" {
				errs <- fmt.Errorf("client %d: got room %q", i, msg.Room.ID)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if registry.Len() != 1 {
		t.Fatalf("Expected exactly one room after the race, got %d", registry.Len())
	}

	// A late joiner sees every racer.
	conn, err := testhelpers.ConnectWebSocket(wsURL)
	if err != nil {
		t.Fatalf("Failed to connect observer: %v", err)
	}
	defer conn.Close()

	if err := testhelpers.SendJSON(conn, map[string]string{"type": "fetchRoom", "id": "race01", "socketId": "observer"}); err != nil {
		t.Fatalf("Failed to send fetchRoom: %v", err)
	}
	msg := testhelpers.ReceiveRoomMessage(t, conn, 2*time.Second)

	if msg.Room.Participants != clients+1 {
		t.Errorf("Expected %d participants, got %d", clients+1, msg.Room.Participants)
	}
	if len(msg.Room.OtherParticipantIDs) != clients {
		t.Errorf("Expected %d other participants, got %v", clients, msg.Room.OtherParticipantIDs)
	}
}

// TestTwoParticipantSymmetry verifies that each of two participants sees
// exactly the other in their rendered view.
func TestTwoParticipantSymmetry(t *testing.T) {
	srv, _ := newTestServer(t)
	wsURL := testhelpers.WebSocketURL(srv)

	alice, err := testhelpers.ConnectWebSocket(wsURL)
	if err != nil {
		t.Fatalf("Failed to connect alice: %v", err)
	}
	defer alice.Close()

	bob, err := testhelpers.ConnectWebSocket(wsURL)
	if err != nil {
		t.Fatalf("Failed to connect bob: %v", err)
	}
	defer bob.Close()

	if err := testhelpers.SendJSON(alice, map[string]string{"type": "fetchRoom", "id": "pair01", "socketId": "alice"}); err != nil {
		t.Fatalf("Failed to send alice's fetchRoom: %v", err)
	}
	testhelpers.ReceiveRoomMessage(t, alice, 2*time.Second)

	if err := testhelpers.SendJSON(bob, map[string]string{"type": "fetchRoom", "id": "pair01", "socketId": "bob"}); err != nil {
		t.Fatalf("Failed to send bob's fetchRoom: %v", err)
	}
	bobView := testhelpers.ReceiveRoomMessage(t, bob, 2*time.Second)

	if bobView.Room.TheirID != "alice" {
		t.Errorf("Expected bob's theirId to be alice, got %q", bobView.Room.TheirID)
	}
	if len(bobView.Room.OtherParticipantIDs) != 1 || bobView.Room.OtherParticipantIDs[0] != "alice" {
		t.Errorf("Expected bob to see [alice], got %v", bobView.Room.OtherParticipantIDs)
	}

	// Alice re-renders by rejoining and now sees bob.
	if err := testhelpers.SendJSON(alice, map[string]string{"type": "fetchRoom", "id": "pair01", "socketId": "alice"}); err != nil {
		t.Fatalf("Failed to send alice's second fetchRoom: %v", err)
	}
	aliceView := testhelpers.ReceiveRoomMessage(t, alice, 2*time.Second)

	if aliceView.Room.TheirID != "bob" {
		t.Errorf("Expected alice's theirId to be bob, got %q", aliceView.Room.TheirID)
	}
	if len(aliceView.Room.OtherParticipantIDs) != 1 || aliceView.Room.OtherParticipantIDs[0] != "bob" {
		t.Errorf("Expected alice to see [bob], got %v", aliceView.Room.OtherParticipantIDs)
	}
	if aliceView.Room.Participants != 2 {
		t.Errorf("Expected 2 participants, got %d", aliceView.Room.Participants)
	}
}
