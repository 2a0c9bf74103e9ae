// Package testhelpers provides common utilities and helper functions for
// testing the typeto.me server.
//
// This package contains reusable test utilities that are shared across unit
// and integration tests. It provides functions for creating test servers,
// making HTTP requests, driving the room protocol over WebSocket connections,
// and asserting response properties to reduce code duplication in test files.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// RoomView mirrors the wire shape of the room snapshot sent to clients.
type RoomView struct {
	Messages            map[string][]string `json:"messages"`
	Participants        int                 `json:"participants"`
	ID                  string              `json:"id"`
	YourID              string              `json:"yourId"`
	TheirID             string              `json:"theirId"`
	OtherParticipantIDs []string            `json:"otherParticipantIds"`
}

// RoomMessage is a decoded server response carrying a room view.
type RoomMessage struct {
	Type string   `json:"type"`
	Room RoomView `json:"room"`
}

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// WebSocketURL converts an httptest server URL into the ws:// URL of its /ws
// endpoint.
func WebSocketURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// ConnectWebSocket creates a WebSocket connection to the specified URL.
// It returns the connection or an error if connection fails.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	// Set a proper origin header for testing
	headers := http.Header{}
	headers.Set("Origin", "http://localhost:8090")

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendJSON sends one JSON-encoded message over the WebSocket connection.
func SendJSON(conn *websocket.Conn, message any) error {
	return conn.WriteJSON(message)
}

// SendRawMessage sends a raw text message over the WebSocket connection.
func SendRawMessage(conn *websocket.Conn, data []byte) error {
	return conn.WriteMessage(websocket.TextMessage, data)
}

// ReceiveRoomMessage reads and decodes one room response, failing the test if
// nothing arrives within the timeout.
func ReceiveRoomMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) RoomMessage {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	var msg RoomMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read room message: %v", err)
	}
	return msg
}

// AssertNoMessage fails the test if anything arrives on the connection within
// the wait window.
func AssertNoMessage(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	_, payload, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no message, got %s", payload)
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
