// Package server manages individual WebSocket sessions, handling read/write
// pumps, message dispatch, rate limiting, and lifecycle control for each
// connection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmd/typeto.me2/internal/server"

// maxRoomIDAttempts bounds how many fresh room ids a session rolls before
// giving up on a newroom request. With 24 bits of id space the bound is
// practically unreachable.
const maxRoomIDAttempts = 8

// Session is the per-connection state machine. A session starts unbound and
// becomes bound to one room and one participant id by the first successful
// newroom or fetchRoom dispatch. All messages from one connection are
// processed strictly in arrival order by a single read pump; responses travel
// through a buffered send channel drained by the write pump.
type Session struct {
	conn     *websocket.Conn
	registry *Registry
	send     chan []byte

	// id correlates log lines and trace spans for this connection. It is
	// unrelated to room or participant identifiers.
	id   string
	addr string

	room          *Room
	participantID string

	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
	tracer         trace.Tracer
}

// NewSession creates a session for the given WebSocket connection, sharing
// the provided room registry. The send channel is buffered to absorb bursts
// of outgoing views.
func NewSession(conn *websocket.Conn, registry *Registry, addr string) *Session {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Session{
		conn:           conn,
		registry:       registry,
		send:           make(chan []byte, 256),
		id:             uuid.NewString(),
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
		tracer:         otel.Tracer(tracerName),
	}
}

// Start launches the session's read and write pumps. It returns immediately;
// the pumps run until the connection closes or errors.
func (s *Session) Start() {
	go s.writePump()
	go s.readPump()
}

// setupReadConnection configures read deadlines and the pong handler.
func (s *Session) setupReadConnection() {
	if err := s.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		log.Printf("Session %s: error setting initial read deadline: %v", s.id, err)
	}
	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			log.Printf("Session %s: error setting read deadline in pong handler: %v", s.id, err)
		}
		return nil
	})
}

// logReadError logs an appropriate message for the error that ended the read
// loop.
func (s *Session) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Session %s (%s): message exceeded maximum size of %d bytes", s.id, s.addr, s.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Session %s (%s) disconnected: %v", s.id, s.addr, err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Printf("Session %s (%s) connection closed: %v", s.id, s.addr, err)
	default:
		log.Printf("Session %s (%s): WebSocket read error: %v", s.id, s.addr, err)
	}
}

// checkRateLimit reports whether the next message may be processed. Messages
// over the limit are discarded with no response, matching the externally
// observable behavior of a decode failure.
func (s *Session) checkRateLimit() bool {
	if s.rateLimiter != nil && !s.rateLimiter.allow() {
		log.Printf("Session %s: rate limit exceeded (%d messages per %s); discarding message",
			s.id, s.rateLimit.Burst, s.rateLimit.RefillInterval)
		return false
	}
	return true
}

func (s *Session) readPump() {
	metrics := getMetrics()
	metrics.activeConnections.Inc()

	defer func() {
		metrics.activeConnections.Dec()
		close(s.send)
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Session %s: error closing connection in readPump: %v", s.id, err)
		}
	}()

	s.setupReadConnection()

	for {
		_, rawMessage, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadError(err)
			break
		}

		if !s.checkRateLimit() {
			continue
		}

		s.dispatch(rawMessage)
	}
}

// dispatch decodes one client message and routes it by type. Malformed or
// unrecognized messages are dropped silently; the connection stays open.
func (s *Session) dispatch(rawMessage []byte) {
	metrics := getMetrics()

	var msg clientMessage
	if err := json.Unmarshal(rawMessage, &msg); err != nil {
		metrics.decodeFailures.Inc()
		log.Printf("Session %s: dropping undecodable message: %v", s.id, err)
		return
	}

	_, span := s.tracer.Start(context.Background(), "session.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("message.type", msg.Type)))
	defer span.End()

	switch msg.Type {
	case msgNewRoom:
		metrics.messagesTotal.WithLabelValues(msgNewRoom).Inc()
		s.handleNewRoom(msg.SocketID, span)
	case msgFetchRoom:
		metrics.messagesTotal.WithLabelValues(msgFetchRoom).Inc()
		s.handleFetchRoom(msg.ID, msg.SocketID, span)
	case msgKeyPress:
		metrics.messagesTotal.WithLabelValues(msgKeyPress).Inc()
		s.handleKeyPress(msg.Key, msg.CursorPos)
	default:
		metrics.decodeFailures.Inc()
		log.Printf("Session %s: dropping message with unknown type %q", s.id, msg.Type)
	}
}

// handleNewRoom creates a room under a freshly generated id, joins the
// resolved participant, binds the session, and responds with a roomCreated
// view.
func (s *Session) handleNewRoom(socketID string, span trace.Span) {
	participantID := resolveParticipantID(socketID)

	room, err := s.createRoomWithFreshID()
	if err != nil {
		log.Printf("Session %s: %v; dropping newroom request", s.id, err)
		return
	}

	room.Join(participantID)
	s.room = room
	s.participantID = participantID

	getMetrics().roomsCreated.Inc()
	span.SetAttributes(attribute.String("room.id", room.ID()))
	log.Printf("Session %s: created room %s as participant %s", s.id, room.ID(), participantID)

	s.respond(msgRoomCreated, room.Render(participantID))
}

// handleFetchRoom joins the resolved participant to the named room, creating
// it if unknown, binds the session, and responds with a gotRoom view. A
// missing room id is treated as a decode failure.
func (s *Session) handleFetchRoom(roomID, socketID string, span trace.Span) {
	if roomID == "" {
		getMetrics().decodeFailures.Inc()
		log.Printf("Session %s: dropping fetchRoom without a room id", s.id)
		return
	}

	participantID := resolveParticipantID(socketID)

	room := s.registry.GetOrCreate(roomID)
	room.Join(participantID)
	s.room = room
	s.participantID = participantID

	span.SetAttributes(attribute.String("room.id", roomID))
	log.Printf("Session %s: joined room %s as participant %s", s.id, roomID, participantID)

	s.respond(msgGotRoom, room.Render(participantID))
}

// handleKeyPress accepts an edit message without acting on it. Editing is not
// wired up yet; the message must still decode cleanly and leave the
// connection and all room state untouched.
//
// TODO: apply the key to the bound participant's buffer at cursorPos once the
// edit contract is settled.
func (s *Session) handleKeyPress(key string, cursorPos *int) {
	_ = key
	_ = cursorPos
}

// createRoomWithFreshID registers a room under a generated id, re-rolling on
// the unlikely collision with an existing room.
func (s *Session) createRoomWithFreshID() (*Room, error) {
	for attempt := 0; attempt < maxRoomIDAttempts; attempt++ {
		room, err := s.registry.Create(GenerateID(RoomIDLength))
		if err == nil {
			return room, nil
		}
	}
	return nil, errors.New("could not allocate an unused room id")
}

// resolveParticipantID returns the client-provided participant id, or a
// freshly generated one when the client sent none.
func resolveParticipantID(socketID string) string {
	if socketID != "" {
		return socketID
	}
	return GenerateID(ParticipantIDLength)
}

// respond queues a room view for delivery to the client. A full send buffer
// drops the response rather than blocking the read loop.
func (s *Session) respond(messageType string, view RoomView) {
	payload, err := json.Marshal(roomMessage{Type: messageType, Room: view})
	if err != nil {
		log.Printf("Session %s: error encoding %s response: %v", s.id, messageType, err)
		return
	}

	select {
	case s.send <- payload:
	default:
		log.Printf("Session %s: send buffer full; dropping %s response", s.id, messageType)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Session %s: error closing connection in writePump: %v", s.id, err)
		}
	}()

	for s.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (s *Session) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-s.send:
		return s.handleOutgoing(message, ok)
	case <-ticker.C:
		return s.handlePing()
	}
}

// handleOutgoing writes one queued message, or the close frame when the send
// channel has been closed, and returns false if the pump should stop.
func (s *Session) handleOutgoing(message []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Printf("Session %s: error setting write deadline: %v", s.id, err)
		return false
	}

	if !ok {
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			log.Printf("Session %s: error writing close message: %v", s.id, err)
		}
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Session %s: error writing message: %v", s.id, err)
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive.
func (s *Session) handlePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Printf("Session %s: error setting write deadline for ping: %v", s.id, err)
		return false
	}
	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Session %s: error writing ping message: %v", s.id, err)
		}
		return false
	}
	return true
}
