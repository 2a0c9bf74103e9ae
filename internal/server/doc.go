// Package server implements the typeto.me collaborative session server.
//
// Clients connect over a WebSocket, create or join named rooms, and exchange
// per-participant text buffers. The implementation is organized into
// specialized files for configuration, identity generation, rooms, the room
// registry, per-connection sessions, routing, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server
