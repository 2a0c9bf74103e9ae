// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the static GUI.
package server

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler returns a handler that upgrades requests on /ws and starts
// a session bound to the shared room registry.
func WebSocketHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		NewSession(conn, registry, r.RemoteAddr).Start()
	}
}

// HealthHandler provides a simple liveness endpoint that reports the server
// is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "ok")
}

// GUIHandler serves the static GUI assets under /gui from the given
// directory. http.FileServer handles path cleaning, so requests cannot
// escape the directory.
func GUIHandler(dir string) http.Handler {
	return http.StripPrefix("/gui/", http.FileServer(http.Dir(dir)))
}

// IndexFallbackHandler serves the GUI index document for any path no other
// route claimed.
func IndexFallbackHandler(dir string) http.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, index)
	}
}
