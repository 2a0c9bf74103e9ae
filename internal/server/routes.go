// Package server wires HTTP handlers into a gorilla/mux router for the
// typeto.me application.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns a router with all application routes:
// the WebSocket endpoint, health check, Prometheus metrics, the static GUI,
// and the index fallback for unmatched paths.
func SetupRoutes(registry *Registry) *mux.Router {
	cfg := currentConfig()

	r := mux.NewRouter()
	r.HandleFunc("/ws", WebSocketHandler(registry)).Methods(http.MethodGet)
	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/gui/").Handler(GUIHandler(cfg.GUIDir))
	r.PathPrefix("/").HandlerFunc(IndexFallbackHandler(cfg.GUIDir))
	return r
}
