package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestRoutes points the active configuration at a temporary GUI
// directory and returns a router backed by a fresh registry.
func setupTestRoutes(t *testing.T) http.Handler {
	t.Helper()

	guiDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(guiDir, "index.html"), []byte("<html>typeto</html>"), 0o644); err != nil {
		t.Fatalf("Failed to write index.html: %v", err)
	}
	if err := os.WriteFile(filepath.Join(guiDir, "app.js"), []byte("console.log('gui');"), 0o644); err != nil {
		t.Fatalf("Failed to write app.js: %v", err)
	}

	t.Cleanup(func() { SetConfig(nil) })
	SetConfig(&Config{GUIDir: guiDir})

	return SetupRoutes(NewRegistry())
}

// TestHealthHandler verifies the liveness endpoint's fixed response.
func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rr := httptest.NewRecorder()

	HealthHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("Expected body %q, got %q", "ok", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Expected text/plain content type, got %q", ct)
	}
}

// TestRoutesHealth verifies the health endpoint through the router.
func TestRoutesHealth(t *testing.T) {
	router := setupTestRoutes(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("GET /health = %d %q", rr.Code, rr.Body.String())
	}
}

// TestRoutesMetrics verifies that the Prometheus endpoint serves the
// server's collectors.
func TestRoutesMetrics(t *testing.T) {
	getMetrics()
	router := setupTestRoutes(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "typeto_rooms_created_total") {
		t.Error("Metrics output is missing the rooms-created counter")
	}
}

// TestRoutesGUI verifies static asset serving under /gui.
func TestRoutesGUI(t *testing.T) {
	router := setupTestRoutes(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/gui/app.js", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("GET /gui/app.js = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "console.log") {
		t.Errorf("Unexpected asset body: %q", rr.Body.String())
	}
}

// TestRoutesIndexFallback verifies that unmatched paths serve the GUI index
// document.
func TestRoutesIndexFallback(t *testing.T) {
	router := setupTestRoutes(t)

	for _, path := range []string{"/", "/some/unknown/path", "/abc123"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))

		if rr.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "typeto") {
			t.Errorf("GET %s did not serve the index document: %q", path, rr.Body.String())
		}
	}
}

// TestWebSocketHandlerRejectsNonGet verifies the method guard on the upgrade
// handler.
func TestWebSocketHandlerRejectsNonGet(t *testing.T) {
	handler := WebSocketHandler(NewRegistry())

	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodPost, "/ws", http.NoBody))

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /ws = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

// TestWebSocketHandlerRejectsMissingOrigin verifies that an upgrade attempt
// without an acceptable Origin header is refused.
func TestWebSocketHandlerRejectsMissingOrigin(t *testing.T) {
	defer SetConfig(nil)
	SetConfig(&Config{AllowedOrigins: []string{"http://localhost:8090"}})

	handler := WebSocketHandler(NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/ws", http.NoBody)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

	rr := httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Upgrade without origin = %d, want %d", rr.Code, http.StatusForbidden)
	}
}
