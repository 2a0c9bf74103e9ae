// Command server runs the typeto.me collaborative session server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmd/typeto.me2/internal/server"
)

func main() {
	var (
		port   string
		guiDir string
	)

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Real-time collaborative typing server",
		Long: `typeto.me server.

Clients connect over a WebSocket on /ws, create or join rooms, and watch
each other type in real time. Static GUI assets are served under /gui.

Configuration is read from the environment (SERVER_PORT, ALLOWED_ORIGINS,
MAX_MESSAGE_SIZE, RATE_LIMIT_BURST, RATE_LIMIT_REFILL_INTERVAL, GUI_DIR,
ROOM_TTL, ROOM_SWEEP_INTERVAL); flags override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(port, guiDir)
		},
	}

	rootCmd.Flags().StringVar(&port, "port", "", "listen address, e.g. :8090 (overrides SERVER_PORT)")
	rootCmd.Flags().StringVar(&guiDir, "gui-dir", "", "directory with the static GUI (overrides GUI_DIR)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(port, guiDir string) error {
	cfg := server.NewConfigFromEnv()
	if port != "" {
		cfg.Port = port
	}
	if guiDir != "" {
		cfg.GUIDir = guiDir
	}
	server.SetConfig(cfg)

	registry := server.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registry.StartSweeper(ctx, cfg.RoomTTL, cfg.RoomSweepInterval)

	router := server.SetupRoutes(registry)
	httpServer := server.CreateServer(cfg.Port, router)

	errCh := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Printf("Received signal %s, shutting down", sig)
	}

	cancel()
	return server.ShutdownServer(httpServer, 10*time.Second)
}
