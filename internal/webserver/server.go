package webserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ichi0g0y/retro-wheel/internal/localdb"
	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/types"
	"github.com/ichi0g0y/retro-wheel/internal/version"
	"github.com/ichi0g0y/retro-wheel/internal/wheel"
	"go.uber.org/zap"
)

var (
	httpServer *http.Server
	current    *Server
)

// Options wires the HTTP surface to the wheel and its stores.
type Options struct {
	Wheel *wheel.Service
	Store *localdb.Store
	// OverlayBaseURL is the public URL encoded in overlay QR codes. Empty means
	// derive it from the request host.
	OverlayBaseURL string
	Now            func() time.Time
}

// Server holds the handlers and the websocket hub.
type Server struct {
	wheel          *wheel.Service
	store          *localdb.Store
	hub            *WSHub
	overlayBaseURL string
	now            func() time.Time
	startedAt      time.Time
}

// NewServer builds the handlers and starts the websocket hub. Call Close when done.
func NewServer(opts Options) *Server {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		wheel:          opts.Wheel,
		store:          opts.Store,
		hub:            newWSHub(),
		overlayBaseURL: opts.OverlayBaseURL,
		now:            now,
		startedAt:      now(),
	}
	go s.hub.run()

	s.wheel.OnSpin(func(rec types.SpinRecord) {
		s.hub.Broadcast("wheel_spin", map[string]interface{}{
			"ts":     rec.TS,
			"spinId": rec.SpinID,
		})
	})
	s.wheel.OnSettingsChanged(func(mode types.Mode, settings types.WheelSettings) {
		s.hub.Broadcast("wheel_settings", map[string]interface{}{
			"mode":     mode,
			"settings": settings,
		})
	})
	logger.SetBroadcastCallback(s.broadcastLog)

	return s
}

// Close stops the hub and disconnects websocket clients.
func (s *Server) Close() {
	logger.SetBroadcastCallback(nil)
	s.hub.stop()
}

// corsMiddleware adds CORS headers to HTTP handlers
func corsMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler(w, r)
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Overlay polling
	mux.HandleFunc("/overlay/wheel", corsMiddleware(s.handleOverlayWheel))
	mux.HandleFunc("/overlay/spin", corsMiddleware(s.handleOverlaySpin))
	mux.HandleFunc("/overlay/wheel-sync", corsMiddleware(s.handleOverlayWheelSync))

	// Admin wheel control
	mux.HandleFunc("/wheel/spin", corsMiddleware(s.handleWheelSpin))
	mux.HandleFunc("/wheel/settings", corsMiddleware(s.handleWheelSettings))
	mux.HandleFunc("/api/wheel/history", corsMiddleware(s.handleWheelHistory))

	// Wheel inputs
	mux.HandleFunc("/api/library", corsMiddleware(s.handleLibrary))
	mux.HandleFunc("/api/suggestions", corsMiddleware(s.handleSuggestions))
	mux.HandleFunc("/api/suggestions/status", corsMiddleware(s.handleSuggestionStatus))
	mux.HandleFunc("/api/events/active", corsMiddleware(s.handleActiveEvent))

	mux.HandleFunc("/api/overlay/qr", corsMiddleware(s.handleOverlayQR))

	mux.HandleFunc("/api/logs", corsMiddleware(handleLogs))
	mux.HandleFunc("/api/logs/download", corsMiddleware(handleLogsDownload))
	mux.HandleFunc("/api/logs/clear", corsMiddleware(handleLogsClear))

	// WebSocket hints
	mux.HandleFunc("/ws", s.handleWS)

	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// StartWebServer serves the wheel API on port.
func StartWebServer(port int, opts Options) error {
	current = NewServer(opts)

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting web server", zap.String("address", addr))

	httpServer = &http.Server{
		Addr:         addr,
		Handler:      current.Handler(),
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine and wait briefly to check for immediate errors
	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	// Wait briefly to catch immediate binding errors
	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Failed to start web server", zap.Error(err))
			current.Close()
			return fmt.Errorf("failed to start web server on port %d: %w", port, err)
		}
	case <-time.After(100 * time.Millisecond):
	}

	return nil
}

// Shutdown gracefully shuts down the web server
func Shutdown() {
	if httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown web server gracefully", zap.Error(err))
	} else {
		logger.Info("Web server shutdown complete")
	}
	if current != nil {
		current.Close()
	}
}

// handleStatus returns version and uptime
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	now := s.now()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"version":       version.Info(),
		"uptimeSeconds": int64(now.Sub(s.startedAt).Seconds()),
		"wsClients":     s.hub.ClientCount(),
		"timestamp":     now.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", zap.Error(err))
	}
}
