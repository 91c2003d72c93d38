package webserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/types"
	"github.com/ichi0g0y/retro-wheel/internal/wheel"
	"go.uber.org/zap"
)

const emptyPoolMessage = "no items in wheel - adjust filters"

// handleOverlayWheel returns the idle wheel state
func (s *Server) handleOverlayWheel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, err := s.wheel.Snapshot(r.Context(), false)
	if err != nil {
		logger.Error("Failed to build wheel snapshot", zap.Error(err))
		http.Error(w, "Failed to build wheel state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap.State)
}

// handleOverlaySpin returns the latest spin record, or null
func (s *Server) handleOverlaySpin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.wheel.LastSpin())
}

// handleOverlayWheelSync returns idle state, latest spin and the server clock in one poll
func (s *Server) handleOverlayWheelSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, err := s.wheel.Snapshot(r.Context(), false)
	if err != nil {
		logger.Error("Failed to build wheel snapshot", zap.Error(err))
		http.Error(w, "Failed to build wheel state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, types.SyncResponse{
		State:      snap.State,
		Spin:       snap.Spin,
		ServerTime: s.now().UnixMilli(),
	})
}

// handleWheelSpin triggers a spin. The body may override durationMs and turns.
func (s *Server) handleWheelSpin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var overrides wheel.SpinOverrides
	if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := s.wheel.ExecuteSpin(r.Context(), overrides)
	switch {
	case errors.Is(err, wheel.ErrEmptyPool):
		http.Error(w, emptyPoolMessage, http.StatusBadRequest)
		return
	case errors.Is(err, wheel.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		logger.Error("Failed to execute spin", zap.Error(err))
		http.Error(w, "Failed to execute spin", http.StatusInternalServerError)
		return
	}

	writeJSON(w, rec)
}

// handleWheelSettings reads (GET) or patches (POST) mode and settings
func (s *Server) handleWheelSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		mode, settings := s.wheel.Settings()
		writeJSON(w, map[string]interface{}{"mode": mode, "settings": settings})

	case http.MethodPost, http.MethodPut, http.MethodPatch:
		var patch wheel.SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		mode, settings, err := s.wheel.UpdateSettings(r.Context(), patch)
		if err != nil {
			if errors.Is(err, wheel.ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Error("Failed to update wheel settings", zap.Error(err))
			http.Error(w, "Failed to update settings", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{"mode": mode, "settings": settings})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWheelHistory returns recent spins, newest first
func (s *Server) handleWheelHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "History unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = l
	}

	entries, err := s.store.GetSpinHistory(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to load spin history", zap.Error(err))
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"history": entries,
		"count":   len(entries),
	})
}
