package webserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	defaultQRPath = "/overlay/wheel"
	defaultQRSize = 256
	maxQRSize     = 1024
)

// overlayURL joins the overlay base with path. Without a configured base the
// request host is used.
func (s *Server) overlayURL(r *http.Request, path string) string {
	base := strings.TrimRight(s.overlayBaseURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// handleOverlayQR renders a PNG QR code pointing at an overlay URL
func (s *Server) handleOverlayQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		path = defaultQRPath
	}
	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > maxQRSize {
			http.Error(w, "Invalid size", http.StatusBadRequest)
			return
		}
		size = n
	}

	target := s.overlayURL(r, path)
	png, err := qrcode.Encode(target, qrcode.Medium, size)
	if err != nil {
		logger.Error("Failed to encode QR code", zap.Error(err), zap.String("url", target))
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Overlay-URL", target)
	w.Write(png)
}
