package webserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
)

// handleLogs returns recent logs
func handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	logs := logger.Recent(limit)
	writeJSON(w, map[string]interface{}{
		"logs":      logs,
		"count":     len(logs),
		"timestamp": time.Now(),
	})
}

// handleLogsDownload downloads logs as a file
func handleLogsDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	logs := logger.Recent(0)
	stamp := time.Now().Format("20060102-150405")

	switch format {
	case "json":
		data, err := json.MarshalIndent(logs, "", "  ")
		if err != nil {
			http.Error(w, "Failed to generate JSON", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=retro-wheel-logs-%s.json", stamp))
		w.Write(data)

	case "text":
		var b strings.Builder
		for _, entry := range logs {
			fmt.Fprintf(&b, "%s\t%s\t%s", entry.Timestamp.Format(time.RFC3339), strings.ToUpper(entry.Level), entry.Message)
			if entry.Caller != "" {
				fmt.Fprintf(&b, "\t%s", entry.Caller)
			}
			b.WriteByte('\n')
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=retro-wheel-logs-%s.txt", stamp))
		w.Write([]byte(b.String()))

	default:
		http.Error(w, "Invalid format. Use 'json' or 'text'", http.StatusBadRequest)
	}
}

// handleLogsClear drops the buffered logs
func handleLogsClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	logger.Clear()
	writeJSON(w, map[string]interface{}{"success": true})
}
