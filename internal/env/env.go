package env

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/shared/paths"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// EnvValue holds process configuration.
type EnvValue struct {
	ServerPort      int
	DebugMode       bool
	DataDir         string
	StoreTimeout    time.Duration
	LibrarySeedFile string
	OverlayBaseURL  string
}

var Value = defaults()

func defaults() EnvValue {
	return EnvValue{
		ServerPort:   8080,
		StoreTimeout: 1500 * time.Millisecond,
	}
}

// LoadEnv reads .env (if present) and the process environment into Value.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	v := defaults()
	v.ServerPort = getInt("SERVER_PORT", v.ServerPort)
	v.DebugMode = getBool("DEBUG_MODE", false)
	v.DataDir = strings.TrimSpace(os.Getenv("DATA_DIR"))
	if ms := getInt("STORE_TIMEOUT_MS", 0); ms > 0 {
		v.StoreTimeout = time.Duration(ms) * time.Millisecond
	}
	v.LibrarySeedFile = strings.TrimSpace(os.Getenv("LIBRARY_SEED_FILE"))
	v.OverlayBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("OVERLAY_BASE_URL")), "/")

	if v.DataDir != "" {
		paths.SetDataDir(v.DataDir)
	}
	Value = v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("Invalid integer in environment", zap.String("key", key), zap.String("value", raw))
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}
