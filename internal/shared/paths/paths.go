package paths

import (
	"os"
	"path/filepath"
)

var dataDir = defaultDataDir()

func defaultDataDir() string {
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".retro-wheel")
	}
	return "./data"
}

// SetDataDir overrides the data directory (used by env loading and tests).
func SetDataDir(dir string) {
	if dir != "" {
		dataDir = dir
	}
}

// GetDataDir returns the root directory for local state.
func GetDataDir() string {
	return dataDir
}

// GetDBPath returns the SQLite database path.
func GetDBPath() string {
	return filepath.Join(dataDir, "local.db")
}

// EnsureDataDirs creates the data directory if missing.
func EnsureDataDirs() error {
	return os.MkdirAll(dataDir, 0o755)
}
