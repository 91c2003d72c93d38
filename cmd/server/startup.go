package main

import (
	"context"

	"github.com/ichi0g0y/retro-wheel/internal/localdb"
	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"go.uber.org/zap"
)

// seedLibrary imports a library export on startup. The wheel keeps running on
// whatever library is already stored if the import fails.
func seedLibrary(ctx context.Context, store *localdb.Store, path string) {
	if path == "" {
		return
	}
	n, err := store.ImportLibraryFile(ctx, path)
	if err != nil {
		logger.Warn("Failed to import library seed file", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Info("Library seed imported", zap.String("path", path), zap.Int("games", n))
}
