package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ichi0g0y/retro-wheel/internal/env"
	"github.com/ichi0g0y/retro-wheel/internal/localdb"
	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/shared/paths"
	"github.com/ichi0g0y/retro-wheel/internal/version"
	"github.com/ichi0g0y/retro-wheel/internal/webserver"
	"github.com/ichi0g0y/retro-wheel/internal/wheel"
	"go.uber.org/zap"
)

func main() {
	logger.Init(false)
	defer logger.Sync()

	env.LoadEnv()
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	logger.Info("Starting retro-wheel server", zap.String("version", version.String()))

	if err := paths.EnsureDataDirs(); err != nil {
		logger.Fatal("Failed to ensure data directories", zap.Error(err))
	}

	if _, err := localdb.SetupDB(paths.GetDBPath()); err != nil {
		logger.Fatal("Failed to setup database", zap.Error(err))
	}

	ctx := context.Background()
	store := localdb.NewStore()
	seedLibrary(ctx, store, env.Value.LibrarySeedFile)

	svc := wheel.NewService(ctx, wheel.Options{
		Library:      store,
		Suggestions:  store,
		Events:       store,
		State:        store,
		History:      store,
		StoreTimeout: env.Value.StoreTimeout,
	})

	port := env.Value.ServerPort
	if err := webserver.StartWebServer(port, webserver.Options{
		Wheel:          svc,
		Store:          store,
		OverlayBaseURL: env.Value.OverlayBaseURL,
	}); err != nil {
		logger.Fatal("Failed to start web server", zap.Error(err))
	}

	logger.Info("Server started",
		zap.Int("port", port),
		zap.String("wheel_sync", fmt.Sprintf("http://localhost:%d/overlay/wheel-sync", port)),
		zap.String("data_dir", paths.GetDataDir()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	webserver.Shutdown()
	if db := localdb.GetDB(); db != nil {
		_ = db.Close()
	}

	logger.Info("Shutdown complete")
}
