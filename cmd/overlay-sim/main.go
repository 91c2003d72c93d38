package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ichi0g0y/retro-wheel/internal/env"
	"github.com/ichi0g0y/retro-wheel/internal/overlayclient"
	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "overlay-sim",
		Short: "Headless wheel overlay that replays spins from a retro-wheel server",
		Long: `overlay-sim polls a retro-wheel server the way an OBS browser source does
and replays every spin through the chosen skin, logging state changes and winners.

Run several at once to watch independent clients land on the same winner.

Example:
  overlay-sim --url http://localhost:8080 --skin claw`,
		RunE: run,
	}

	rootCmd.Flags().StringP("url", "u", "", "Server base URL (default: OVERLAY_BASE_URL or http://localhost:SERVER_PORT)")
	rootCmd.Flags().StringP("skin", "s", "wheel", "Renderer skin: wheel or claw")
	rootCmd.Flags().Duration("poll", time.Second, "Poll interval")
	rootCmd.Flags().Duration("frame", 16*time.Millisecond, "Render frame interval")
	rootCmd.Flags().Bool("hints", true, "Listen for websocket hints and poll immediately")
	rootCmd.Flags().Bool("debug", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	env.LoadEnv()

	debug, _ := cmd.Flags().GetBool("debug")
	logger.Init(debug || env.Value.DebugMode)
	defer logger.Sync()

	baseURL, _ := cmd.Flags().GetString("url")
	if baseURL == "" {
		baseURL = env.Value.OverlayBaseURL
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", env.Value.ServerPort)
	}
	skin, _ := cmd.Flags().GetString("skin")
	poll, _ := cmd.Flags().GetDuration("poll")
	frame, _ := cmd.Flags().GetDuration("frame")
	hints, _ := cmd.Flags().GetBool("hints")

	client, err := overlayclient.New(overlayclient.Options{
		BaseURL:       baseURL,
		Skin:          skin,
		PollInterval:  poll,
		FrameInterval: frame,
		UseHints:      hints,
		OnComplete: func(rec types.SpinRecord) {
			if rec.Winner != nil {
				fmt.Printf("winner: %s\n", rec.Winner.Label())
			}
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Overlay simulator started", zap.String("url", baseURL), zap.String("skin", skin))
	if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Overlay simulator stopped", zap.String("last_status", client.Status()))
	return nil
}
