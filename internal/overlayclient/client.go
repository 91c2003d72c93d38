package overlayclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ichi0g0y/retro-wheel/internal/replay"
	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/types"
	"go.uber.org/zap"
)

const (
	defaultPollInterval  = time.Second
	defaultFrameInterval = 16 * time.Millisecond
	defaultHTTPTimeout   = 3 * time.Second
	hintRetryDelay       = 2 * time.Second
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL       string
	Skin          string
	PollInterval  time.Duration
	FrameInterval time.Duration
	HTTPTimeout   time.Duration
	// UseHints subscribes to the server websocket and polls as soon as a hint arrives.
	UseHints   bool
	Now        func() time.Time
	OnComplete func(types.SpinRecord)
}

// Client is a headless overlay: it polls the wheel server and replays spins
// through a skin, the same way a browser overlay would.
type Client struct {
	baseURL       string
	pollInterval  time.Duration
	frameInterval time.Duration
	useHints      bool
	now           func() time.Time
	httpClient    *http.Client

	sync *replay.Synchronizer

	skinMu    sync.Mutex
	skin      replay.Skin
	lastState replay.State

	timerMu sync.Mutex
	backup  *time.Timer

	pollNow chan struct{}
}

// New builds a client for the server at opts.BaseURL.
func New(opts Options) (*Client, error) {
	baseURL := normalizeBaseURL(opts.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("overlay base url is required")
	}
	skin, err := replay.NewSkin(opts.Skin)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:       baseURL,
		pollInterval:  opts.PollInterval,
		frameInterval: opts.FrameInterval,
		useHints:      opts.UseHints,
		now:           opts.Now,
		skin:          skin,
		pollNow:       make(chan struct{}, 1),
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.frameInterval <= 0 {
		c.frameInterval = defaultFrameInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	c.httpClient = &http.Client{Timeout: timeout}

	onComplete := opts.OnComplete
	c.sync = replay.NewSynchronizer(skin.Timing(), func(rec types.SpinRecord) {
		logger.Info("Spin complete",
			zap.String("spin_id", rec.SpinID),
			zap.String("winner", winnerLabel(rec)))
		if onComplete != nil {
			onComplete(rec)
		}
	})
	return c, nil
}

func normalizeBaseURL(baseURL string) string {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		return "http://" + strings.TrimRight(trimmed, "/")
	}
	return strings.TrimRight(trimmed, "/")
}

// Run polls and renders until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		c.pollLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		c.renderLoop(ctx)
	}()
	if c.useHints {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.hintLoop(ctx)
		}()
	}

	wg.Wait()

	c.timerMu.Lock()
	if c.backup != nil {
		c.backup.Stop()
	}
	c.timerMu.Unlock()
	return ctx.Err()
}

// State returns the replay state.
func (c *Client) State() replay.State {
	return c.sync.State()
}

// Status describes the skin for logging.
func (c *Client) Status() string {
	c.skinMu.Lock()
	defer c.skinMu.Unlock()
	return c.skin.Status()
}

func (c *Client) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if err := c.PollOnce(ctx); err != nil && ctx.Err() == nil {
			// transient; the next poll retries
			logger.Warn("Wheel sync poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.pollNow:
		}
	}
}

// PollOnce fetches /overlay/wheel-sync and feeds it to the synchronizer.
func (c *Client) PollOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/overlay/wheel-sync", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wheel sync returned status %d", resp.StatusCode)
	}

	var payload types.SyncResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode wheel sync: %w", err)
	}

	now := c.now()
	if payload.ServerTime > 0 {
		c.sync.SetServerTime(payload.ServerTime, now)
	}

	if payload.Spin != nil {
		c.observe(*payload.Spin, now)
	}
	c.sync.ApplyIdle(payload.State)
	return nil
}

func (c *Client) observe(rec types.SpinRecord, now time.Time) {
	transition := c.sync.Observe(&rec, now)
	switch transition {
	case replay.TransitionStarted, replay.TransitionShownFinished:
		c.skinMu.Lock()
		c.skin.StartSpin(rec, replay.NewRand(rec))
		c.skinMu.Unlock()
		logger.Info("Replaying spin",
			zap.String("spin_id", rec.SpinID),
			zap.String("transition", transition.String()),
			zap.Int("target_idx", rec.TargetIdx),
			zap.Int("duration_ms", rec.DurationMs))
		c.armBackup(now)
	case replay.TransitionSkippedStale:
		logger.Debug("Skipping stale spin", zap.String("spin_id", rec.SpinID), zap.Int64("ts", rec.TS))
	}
}

// armBackup schedules a Tick at the spin deadline so completion fires even if
// the render loop stalls.
func (c *Client) armBackup(now time.Time) {
	deadline, ok := c.sync.Deadline()
	if !ok {
		return
	}

	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.backup != nil {
		c.backup.Stop()
	}
	c.backup = time.AfterFunc(deadline.Sub(now), func() {
		c.sync.Tick(c.now())
	})
}

func (c *Client) renderLoop(ctx context.Context) {
	ticker := time.NewTicker(c.frameInterval)
	defer ticker.Stop()

	last := c.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := c.now()
		frame := c.sync.Tick(now)

		c.skinMu.Lock()
		c.skin.Advance(frame, now.Sub(last))
		changed := frame.State != c.lastState
		c.lastState = frame.State
		status := c.skin.Status()
		c.skinMu.Unlock()
		last = now

		if changed {
			logger.Info("Overlay state changed",
				zap.String("state", frame.State.String()),
				zap.String("skin", c.skin.Name()),
				zap.String("status", status))
		}
	}
}

func (c *Client) hintLoop(ctx context.Context) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	for {
		if err := c.readHints(ctx, wsURL); err != nil && ctx.Err() == nil {
			logger.Debug("Hint connection closed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(hintRetryDelay):
		}
	}
}

func (c *Client) readHints(ctx context.Context, wsURL string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case "wheel_spin", "wheel_settings":
			select {
			case c.pollNow <- struct{}{}:
			default:
			}
		}
	}
}

func winnerLabel(rec types.SpinRecord) string {
	if rec.Winner == nil {
		return ""
	}
	return rec.Winner.Label()
}
