package overlayclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ichi0g0y/retro-wheel/internal/replay"
	"github.com/ichi0g0y/retro-wheel/internal/types"
)

func testSample() types.Sample {
	var s types.Sample
	for i := range s {
		item := types.NewConsoleItem(string(rune('A' + i)))
		s[i] = &item
	}
	return s
}

func testSpin(ts int64, durationMs int) *types.SpinRecord {
	sample := testSample()
	return &types.SpinRecord{
		TS:         ts,
		SpinID:     "spin-test",
		Mode:       types.ModeConsole,
		Sample:     sample,
		TargetIdx:  2,
		DurationMs: durationMs,
		Turns:      4,
		Winner:     sample[2],
	}
}

func syncServer(t *testing.T, build func() types.SyncResponse, polls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/overlay/wheel-sync", func(w http.ResponseWriter, r *http.Request) {
		if polls != nil {
			polls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(build())
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("missing base url should fail")
	}
	if _, err := New(Options{BaseURL: "localhost:8080", Skin: "pinball"}); err == nil {
		t.Fatalf("unknown skin should fail")
	}
	c, err := New(Options{BaseURL: "localhost:8080/", Skin: "claw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.baseURL != "http://localhost:8080" {
		t.Fatalf("unexpected base url: got=%s", c.baseURL)
	}
}

func TestPollOnce_StartsSpin(t *testing.T) {
	serverNow := time.UnixMilli(1_700_000_000_000)
	spin := testSpin(serverNow.Add(-100*time.Millisecond).UnixMilli(), 3000)
	server := syncServer(t, func() types.SyncResponse {
		return types.SyncResponse{
			State:      types.IdleState{Mode: types.ModeConsole, PoolSize: 16, Sample: spin.Sample},
			Spin:       spin,
			ServerTime: serverNow.UnixMilli(),
		}
	}, nil)

	// local clock five seconds behind the server
	localNow := serverNow.Add(-5 * time.Second)
	c, err := New(Options{BaseURL: server.URL, Now: func() time.Time { return localNow }})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.PollOnce(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if c.State() != replay.StateSpinning {
		t.Fatalf("unexpected state: got=%v want=%v", c.State(), replay.StateSpinning)
	}
	end, _ := c.sync.SpinEndsAt()
	if end.UnixMilli() != spin.TS+int64(spin.DurationMs) {
		t.Fatalf("unexpected end: got=%d want=%d", end.UnixMilli(), spin.TS+int64(spin.DurationMs))
	}
}

func TestPollOnce_StaleSpinStaysIdle(t *testing.T) {
	serverNow := time.UnixMilli(1_700_000_000_000)
	spin := testSpin(serverNow.Add(-time.Minute).UnixMilli(), 3000)
	server := syncServer(t, func() types.SyncResponse {
		return types.SyncResponse{Spin: spin, ServerTime: serverNow.UnixMilli()}
	}, nil)

	completed := 0
	c, _ := New(Options{
		BaseURL:    server.URL,
		Now:        func() time.Time { return serverNow },
		OnComplete: func(types.SpinRecord) { completed++ },
	})
	if err := c.PollOnce(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if c.State() != replay.StateIdle {
		t.Fatalf("unexpected state: got=%v", c.State())
	}
	if completed != 0 {
		t.Fatalf("stale spin should not complete")
	}
}

func TestPollOnce_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c, _ := New(Options{BaseURL: server.URL})
	if err := c.PollOnce(context.Background()); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestRun_CompletesSpinOnce(t *testing.T) {
	spin := testSpin(time.Now().UnixMilli(), 200)
	server := syncServer(t, func() types.SyncResponse {
		return types.SyncResponse{
			State:      types.IdleState{Mode: types.ModeConsole, Sample: spin.Sample},
			Spin:       spin,
			ServerTime: time.Now().UnixMilli(),
		}
	}, nil)

	var completed atomic.Int32
	done := make(chan struct{}, 4)
	c, err := New(Options{
		BaseURL:       server.URL,
		Skin:          "claw",
		PollInterval:  20 * time.Millisecond,
		FrameInterval: 10 * time.Millisecond,
		OnComplete: func(types.SpinRecord) {
			completed.Add(1)
			done <- struct{}{}
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- c.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		cancel()
		t.Fatalf("spin never completed")
	}

	// keep polling the same record for a while
	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("run did not stop")
	}
	if completed.Load() != 1 {
		t.Fatalf("unexpected completion count: got=%d want=1", completed.Load())
	}
}

func TestRun_HintTriggersPoll(t *testing.T) {
	var polls atomic.Int32
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/overlay/wheel-sync", func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		_ = json.NewEncoder(w).Encode(types.SyncResponse{ServerTime: time.Now().UnixMilli()})
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]interface{}{"type": "wheel_spin"})
		// hold the connection until the client goes away
		_, _, _ = conn.ReadMessage()
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c, err := New(Options{BaseURL: server.URL, PollInterval: time.Hour, UseHints: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- c.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for polls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-result

	if polls.Load() < 2 {
		t.Fatalf("hint should trigger an extra poll: got=%d", polls.Load())
	}
}
