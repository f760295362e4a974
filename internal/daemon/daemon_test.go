package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"extrad/internal/config"
	"extrad/internal/extras"
	"extrad/internal/ingest"
	"extrad/internal/queue"
	"extrad/internal/tmdb"
	"extrad/internal/worker"
	"extrad/internal/ytdlp"
)

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, tmdb.MediaType, int64) []extras.Candidate {
	return nil
}

type stubDownloader struct{}

func (stubDownloader) IsAvailable(context.Context) bool { return true }

func (stubDownloader) Download(context.Context, extras.Candidate, string, string, func(ytdlp.ProgressUpdate)) (string, bool) {
	return "", false
}

func testDaemonConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TMDB.APIKey = "test"
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Workflow.QueuePollInterval = 1
	return &cfg
}

func newTestDaemon(t *testing.T, cfg *config.Config) (*Daemon, *queue.Queue) {
	t.Helper()
	q := queue.New(time.Hour, nil)
	wf, err := worker.NewManager(cfg, q, stubResolver{}, stubDownloader{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	d, err := New(cfg, q, wf, ingest.New(q, nil), nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d, q
}

func startedDaemon(t *testing.T) (*Daemon, *queue.Queue, string) {
	t.Helper()
	cfg := testDaemonConfig(t)
	d, q := newTestDaemon(t, cfg)
	if err := d.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, q, "http://" + d.api.addr()
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := testDaemonConfig(t)
	d, _ := newTestDaemon(t, cfg)
	if err := d.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(t.Context()); err == nil {
		t.Fatal("second Start should fail")
	}
	d.Stop()
	d.Stop()
}

func TestSingleInstanceLock(t *testing.T) {
	cfg := testDaemonConfig(t)
	first, _ := newTestDaemon(t, cfg)
	if err := first.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	second, _ := newTestDaemon(t, cfg)
	if err := second.Start(t.Context()); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, _, baseURL := startedDaemon(t)

	resp, err := http.Get(baseURL + "/api/status")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code %d", resp.StatusCode)
	}
	var payload StatusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !payload.Running || payload.PID == 0 {
		t.Fatalf("unexpected status payload: %+v", payload)
	}
	if len(payload.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}
}

func TestTriggerEndpoint(t *testing.T) {
	_, q, baseURL := startedDaemon(t)

	body, _ := json.Marshal(TriggerPayload{
		ItemID: "m1",
		Title:  "Alien",
		TMDBID: 348,
		Kind:   "movie",
		Path:   t.TempDir(),
	})
	resp, err := http.Post(baseURL+"/api/trigger", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("trigger request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status code %d", resp.StatusCode)
	}
	var payload AcceptedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Accepted {
		t.Fatal("trigger should be accepted")
	}
	// The workflow loop may have already drained the request; accepted is
	// the contract, not queue depth.
	_ = q
}

func TestTriggerEndpointValidation(t *testing.T) {
	_, _, baseURL := startedDaemon(t)

	cases := []TriggerPayload{
		{TMDBID: 0, Kind: "movie", Path: "/x"},
		{TMDBID: 1, Kind: "movie", Path: ""},
		{TMDBID: 1, Kind: "music", Path: "/x"},
	}
	for _, tc := range cases {
		body, _ := json.Marshal(tc)
		resp, err := http.Post(baseURL+"/api/trigger", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("trigger request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for %+v, got %d", tc, resp.StatusCode)
		}
	}
}

func TestEventsEndpoint(t *testing.T) {
	_, _, baseURL := startedDaemon(t)

	body, _ := json.Marshal(ingest.Event{
		Type:   ingest.EventAdded,
		ItemID: "m1",
		Title:  "Alien",
		TMDBID: 348,
		Kind:   queue.KindMovie,
		Path:   t.TempDir(),
	})
	resp, err := http.Post(baseURL+"/api/events", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("events request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status code %d", resp.StatusCode)
	}
	var payload AcceptedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Accepted {
		t.Fatal("event should be accepted")
	}
}

func TestQueueEndpointMethodGuard(t *testing.T) {
	_, _, baseURL := startedDaemon(t)

	resp, err := http.Post(baseURL+"/api/queue", "application/json", nil)
	if err != nil {
		t.Fatalf("queue request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
