package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"extrad/internal/config"
	"extrad/internal/extras"
	"extrad/internal/queue"
	"extrad/internal/tmdb"
	"extrad/internal/ytdlp"
)

type fakeResolver struct {
	candidates []extras.Candidate
	calls      int
}

func (f *fakeResolver) Resolve(context.Context, tmdb.MediaType, int64) []extras.Candidate {
	f.calls++
	return f.candidates
}

type downloadCall struct {
	key      string
	destDir  string
	baseName string
}

type fakeDownloader struct {
	available bool
	succeed   bool
	calls     []downloadCall
	onCall    func()
}

func (f *fakeDownloader) IsAvailable(context.Context) bool { return f.available }

func (f *fakeDownloader) Download(_ context.Context, cand extras.Candidate, destDir, baseName string, _ func(ytdlp.ProgressUpdate)) (string, bool) {
	f.calls = append(f.calls, downloadCall{key: cand.Key, destDir: destDir, baseName: baseName})
	if f.onCall != nil {
		f.onCall()
	}
	if !f.succeed {
		return "", false
	}
	path := filepath.Join(destDir, baseName+".mkv")
	os.MkdirAll(destDir, 0o755)
	os.WriteFile(path, []byte("video"), 0o644)
	return path, true
}

type fakeTokens struct {
	healthy bool
	ensures int
	stops   int
}

func (f *fakeTokens) EnsureRunning(context.Context) bool {
	f.ensures++
	return f.healthy
}

func (f *fakeTokens) Stop() { f.stops++ }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TMDB.APIKey = "test"
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.InterVideoDelay = 0
	cfg.Workflow.InterItemDelay = 0
	cfg.Workflow.ErrorCooldown = 1
	return &cfg
}

func newTestManager(t *testing.T, cfg *config.Config, resolver CandidateResolver, downloader ytdlp.Downloader, tokens TokenSupervisor) (*Manager, *queue.Queue) {
	t.Helper()
	q := queue.New(72*time.Hour, nil)
	m, err := NewManager(cfg, q, resolver, downloader, tokens, nil, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m, q
}

func testRequest(t *testing.T) queue.Request {
	t.Helper()
	return queue.Request{
		ItemID: "m1",
		Title:  "Alien: Romulus",
		TMDBID: 945961,
		Kind:   queue.KindMovie,
		Path:   t.TempDir(),
	}
}

func TestProcessRequestDownloadsPlan(t *testing.T) {
	cfg := testConfig(t)
	resolver := &fakeResolver{candidates: []extras.Candidate{
		{Key: "abc", Name: "Official Trailer", Site: "YouTube", Category: extras.CategoryTrailers, Official: true},
		{Key: "def", Name: "Making Of", Site: "YouTube", Category: extras.CategoryFeaturettes, Official: true},
	}}
	downloader := &fakeDownloader{available: true, succeed: true}
	m, q := newTestManager(t, cfg, resolver, downloader, nil)

	req := testRequest(t)
	if err := m.processRequest(t.Context(), req); err != nil {
		t.Fatalf("processRequest failed: %v", err)
	}
	if len(downloader.calls) != 2 {
		t.Fatalf("expected 2 downloads, got %+v", downloader.calls)
	}
	if downloader.calls[0].destDir != filepath.Join(req.Path, "Trailers") {
		t.Fatalf("unexpected trailer dest: %q", downloader.calls[0].destDir)
	}
	if downloader.calls[0].baseName != "Official Trailer-trailer" {
		t.Fatalf("unexpected base name: %q", downloader.calls[0].baseName)
	}
	if downloader.calls[1].baseName != "Making Of-featurette" {
		t.Fatalf("unexpected base name: %q", downloader.calls[1].baseName)
	}
	// Item is now suppressed.
	if q.Enqueue(req) {
		t.Fatal("expected suppression after processing")
	}
}

func TestProcessRequestFlatLayoutUsesSuffix(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extras.OrganizeIntoFolders = false
	resolver := &fakeResolver{candidates: []extras.Candidate{
		{Key: "abc", Name: "Official Trailer", Site: "YouTube", Category: extras.CategoryTrailers, Official: true},
	}}
	downloader := &fakeDownloader{available: true, succeed: true}
	m, _ := newTestManager(t, cfg, resolver, downloader, nil)

	req := testRequest(t)
	if err := m.processRequest(t.Context(), req); err != nil {
		t.Fatalf("processRequest failed: %v", err)
	}
	if len(downloader.calls) != 1 {
		t.Fatalf("expected 1 download, got %+v", downloader.calls)
	}
	if downloader.calls[0].destDir != req.Path {
		t.Fatalf("flat layout should use the item path, got %q", downloader.calls[0].destDir)
	}
	if downloader.calls[0].baseName != "Official Trailer-trailer" {
		t.Fatalf("unexpected base name: %q", downloader.calls[0].baseName)
	}
}

func TestProcessRequestEmptyPlanMarksProcessed(t *testing.T) {
	cfg := testConfig(t)
	m, q := newTestManager(t, cfg, &fakeResolver{}, &fakeDownloader{available: true}, nil)

	req := testRequest(t)
	if err := m.processRequest(t.Context(), req); err != nil {
		t.Fatalf("processRequest failed: %v", err)
	}
	if q.Enqueue(req) {
		t.Fatal("expected suppression even with no downloads")
	}
}

func TestProcessRequestDownloaderUnavailable(t *testing.T) {
	cfg := testConfig(t)
	resolver := &fakeResolver{candidates: []extras.Candidate{{Key: "abc", Site: "YouTube", Category: extras.CategoryTrailers}}}
	m, q := newTestManager(t, cfg, resolver, &fakeDownloader{available: false}, nil)

	req := testRequest(t)
	if err := m.processRequest(t.Context(), req); err != nil {
		t.Fatalf("processRequest failed: %v", err)
	}
	if resolver.calls != 0 {
		t.Fatal("resolver should not run when downloader is unavailable")
	}
	if q.Enqueue(req) {
		t.Fatal("unavailable downloader should still mark the item processed")
	}
}

func TestProcessRequestCancellationLeavesItemUnmarked(t *testing.T) {
	cfg := testConfig(t)
	resolver := &fakeResolver{candidates: []extras.Candidate{
		{Key: "abc", Name: "Trailer", Site: "YouTube", Category: extras.CategoryTrailers, Official: true},
	}}
	ctx, cancel := context.WithCancel(t.Context())
	downloader := &fakeDownloader{available: true, succeed: false, onCall: cancel}
	m, q := newTestManager(t, cfg, resolver, downloader, nil)

	req := testRequest(t)
	if err := m.processRequest(ctx, req); err == nil {
		t.Fatal("expected context error")
	}
	if !q.Enqueue(req) {
		t.Fatal("cancelled item must stay eligible for re-enqueue")
	}
}

func TestProcessRequestContinuesAfterFailedDownload(t *testing.T) {
	cfg := testConfig(t)
	resolver := &fakeResolver{candidates: []extras.Candidate{
		{Key: "bad", Name: "Broken", Site: "YouTube", Category: extras.CategoryTrailers, Official: true},
		{Key: "good", Name: "Making Of", Site: "YouTube", Category: extras.CategoryFeaturettes, Official: true},
	}}
	downloader := &fakeDownloader{available: true, succeed: false}
	m, q := newTestManager(t, cfg, resolver, downloader, nil)

	req := testRequest(t)
	if err := m.processRequest(t.Context(), req); err != nil {
		t.Fatalf("processRequest failed: %v", err)
	}
	if len(downloader.calls) != 2 {
		t.Fatalf("a failed video must not abort the item, got %+v", downloader.calls)
	}
	if q.Enqueue(req) {
		t.Fatal("item should be marked processed despite failures")
	}
}

func TestProcessRequestTokenProviderFailureProceeds(t *testing.T) {
	cfg := testConfig(t)
	cfg.POTServer.Enabled = true
	resolver := &fakeResolver{candidates: []extras.Candidate{
		{Key: "abc", Name: "Trailer", Site: "YouTube", Category: extras.CategoryTrailers, Official: true},
	}}
	downloader := &fakeDownloader{available: true, succeed: true}
	tokens := &fakeTokens{healthy: false}
	m, _ := newTestManager(t, cfg, resolver, downloader, tokens)

	if err := m.processRequest(t.Context(), testRequest(t)); err != nil {
		t.Fatalf("processRequest failed: %v", err)
	}
	if tokens.ensures != 1 {
		t.Fatalf("expected token check, got %d", tokens.ensures)
	}
	if len(downloader.calls) != 1 {
		t.Fatal("download should proceed without tokens")
	}
}

func TestProcessRequestSkipsExistingTrailer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extras.SkipIfTrailerExists = true
	resolver := &fakeResolver{candidates: []extras.Candidate{
		{Key: "abc", Name: "Trailer", Site: "YouTube", Category: extras.CategoryTrailers, Official: true},
	}}
	downloader := &fakeDownloader{available: true, succeed: true}
	m, _ := newTestManager(t, cfg, resolver, downloader, nil)

	req := testRequest(t)
	trailerDir := filepath.Join(req.Path, "Trailers")
	os.MkdirAll(trailerDir, 0o755)
	os.WriteFile(filepath.Join(trailerDir, "old.mkv"), []byte("x"), 0o644)

	if err := m.processRequest(t.Context(), req); err != nil {
		t.Fatalf("processRequest failed: %v", err)
	}
	if resolver.calls != 0 || len(downloader.calls) != 0 {
		t.Fatal("existing trailer should short-circuit the item")
	}
}

func TestProcessRequestSkipsFuzzyDuplicate(t *testing.T) {
	cfg := testConfig(t)
	resolver := &fakeResolver{candidates: []extras.Candidate{
		{Key: "abc", Name: "Official Trailer #1", Site: "YouTube", Category: extras.CategoryTrailers, Official: true},
	}}
	downloader := &fakeDownloader{available: true, succeed: true}
	m, _ := newTestManager(t, cfg, resolver, downloader, nil)

	req := testRequest(t)
	trailerDir := filepath.Join(req.Path, "Trailers")
	os.MkdirAll(trailerDir, 0o755)
	os.WriteFile(filepath.Join(trailerDir, "official trailer 1.mkv"), []byte("x"), 0o644)

	if err := m.processRequest(t.Context(), req); err != nil {
		t.Fatalf("processRequest failed: %v", err)
	}
	if len(downloader.calls) != 0 {
		t.Fatalf("fuzzy duplicate should be skipped, got %+v", downloader.calls)
	}
}

func TestProcessRequestFlatLayoutSkipsSuffixTagged(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extras.OrganizeIntoFolders = false
	resolver := &fakeResolver{candidates: []extras.Candidate{
		{Key: "abc", Name: "Brand New Trailer", Site: "YouTube", Category: extras.CategoryTrailers, Official: true},
	}}
	downloader := &fakeDownloader{available: true, succeed: true}
	m, _ := newTestManager(t, cfg, resolver, downloader, nil)

	req := testRequest(t)
	os.WriteFile(filepath.Join(req.Path, "Something Else-trailer.mkv"), []byte("x"), 0o644)

	if err := m.processRequest(t.Context(), req); err != nil {
		t.Fatalf("processRequest failed: %v", err)
	}
	if len(downloader.calls) != 0 {
		t.Fatalf("suffix-tagged file should count as existing, got %+v", downloader.calls)
	}
}

func TestProcessRequestFolderLayoutSkipsSuffixTagged(t *testing.T) {
	cfg := testConfig(t)
	resolver := &fakeResolver{candidates: []extras.Candidate{
		{Key: "abc", Name: "Brand New Trailer", Site: "YouTube", Category: extras.CategoryTrailers, Official: true},
	}}
	downloader := &fakeDownloader{available: true, succeed: true}
	m, _ := newTestManager(t, cfg, resolver, downloader, nil)

	req := testRequest(t)
	trailerDir := filepath.Join(req.Path, "Trailers")
	os.MkdirAll(trailerDir, 0o755)
	os.WriteFile(filepath.Join(trailerDir, "Something Else-trailer.mkv"), []byte("x"), 0o644)

	if err := m.processRequest(t.Context(), req); err != nil {
		t.Fatalf("processRequest failed: %v", err)
	}
	if len(downloader.calls) != 0 {
		t.Fatalf("suffix-tagged file should count as existing, got %+v", downloader.calls)
	}
}

func TestProcessRequestCancelDuringPacingSleep(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workflow.InterVideoDelay = 30
	resolver := &fakeResolver{candidates: []extras.Candidate{
		{Key: "abc", Name: "Official Trailer", Site: "YouTube", Category: extras.CategoryTrailers, Official: true},
	}}
	downloader := &fakeDownloader{available: true, succeed: true}
	m, q := newTestManager(t, cfg, resolver, downloader, nil)

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	req := testRequest(t)
	start := time.Now()
	if err := m.processRequest(ctx, req); err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation should interrupt the pacing sleep, took %v", elapsed)
	}
	if len(downloader.calls) != 1 {
		t.Fatalf("expected the download to finish before cancellation, got %+v", downloader.calls)
	}
	if !q.Enqueue(req) {
		t.Fatal("cancelled item must stay eligible for re-enqueue")
	}
}

func TestStartStop(t *testing.T) {
	cfg := testConfig(t)
	tokens := &fakeTokens{healthy: true}
	m, q := newTestManager(t, cfg, &fakeResolver{}, &fakeDownloader{available: true}, tokens)

	if err := m.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Start(t.Context()); err == nil {
		t.Fatal("second Start should fail")
	}

	q.Enqueue(queue.Request{ItemID: "m1", TMDBID: 1, Kind: queue.KindMovie, Path: t.TempDir()})

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return promptly")
	}
	if tokens.stops != 1 {
		t.Fatalf("expected token supervisor stop, got %d", tokens.stops)
	}
	// Stop again is a no-op.
	m.Stop()
}
