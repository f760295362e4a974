package history_test

import (
	"path/filepath"
	"testing"
	"time"

	"extrad/internal/history"
)

func openTestStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()

	records := []history.Record{
		{ItemID: "m1", Title: "Alien", TMDBID: 348, Kind: "movie", Category: "Trailers", VideoKey: "abc", Site: "YouTube", FilePath: "/media/Alien/Trailers/x.mkv", Status: history.StatusDownloaded},
		{ItemID: "m1", Title: "Alien", TMDBID: 348, Kind: "movie", Category: "Featurettes", VideoKey: "def", Site: "YouTube", Status: history.StatusFailed, Detail: "exit status 1"},
	}
	for _, rec := range records {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].VideoKey != "def" || recent[0].Status != history.StatusFailed {
		t.Fatalf("expected newest first, got %+v", recent[0])
	}
	if recent[1].FilePath != "/media/Alien/Trailers/x.mkv" {
		t.Fatalf("unexpected file path: %+v", recent[1])
	}
}

func TestForItem(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()

	for _, rec := range []history.Record{
		{ItemID: "m1", Title: "Alien", Status: history.StatusDownloaded, VideoKey: "a", Kind: "movie", Category: "Trailers", Site: "YouTube"},
		{ItemID: "m2", Title: "Dune", Status: history.StatusSkipped, VideoKey: "b", Kind: "movie", Category: "Trailers", Site: "YouTube"},
	} {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := store.ForItem(ctx, "m2")
	if err != nil {
		t.Fatalf("ForItem failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Dune" {
		t.Fatalf("unexpected item records: %+v", got)
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()

	old := history.Record{ItemID: "m1", Title: "Old", Status: history.StatusDownloaded, VideoKey: "a", Kind: "movie", Category: "Trailers", Site: "YouTube", CreatedAt: time.Now().Add(-30 * 24 * time.Hour)}
	fresh := history.Record{ItemID: "m2", Title: "Fresh", Status: history.StatusDownloaded, VideoKey: "b", Kind: "movie", Category: "Trailers", Site: "YouTube"}
	if err := store.Append(ctx, old); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, fresh); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	deleted, err := store.Prune(ctx, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 pruned record, got %d", deleted)
	}
	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 1 || recent[0].Title != "Fresh" {
		t.Fatalf("unexpected survivors: %+v", recent)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Append(t.Context(), history.Record{ItemID: "m1", Title: "Alien", Status: history.StatusDownloaded, VideoKey: "a", Kind: "movie", Category: "Trailers", Site: "YouTube"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	recent, err := reopened.Recent(t.Context(), 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected record to survive reopen, got %d", len(recent))
	}
}
