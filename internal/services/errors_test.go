package services_test

import (
	"errors"
	"strings"
	"testing"

	"extrad/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrTransient, "tmdb", "videos", "fetch failed", base)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	if !strings.Contains(err.Error(), "tmdb: videos: fetch failed") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient fallback, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"configuration", services.Wrap(services.ErrConfiguration, "ytdlp", "probe", "binary missing", nil), false},
		{"transient", services.Wrap(services.ErrTransient, "tmdb", "videos", "timeout", nil), true},
		{"external tool", services.Wrap(services.ErrExternalTool, "ytdlp", "download", "exit 1", nil), true},
	}
	for _, tc := range cases {
		if got := services.IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestContextCarriers(t *testing.T) {
	ctx := services.WithItemID(t.Context(), "item-42")
	ctx = services.WithItemTitle(ctx, "Film A")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.ItemIDFromContext(ctx); !ok || id != "item-42" {
		t.Fatalf("item id = %q, %v", id, ok)
	}
	if title, ok := services.ItemTitleFromContext(ctx); !ok || title != "Film A" {
		t.Fatalf("item title = %q, %v", title, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
	if _, ok := services.ItemIDFromContext(t.Context()); ok {
		t.Fatal("expected no item id on fresh context")
	}
}
