package services

import (
	"context"
	"strings"
)

type contextKey string

const (
	itemIDContextKey    contextKey = "extrad-item-id"
	itemTitleContextKey contextKey = "extrad-item-title"
	requestIDContextKey contextKey = "extrad-request-id"
)

// WithItemID returns a context carrying the catalog item identifier.
func WithItemID(ctx context.Context, itemID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return ctx
	}
	return context.WithValue(ctx, itemIDContextKey, itemID)
}

// ItemIDFromContext extracts the catalog item identifier if present.
func ItemIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(itemIDContextKey).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// WithItemTitle returns a context carrying the item display title.
func WithItemTitle(ctx context.Context, title string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ctx
	}
	return context.WithValue(ctx, itemTitleContextKey, title)
}

// ItemTitleFromContext extracts the item display title if present.
func ItemTitleFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(itemTitleContextKey).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// WithRequestID returns a context carrying a correlation identifier for one
// pass through the orchestration loop.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(requestIDContextKey).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
