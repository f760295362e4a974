package extras

import (
	"context"
	"log/slog"

	"extrad/internal/locale"
	"extrad/internal/logging"
	"extrad/internal/services"
	"extrad/internal/tmdb"
)

// Resolver turns a catalog item into raw supplementary-video candidates.
type Resolver struct {
	api      tmdb.VideosAPI
	language string
	logger   *slog.Logger
}

// NewResolver builds a resolver that queries the given locale first. The
// locale is normalized; an empty list falls back to en-US.
func NewResolver(api tmdb.VideosAPI, languages []string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		api:      api,
		language: locale.Primary(languages, "en-US"),
		logger:   logger.With(logging.FieldComponent, "resolver"),
	}
}

// Resolve fetches candidates for one item. Lookup failures degrade to an
// empty plan so a metadata outage never fails the item; the caller marks
// the item processed either way.
func (r *Resolver) Resolve(ctx context.Context, mediaType tmdb.MediaType, externalID int64) []Candidate {
	candidates, err := r.fetch(ctx, mediaType, externalID, r.language)
	if err != nil && !services.IsRetryable(err) {
		// A rejected key or similar needs operator action; the
		// all-locales retry would only fail the same way.
		return nil
	}
	if len(candidates) == 0 {
		// Some items only carry videos under other locales.
		candidates, _ = r.fetch(ctx, mediaType, externalID, "")
	}
	return dedupeByKey(candidates)
}

func (r *Resolver) fetch(ctx context.Context, mediaType tmdb.MediaType, externalID int64, language string) ([]Candidate, error) {
	resp, err := r.api.Videos(ctx, mediaType, externalID, language)
	if err != nil {
		r.logger.Warn("videos lookup failed",
			logging.String("media_type", string(mediaType)),
			logging.Int64("tmdb_id", externalID),
			logging.String("language", language),
			logging.Error(err))
		return nil, err
	}
	candidates := make([]Candidate, 0, len(resp.Results))
	for _, video := range resp.Results {
		candidates = append(candidates, Candidate{
			Key:         video.Key,
			Name:        video.Name,
			Site:        video.Site,
			Category:    CategoryFromType(video.Type),
			Official:    video.Official,
			PublishedAt: video.PublishedAt,
			Locale:      video.ISO639,
			Size:        video.Size,
		})
	}
	return candidates, nil
}

func dedupeByKey(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, cand := range candidates {
		if _, dup := seen[cand.Key]; dup {
			continue
		}
		seen[cand.Key] = struct{}{}
		out = append(out, cand)
	}
	return out
}
