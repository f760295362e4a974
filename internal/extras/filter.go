package extras

import (
	"sort"

	"extrad/internal/config"
)

// FilterConfig controls which resolved candidates survive planning.
type FilterConfig struct {
	AllowVimeo     bool
	OfficialOnly   bool
	PreferOfficial bool
	MaxPerCategory int
	Enabled        map[Category]bool
}

// FilterConfigFrom derives a FilterConfig from the extras configuration
// section.
func FilterConfigFrom(cfg config.Extras) FilterConfig {
	return FilterConfig{
		AllowVimeo:     cfg.AllowVimeo,
		OfficialOnly:   cfg.OfficialOnly,
		PreferOfficial: cfg.PreferOfficial,
		MaxPerCategory: cfg.MaxPerCategory,
		Enabled: map[Category]bool{
			CategoryTrailers:        cfg.Trailers,
			CategoryFeaturettes:     cfg.Featurettes,
			CategoryBehindTheScenes: cfg.BehindTheScenes,
			CategoryScenes:          cfg.Scenes,
			CategoryDeletedScenes:   cfg.DeletedScenes,
			CategoryInterviews:      cfg.Interviews,
			CategoryShorts:          cfg.Shorts,
			CategoryOther:           cfg.Other,
		},
	}
}

func (fc FilterConfig) siteAllowed(site string) bool {
	switch site {
	case "YouTube":
		return true
	case "Vimeo":
		return fc.AllowVimeo
	default:
		return false
	}
}

// Filter turns raw candidates into a download plan. Candidates pass through
// a site allowlist, the official-only gate, and the per-category toggles,
// then each enabled category is sorted official-first (stable, so metadata
// order breaks ties) and capped. A zero cap leaves categories unbounded.
// The input slice is never modified.
func Filter(candidates []Candidate, fc FilterConfig) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Key == "" {
			continue
		}
		if !fc.siteAllowed(cand.Site) {
			continue
		}
		if fc.OfficialOnly && !cand.Official {
			continue
		}
		if !fc.Enabled[cand.Category] {
			continue
		}
		kept = append(kept, cand)
	}

	if fc.PreferOfficial {
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Official && !kept[j].Official
		})
	}

	if fc.MaxPerCategory <= 0 {
		return kept
	}
	counts := make(map[Category]int, len(fc.Enabled))
	capped := kept[:0]
	for _, cand := range kept {
		if counts[cand.Category] >= fc.MaxPerCategory {
			continue
		}
		counts[cand.Category]++
		capped = append(capped, cand)
	}
	return capped
}
