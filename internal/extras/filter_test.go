package extras

import "testing"

func defaultFilterConfig() FilterConfig {
	return FilterConfig{
		PreferOfficial: true,
		MaxPerCategory: 1,
		Enabled: map[Category]bool{
			CategoryTrailers:    true,
			CategoryFeaturettes: true,
		},
	}
}

func TestCategoryFromType(t *testing.T) {
	cases := []struct {
		videoType string
		want      Category
	}{
		{"Trailer", CategoryTrailers},
		{"Teaser", CategoryTrailers},
		{"Featurette", CategoryFeaturettes},
		{"Opening Credits", CategoryFeaturettes},
		{"Behind the Scenes", CategoryBehindTheScenes},
		{"Clip", CategoryScenes},
		{"Bloopers", CategoryDeletedScenes},
		{"Interview", CategoryInterviews},
		{"Short", CategoryShorts},
		{"Music Video", CategoryOther},
		{"", CategoryOther},
	}
	for _, tc := range cases {
		if got := CategoryFromType(tc.videoType); got != tc.want {
			t.Errorf("CategoryFromType(%q) = %q, want %q", tc.videoType, got, tc.want)
		}
	}
}

func TestCategorySuffixes(t *testing.T) {
	if CategoryTrailers.Suffix() != "-trailer" {
		t.Errorf("unexpected trailer suffix %q", CategoryTrailers.Suffix())
	}
	if CategoryBehindTheScenes.Suffix() != "-behindthescenes" {
		t.Errorf("unexpected bts suffix %q", CategoryBehindTheScenes.Suffix())
	}
	if Category("Bogus").Suffix() != "-other" {
		t.Errorf("unknown categories should use the other suffix")
	}
}

func TestFilterPlanSelection(t *testing.T) {
	candidates := []Candidate{
		{Key: "xyz", Name: "Fan Teaser", Site: "YouTube", Category: CategoryTrailers, Official: false},
		{Key: "abc", Name: "Official Trailer", Site: "YouTube", Category: CategoryTrailers, Official: true},
		{Key: "def", Name: "Making Of", Site: "YouTube", Category: CategoryFeaturettes, Official: true},
		{Key: "vvv", Name: "Vimeo Clip", Site: "Vimeo", Category: CategoryTrailers, Official: true},
	}
	plan := Filter(candidates, defaultFilterConfig())
	if len(plan) != 2 {
		t.Fatalf("expected 2 planned downloads, got %d: %+v", len(plan), plan)
	}
	if plan[0].Key != "abc" || plan[1].Key != "def" {
		t.Fatalf("unexpected plan order: %+v", plan)
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	candidates := []Candidate{
		{Key: "a", Site: "YouTube", Category: CategoryTrailers, Official: true},
		{Key: "b", Site: "YouTube", Category: CategoryTrailers},
		{Key: "c", Site: "YouTube", Category: CategoryFeaturettes},
	}
	fc := defaultFilterConfig()
	once := Filter(candidates, fc)
	twice := Filter(once, fc)
	if len(once) != len(twice) {
		t.Fatalf("filter not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("filter not idempotent at %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestFilterOfficialOnly(t *testing.T) {
	fc := defaultFilterConfig()
	fc.OfficialOnly = true
	plan := Filter([]Candidate{
		{Key: "a", Site: "YouTube", Category: CategoryTrailers, Official: false},
		{Key: "b", Site: "YouTube", Category: CategoryTrailers, Official: true},
	}, fc)
	if len(plan) != 1 || plan[0].Key != "b" {
		t.Fatalf("expected only the official candidate, got %+v", plan)
	}
}

func TestFilterCategoryCap(t *testing.T) {
	fc := defaultFilterConfig()
	fc.MaxPerCategory = 3
	var candidates []Candidate
	for _, key := range []string{"a", "b", "c", "d", "e"} {
		candidates = append(candidates, Candidate{Key: key, Site: "YouTube", Category: CategoryTrailers})
	}
	if plan := Filter(candidates, fc); len(plan) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(plan))
	}
	fc.MaxPerCategory = 0
	if plan := Filter(candidates, fc); len(plan) != 5 {
		t.Fatalf("expected unbounded plan, got %d", len(plan))
	}
}

func TestFilterVimeoGate(t *testing.T) {
	fc := defaultFilterConfig()
	candidates := []Candidate{{Key: "v", Site: "Vimeo", Category: CategoryTrailers, Official: true}}
	if plan := Filter(candidates, fc); len(plan) != 0 {
		t.Fatalf("vimeo should be dropped by default, got %+v", plan)
	}
	fc.AllowVimeo = true
	if plan := Filter(candidates, fc); len(plan) != 1 {
		t.Fatalf("vimeo should pass when allowed, got %+v", plan)
	}
}

func TestFilterDropsDisabledAndUnknownSites(t *testing.T) {
	fc := defaultFilterConfig()
	plan := Filter([]Candidate{
		{Key: "a", Site: "YouTube", Category: CategoryShorts, Official: true},
		{Key: "b", Site: "Dailymotion", Category: CategoryTrailers, Official: true},
		{Key: "", Site: "YouTube", Category: CategoryTrailers, Official: true},
	}, fc)
	if len(plan) != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestCandidateURL(t *testing.T) {
	if got := (Candidate{Key: "abc", Site: "YouTube"}).URL(); got != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("unexpected youtube url %q", got)
	}
	if got := (Candidate{Key: "123", Site: "Vimeo"}).URL(); got != "https://vimeo.com/123" {
		t.Errorf("unexpected vimeo url %q", got)
	}
	if got := (Candidate{Key: "x", Site: "Dailymotion"}).URL(); got != "" {
		t.Errorf("expected empty url for unknown site, got %q", got)
	}
}
