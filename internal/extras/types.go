package extras

import "strings"

// Category groups supplementary videos by how they are shelved on disk.
type Category string

const (
	CategoryTrailers        Category = "Trailers"
	CategoryFeaturettes     Category = "Featurettes"
	CategoryBehindTheScenes Category = "Behind The Scenes"
	CategoryScenes          Category = "Scenes"
	CategoryDeletedScenes   Category = "Deleted Scenes"
	CategoryInterviews      Category = "Interviews"
	CategoryShorts          Category = "Shorts"
	CategoryOther           Category = "Other"
)

// CategoryFromType maps a metadata video type onto a Category. Types with no
// dedicated shelf land in CategoryOther.
func CategoryFromType(videoType string) Category {
	switch strings.TrimSpace(videoType) {
	case "Trailer", "Teaser":
		return CategoryTrailers
	case "Featurette", "Opening Credits":
		return CategoryFeaturettes
	case "Behind the Scenes":
		return CategoryBehindTheScenes
	case "Clip":
		return CategoryScenes
	case "Bloopers":
		return CategoryDeletedScenes
	case "Interview":
		return CategoryInterviews
	case "Short":
		return CategoryShorts
	default:
		return CategoryOther
	}
}

// Folder returns the directory name used when extras are organized into
// per-category folders.
func (c Category) Folder() string {
	return string(c)
}

// Suffix returns the file name tag appended when extras sit alongside the
// main media file instead of in folders.
func (c Category) Suffix() string {
	switch c {
	case CategoryTrailers:
		return "-trailer"
	case CategoryFeaturettes:
		return "-featurette"
	case CategoryBehindTheScenes:
		return "-behindthescenes"
	case CategoryScenes:
		return "-scene"
	case CategoryDeletedScenes:
		return "-deletedscene"
	case CategoryInterviews:
		return "-interview"
	case CategoryShorts:
		return "-short"
	default:
		return "-other"
	}
}

// Candidate is one downloadable supplementary video after metadata lookup.
type Candidate struct {
	Key         string
	Name        string
	Site        string
	Category    Category
	Official    bool
	PublishedAt string
	Locale      string
	Size        int
}

// URL returns the watch page for the candidate's hosting site.
func (c Candidate) URL() string {
	switch strings.ToLower(c.Site) {
	case "youtube":
		return "https://www.youtube.com/watch?v=" + c.Key
	case "vimeo":
		return "https://vimeo.com/" + c.Key
	default:
		return ""
	}
}
