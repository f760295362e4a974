package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
	APIBind  string `toml:"api_bind"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey    string   `toml:"api_key"`
	BaseURL   string   `toml:"base_url"`
	Languages []string `toml:"languages"`
}

// YtDlp contains configuration for the external downloader.
type YtDlp struct {
	Binary           string `toml:"binary"`
	CookiesPath      string `toml:"cookies_path"`
	Format           string `toml:"format"`
	Container        string `toml:"container"`
	EmbedSubtitles   bool   `toml:"embed_subtitles"`
	EmbedMetadata    bool   `toml:"embed_metadata"`
	EmbedThumbnail   bool   `toml:"embed_thumbnail"`
	SleepInterval    int    `toml:"sleep_interval"`
	MaxSleepInterval int    `toml:"max_sleep_interval"`
	LimitRate        string `toml:"limit_rate"`
}

// POTServer contains configuration for the proof-of-origin token provider
// used to make downloader requests look like a legitimate client.
type POTServer struct {
	Enabled     bool   `toml:"enabled"`
	ExternalURL string `toml:"external_url"`
	Port        int    `toml:"port"`
	ScriptPath  string `toml:"script_path"`
}

// Extras contains the candidate filter and placement settings.
type Extras struct {
	Trailers        bool `toml:"trailers"`
	Featurettes     bool `toml:"featurettes"`
	BehindTheScenes bool `toml:"behind_the_scenes"`
	Scenes          bool `toml:"scenes"`
	DeletedScenes   bool `toml:"deleted_scenes"`
	Interviews      bool `toml:"interviews"`
	Shorts          bool `toml:"shorts"`
	Other           bool `toml:"other"`

	OfficialOnly   bool `toml:"official_only"`
	PreferOfficial bool `toml:"prefer_official"`
	MaxPerCategory int  `toml:"max_per_category"`
	AllowVimeo     bool `toml:"allow_vimeo"`

	OrganizeIntoFolders bool `toml:"organize_into_folders"`
	SkipIfExtrasExist   bool `toml:"skip_if_extras_exist"`
	SkipIfTrailerExists bool `toml:"skip_if_trailer_exists"`
}

// Workflow contains orchestration pacing and retention settings.
type Workflow struct {
	QueuePollInterval       int `toml:"queue_poll_interval"`
	InterVideoDelay         int `toml:"inter_video_delay"`
	InterItemDelay          int `toml:"inter_item_delay"`
	ErrorCooldown           int `toml:"error_cooldown"`
	ProcessedRetentionHours int `toml:"processed_retention_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for extrad.
//
// Configuration sections by subsystem:
//   - Paths: log/state directories and API bind address
//   - TMDB: supplementary-video lookups via The Movie Database
//   - YtDlp: downloader invocation settings
//   - POTServer: proof-of-origin token provider (managed or external)
//   - Extras: category toggles, filter caps, placement rules
//   - Workflow: loop pacing and processed-record retention
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	TMDB      TMDB      `toml:"tmdb"`
	YtDlp     YtDlp     `toml:"ytdlp"`
	POTServer POTServer `toml:"pot_server"`
	Extras    Extras    `toml:"extras"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/extrad/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("extrad.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryDBPath returns the download-history database location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockFilePath returns the daemon single-instance lock file location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.StateDir, "extrad.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
