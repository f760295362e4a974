package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"extrad/internal/extras"
	"extrad/internal/logging"
)

// ProgressUpdate captures yt-dlp download progress output.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// Downloader defines the behaviour the workflow loop needs from the
// subprocess layer.
type Downloader interface {
	IsAvailable(ctx context.Context) bool
	Download(ctx context.Context, cand extras.Candidate, destDir, baseName string, progress func(ProgressUpdate)) (string, bool)
}

// Executor abstracts command execution for testability. Implementations
// must not invoke onLine concurrently.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Options carries the download behaviour knobs from configuration.
type Options struct {
	Format           string
	Container        string
	EmbedSubtitles   bool
	SubtitleLangs    []string
	EmbedMetadata    bool
	EmbedThumbnail   bool
	SleepInterval    int
	MaxSleepInterval int
	LimitRate        string
	CookiesPath      string
	// TokenServerURL points yt-dlp's proof-of-origin plugin at a provider.
	// Empty disables the extractor argument.
	TokenServerURL string
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client drives the yt-dlp binary.
type Client struct {
	binary string
	opts   Options
	exec   Executor
	logger *slog.Logger
}

var _ Downloader = (*Client)(nil)

// New constructs a yt-dlp client.
func New(binary string, opts Options, logger *slog.Logger, clientOpts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &Client{
		binary: binary,
		opts:   opts,
		exec:   commandExecutor{},
		logger: logger.With(logging.FieldComponent, "ytdlp"),
	}
	for _, opt := range clientOpts {
		opt(client)
	}
	return client, nil
}

// IsAvailable reports whether the binary responds to --version.
func (c *Client) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return c.exec.Run(probeCtx, c.binary, []string{"--version"}, nil) == nil
}

// Download fetches one candidate into destDir as baseName plus the container
// extension. It reports success as a bool rather than an error: a failed
// video never fails the item, the loop moves on to the next candidate.
func (c *Client) Download(ctx context.Context, cand extras.Candidate, destDir, baseName string, progress func(ProgressUpdate)) (string, bool) {
	sourceURL := cand.URL()
	if sourceURL == "" || baseName == "" {
		return "", false
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		c.logger.Warn("create destination failed", logging.String("dir", destDir), logging.Error(err))
		return "", false
	}
	staging, err := os.MkdirTemp(destDir, ".extrad-*")
	if err != nil {
		c.logger.Warn("create staging dir failed", logging.String("dir", destDir), logging.Error(err))
		return "", false
	}
	defer os.RemoveAll(staging)

	args := c.buildArgs(cand, staging, sourceURL)

	var (
		rateLimited bool
		lastLines   []string
	)
	runErr := c.exec.Run(ctx, c.binary, args, func(line string) {
		if update, ok := parseProgress(line); ok {
			if progress != nil {
				progress(update)
			}
			return
		}
		if isRateLimitLine(line) {
			rateLimited = true
		}
		lastLines = append(lastLines, line)
		if len(lastLines) > 8 {
			lastLines = lastLines[1:]
		}
	})
	if runErr != nil {
		attrs := []any{
			logging.String("key", cand.Key),
			logging.String("url", sourceURL),
			logging.Error(runErr),
		}
		if len(lastLines) > 0 {
			attrs = append(attrs, logging.String("output_tail", strings.Join(lastLines, " | ")))
		}
		if rateLimited {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, "rate limited; increase sleep_interval or provide cookies"))
		}
		c.logger.Warn("download failed", attrs...)
		return "", false
	}

	downloaded, err := c.locateOutput(staging, cand.Key)
	if err != nil {
		c.logger.Warn("downloaded file missing", logging.String("key", cand.Key), logging.Error(err))
		return "", false
	}

	finalPath := filepath.Join(destDir, baseName+filepath.Ext(downloaded))
	if err := os.Rename(downloaded, finalPath); err != nil {
		c.logger.Warn("place downloaded file failed",
			logging.String("from", downloaded),
			logging.String("to", finalPath),
			logging.Error(err))
		return "", false
	}
	return finalPath, true
}

// buildArgs assembles the yt-dlp invocation. The URL goes last.
func (c *Client) buildArgs(cand extras.Candidate, staging, sourceURL string) []string {
	args := []string{
		"-o", filepath.Join(staging, cand.Key+".%(ext)s"),
		"--no-overwrites",
		"--no-playlist",
		"--geo-bypass",
		"--newline",
	}
	if c.opts.Format != "" {
		args = append(args, "--format", c.opts.Format)
	}
	if c.opts.Container != "" {
		args = append(args, "--merge-output-format", c.opts.Container)
	}
	if c.opts.EmbedMetadata {
		args = append(args, "--embed-metadata")
	}
	if c.opts.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if c.opts.EmbedSubtitles && len(c.opts.SubtitleLangs) > 0 {
		args = append(args, "--embed-subs", "--sub-langs", strings.Join(c.opts.SubtitleLangs, ","))
	}
	if c.opts.SleepInterval > 0 {
		args = append(args, "--sleep-interval", strconv.Itoa(c.opts.SleepInterval))
		maxSleep := c.opts.MaxSleepInterval
		if maxSleep < c.opts.SleepInterval {
			maxSleep = c.opts.SleepInterval
		}
		args = append(args, "--max-sleep-interval", strconv.Itoa(maxSleep))
	}
	if c.opts.LimitRate != "" {
		args = append(args, "--limit-rate", c.opts.LimitRate)
	}
	if c.opts.CookiesPath != "" {
		args = append(args, "--cookies", c.opts.CookiesPath)
	}
	if c.opts.TokenServerURL != "" {
		args = append(args, "--extractor-args", "youtubepot-bgutilhttp:base_url="+c.opts.TokenServerURL)
	}
	return append(args, sourceURL)
}

// locateOutput finds the file yt-dlp produced, preferring the configured
// container. Merges can fall back to whatever container the streams allowed.
func (c *Client) locateOutput(staging, key string) (string, error) {
	extensions := []string{c.opts.Container, "mkv", "mp4", "webm"}
	for _, ext := range extensions {
		if ext == "" {
			continue
		}
		candidate := filepath.Join(staging, key+"."+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Size() > 0 {
			return candidate, nil
		}
	}
	entries, err := os.ReadDir(staging)
	if err != nil {
		return "", fmt.Errorf("read staging dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, key+".") && !strings.HasSuffix(name, ".part") {
			return filepath.Join(staging, name), nil
		}
	}
	return "", fmt.Errorf("no output for key %s", key)
}

func parseProgress(line string) (ProgressUpdate, bool) {
	const prefix = "[download]"
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, prefix) {
		return ProgressUpdate{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
	fields := strings.Fields(rest)
	if len(fields) == 0 || !strings.HasSuffix(fields[0], "%") {
		return ProgressUpdate{}, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil {
		return ProgressUpdate{}, false
	}
	return ProgressUpdate{Percent: percent, Message: rest}, true
}

func isRateLimitLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "http error 429") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "sign in to confirm")
}
