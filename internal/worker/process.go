package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"extrad/internal/extras"
	"extrad/internal/history"
	"extrad/internal/logging"
	"extrad/internal/queue"
	"extrad/internal/services"
	"extrad/internal/textutil"
	"extrad/internal/tmdb"
	"extrad/internal/ytdlp"
)

// allCategories drives existing-extras detection on disk.
var allCategories = []extras.Category{
	extras.CategoryTrailers,
	extras.CategoryFeaturettes,
	extras.CategoryBehindTheScenes,
	extras.CategoryScenes,
	extras.CategoryDeletedScenes,
	extras.CategoryInterviews,
	extras.CategoryShorts,
	extras.CategoryOther,
}

func mediaTypeFor(kind queue.Kind) tmdb.MediaType {
	if kind == queue.KindSeries {
		return tmdb.MediaTypeTV
	}
	return tmdb.MediaTypeMovie
}

// processRequest walks one item through resolve, plan, and download. A
// cancelled context leaves the item unmarked so it can be re-enqueued;
// every other outcome marks it processed.
func (m *Manager) processRequest(ctx context.Context, req queue.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("item processing panicked: %v", r)
		}
	}()

	correlationID := uuid.NewString()
	ctx = services.WithRequestID(ctx, correlationID)
	ctx = services.WithItemID(ctx, req.Key())
	ctx = services.WithItemTitle(ctx, req.Title)

	logger := m.logger.With(
		logging.String(logging.FieldItemID, req.Key()),
		logging.String(logging.FieldItemTitle, req.Title),
		logging.String(logging.FieldCorrelationID, correlationID),
	)
	logger.Info("processing item",
		logging.String("kind", string(req.Kind)),
		logging.Int64("tmdb_id", req.TMDBID),
		logging.String("priority", req.Priority.String()))

	if req.Path == "" || req.TMDBID <= 0 {
		logger.Warn("item missing path or metadata id; nothing to do")
		m.queue.MarkProcessed(req)
		return nil
	}

	if !m.downloader.IsAvailable(ctx) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error("downloader unavailable",
			logging.String(logging.FieldErrorHint, "install yt-dlp or fix ytdlp.binary"))
		m.queue.MarkProcessed(req)
		return nil
	}

	if m.shouldSkipItem(req, logger) {
		m.queue.MarkProcessed(req)
		return nil
	}

	if m.cfg.POTServer.Enabled && m.tokens != nil {
		if !m.tokens.EnsureRunning(ctx) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("token provider unavailable; proceeding without tokens")
		}
	}

	candidates := m.resolver.Resolve(ctx, mediaTypeFor(req.Kind), req.TMDBID)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	plan := extras.Filter(candidates, m.filterCfg)
	if len(plan) == 0 {
		logger.Info("no extras planned",
			logging.Int("candidates", len(candidates)))
		m.queue.MarkProcessed(req)
		return nil
	}
	logger.Info("download plan ready",
		logging.Int("candidates", len(candidates)),
		logging.Int("planned", len(plan)))

	downloaded := 0
	for _, cand := range plan {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		destDir, baseName := m.placement(req, cand)
		if baseName == "" {
			continue
		}
		if m.alreadyDownloaded(destDir, cand, baseName) {
			logger.Debug("extra already present",
				logging.String("key", cand.Key),
				logging.String("name", cand.Name))
			m.recordHistory(ctx, req, cand, history.StatusSkipped, "", "already present")
			continue
		}

		path, ok := m.downloader.Download(ctx, cand, destDir, baseName, progressLogger(logger, cand.Key))
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.recordHistory(ctx, req, cand, history.StatusFailed, "", "download failed")
			continue
		}
		downloaded++
		logger.Info("extra downloaded",
			logging.String("key", cand.Key),
			logging.String("category", string(cand.Category)),
			logging.String("path", path))
		m.recordHistory(ctx, req, cand, history.StatusDownloaded, path, "")

		// Pace requests between videos to stay under the hosting
		// site's radar.
		if !m.sleepWithCancel(ctx, m.interVideoDelay()) {
			return ctx.Err()
		}
	}

	if downloaded > 0 {
		if !m.sleepWithCancel(ctx, m.interItemDelay()) {
			return ctx.Err()
		}
	}

	m.queue.MarkProcessed(req)
	logger.Info("item processed",
		logging.Int("planned", len(plan)),
		logging.Int("downloaded", downloaded))
	return nil
}

func (m *Manager) interVideoDelay() time.Duration {
	return time.Duration(m.cfg.Workflow.InterVideoDelay) * time.Second
}

func (m *Manager) interItemDelay() time.Duration {
	return time.Duration(m.cfg.Workflow.InterItemDelay) * time.Second
}

// placement decides where a candidate lands on disk. The file name always
// carries the category suffix; folder organization additionally shelves
// each category in its own directory, flat layout writes to the item root.
func (m *Manager) placement(req queue.Request, cand extras.Candidate) (destDir, baseName string) {
	name := textutil.SanitizeFileName(cand.Name)
	if name == "" {
		name = cand.Key
	}
	baseName = name + cand.Category.Suffix()
	if m.cfg.Extras.OrganizeIntoFolders {
		return filepath.Join(req.Path, cand.Category.Folder()), baseName
	}
	return req.Path, baseName
}

func (m *Manager) shouldSkipItem(req queue.Request, logger *slog.Logger) bool {
	if m.cfg.Extras.SkipIfExtrasExist && hasAnyExtras(req.Path) {
		logger.Info("extras already exist; skipping item")
		return true
	}
	if m.cfg.Extras.SkipIfTrailerExists && hasCategoryExtra(req.Path, extras.CategoryTrailers) {
		logger.Info("trailer already exists; skipping item")
		return true
	}
	return false
}

// alreadyDownloaded looks for a file that matches the candidate, either by
// the exact target name or by a fuzzy title match, so re-runs do not fetch
// the same video twice.
func (m *Manager) alreadyDownloaded(destDir string, cand extras.Candidate, baseName string) bool {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return false
	}
	token := textutil.FuzzyToken(cand.Name)
	suffix := cand.Category.Suffix()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if stem == baseName {
			return true
		}
		if token != "" && strings.Contains(textutil.FuzzyToken(stem), token) {
			return true
		}
		// Any file carrying the category suffix tag counts as an existing
		// extra of that category, whichever layout produced it.
		if strings.Contains(stem, suffix) {
			return true
		}
	}
	return false
}

func hasAnyExtras(itemPath string) bool {
	for _, category := range allCategories {
		if hasCategoryExtra(itemPath, category) {
			return true
		}
	}
	return false
}

// hasCategoryExtra reports whether the item already carries an extra of the
// category, in either the folder or the suffix layout.
func hasCategoryExtra(itemPath string, category extras.Category) bool {
	if dirHasFiles(filepath.Join(itemPath, category.Folder())) {
		return true
	}
	entries, err := os.ReadDir(itemPath)
	if err != nil {
		return false
	}
	suffix := category.Suffix()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}
	return false
}

func dirHasFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return true
		}
	}
	return false
}

func (m *Manager) recordHistory(ctx context.Context, req queue.Request, cand extras.Candidate, status, path, detail string) {
	if m.store == nil {
		return
	}
	rec := history.Record{
		ItemID:   req.Key(),
		Title:    req.Title,
		TMDBID:   req.TMDBID,
		Kind:     string(req.Kind),
		Category: string(cand.Category),
		VideoKey: cand.Key,
		Site:     cand.Site,
		FilePath: path,
		Status:   status,
		Detail:   detail,
	}
	if err := m.store.Append(ctx, rec); err != nil {
		m.logger.Debug("history append failed", logging.Error(err))
	}
}

// progressLogger throttles progress output to quarter steps.
func progressLogger(logger *slog.Logger, key string) func(ytdlp.ProgressUpdate) {
	var lastQuarter = -1
	return func(update ytdlp.ProgressUpdate) {
		quarter := int(update.Percent) / 25
		if quarter <= lastQuarter {
			return
		}
		lastQuarter = quarter
		logger.Debug("download progress",
			logging.String("key", key),
			logging.Float64("percent", update.Percent))
	}
}
