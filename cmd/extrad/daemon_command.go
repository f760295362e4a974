package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"extrad/internal/config"
	"extrad/internal/daemon"
	"extrad/internal/deps"
	"extrad/internal/extras"
	"extrad/internal/history"
	"extrad/internal/ingest"
	"extrad/internal/locale"
	"extrad/internal/logging"
	"extrad/internal/potserver"
	"extrad/internal/queue"
	"extrad/internal/tmdb"
	"extrad/internal/worker"
	"extrad/internal/ytdlp"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the extras daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(ctx)
		},
	}
}

func runDaemon(cmdCtx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		logger.Warn("required binaries missing; downloads will fail until installed",
			logging.String("missing", strings.Join(missing, ", ")))
	}

	q := queue.New(time.Duration(cfg.Workflow.ProcessedRetentionHours)*time.Hour, logger)

	tmdbClient, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL)
	if err != nil {
		return fmt.Errorf("init tmdb client: %w", err)
	}
	resolver := extras.NewResolver(tmdbClient, cfg.TMDB.Languages, logger)

	supervisor := potserver.New(potserver.Config{
		Enabled:     cfg.POTServer.Enabled,
		ExternalURL: cfg.POTServer.ExternalURL,
		Port:        cfg.POTServer.Port,
		ScriptPath:  cfg.POTServer.ScriptPath,
	}, logger)

	tokenURL := ""
	if cfg.POTServer.Enabled {
		tokenURL = supervisor.BaseURL()
	}
	downloader, err := ytdlp.New(cfg.YtDlp.Binary, ytdlp.Options{
		Format:           cfg.YtDlp.Format,
		Container:        cfg.YtDlp.Container,
		EmbedSubtitles:   cfg.YtDlp.EmbedSubtitles,
		SubtitleLangs:    locale.SubtitleLangs(cfg.TMDB.Languages),
		EmbedMetadata:    cfg.YtDlp.EmbedMetadata,
		EmbedThumbnail:   cfg.YtDlp.EmbedThumbnail,
		SleepInterval:    cfg.YtDlp.SleepInterval,
		MaxSleepInterval: cfg.YtDlp.MaxSleepInterval,
		LimitRate:        cfg.YtDlp.LimitRate,
		CookiesPath:      cfg.YtDlp.CookiesPath,
		TokenServerURL:   tokenURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("init downloader: %w", err)
	}

	store := openHistoryStore(cfg, logger)
	if store != nil {
		defer store.Close()
		pruneHistory(store, logger)
	}

	wf, err := worker.NewManager(cfg, q, resolver, downloader, supervisor, store, logger)
	if err != nil {
		return fmt.Errorf("init workflow: %w", err)
	}

	d, err := daemon.New(cfg, q, wf, ingest.New(q, logger), store, logger)
	if err != nil {
		return fmt.Errorf("init daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("shutdown signal received")
	d.Stop()
	return nil
}

func openHistoryStore(cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		logger.Warn("history store unavailable; continuing without it", logging.Error(err))
		return nil
	}
	return store
}

// pruneHistory trims records older than 90 days at startup.
func pruneHistory(store *history.Store, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := store.Prune(ctx, time.Now().Add(-90*24*time.Hour)); err != nil {
		logger.Warn("history prune failed", logging.Error(err))
	}
}
