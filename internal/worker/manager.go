package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"extrad/internal/config"
	"extrad/internal/extras"
	"extrad/internal/history"
	"extrad/internal/logging"
	"extrad/internal/queue"
	"extrad/internal/tmdb"
	"extrad/internal/ytdlp"
)

// CandidateResolver supplies raw supplementary-video candidates for an item.
type CandidateResolver interface {
	Resolve(ctx context.Context, mediaType tmdb.MediaType, externalID int64) []extras.Candidate
}

// TokenSupervisor keeps the proof-of-origin provider reachable.
type TokenSupervisor interface {
	EnsureRunning(ctx context.Context) bool
	Stop()
}

// Manager owns the workflow loop: it drains the queue one item at a time
// and walks each item through resolve, plan, and download.
type Manager struct {
	cfg        *config.Config
	queue      *queue.Queue
	resolver   CandidateResolver
	downloader ytdlp.Downloader
	tokens     TokenSupervisor
	store      *history.Store
	logger     *slog.Logger
	filterCfg  extras.FilterConfig

	pollInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager wires the workflow loop. The history store may be nil; the
// token supervisor may be nil when the provider is disabled.
func NewManager(
	cfg *config.Config,
	q *queue.Queue,
	resolver CandidateResolver,
	downloader ytdlp.Downloader,
	tokens TokenSupervisor,
	store *history.Store,
	logger *slog.Logger,
) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if q == nil || resolver == nil || downloader == nil {
		return nil, errors.New("queue, resolver, and downloader required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:          cfg,
		queue:        q,
		resolver:     resolver,
		downloader:   downloader,
		tokens:       tokens,
		store:        store,
		logger:       logger.With(logging.FieldComponent, "workflow"),
		filterCfg:    extras.FilterConfigFrom(cfg.Extras),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
	}, nil
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	if m.tokens != nil {
		m.tokens.Stop()
	}
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		req, ok := m.queue.TryDequeue()
		if !ok {
			m.waitForItemOrShutdown(ctx)
			continue
		}

		if err := m.processRequest(ctx, req); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.logger.Error("item processing failed",
				logging.String("item", req.Key()),
				logging.String("title", req.Title),
				logging.Error(err))
			m.cooldown(ctx)
		}
	}
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) cooldown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorCooldown) * time.Second):
	}
}

func (m *Manager) sleepWithCancel(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
