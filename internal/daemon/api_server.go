package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"extrad/internal/config"
	"extrad/internal/ingest"
	"extrad/internal/logging"
	"extrad/internal/queue"
)

// API payloads shared with the CLI client.

// DependencyPayload mirrors deps.Status over the wire.
type DependencyPayload struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// StatusPayload is the GET /api/status response.
type StatusPayload struct {
	Running       bool                `json:"running"`
	PID           int                 `json:"pid"`
	QueueDepth    int                 `json:"queue_depth"`
	LockFilePath  string              `json:"lock_file"`
	HistoryDBPath string              `json:"history_db"`
	Dependencies  []DependencyPayload `json:"dependencies"`
}

// QueueEntryPayload is one pending request in GET /api/queue.
type QueueEntryPayload struct {
	ItemID     string    `json:"item_id"`
	Title      string    `json:"title"`
	TMDBID     int64     `json:"tmdb_id"`
	Kind       string    `json:"kind"`
	Priority   string    `json:"priority"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// QueuePayload is the GET /api/queue response.
type QueuePayload struct {
	Items []QueueEntryPayload `json:"items"`
}

// TriggerPayload is the POST /api/trigger request body.
type TriggerPayload struct {
	ItemID string `json:"item_id,omitempty"`
	Title  string `json:"title,omitempty"`
	TMDBID int64  `json:"tmdb_id"`
	Kind   string `json:"kind"`
	Path   string `json:"path"`
}

// AcceptedPayload reports whether an enqueue request was accepted.
type AcceptedPayload struct {
	Accepted bool `json:"accepted"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/queue", srv.handleQueue)
	mux.HandleFunc("/api/trigger", srv.handleTrigger)
	mux.HandleFunc("/api/events", srv.handleEvents)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr returns the bound address once the server is listening.
func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	payload := StatusPayload{
		Running:       status.Running,
		PID:           status.PID,
		QueueDepth:    status.QueueDepth,
		LockFilePath:  status.LockFilePath,
		HistoryDBPath: status.HistoryDBPath,
		Dependencies:  make([]DependencyPayload, len(status.Dependencies)),
	}
	for i, dep := range status.Dependencies {
		payload.Dependencies[i] = DependencyPayload{
			Name:      dep.Name,
			Command:   dep.Command,
			Optional:  dep.Optional,
			Available: dep.Available,
			Detail:    dep.Detail,
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	pending := s.daemon.queue.Snapshot()
	payload := QueuePayload{Items: make([]QueueEntryPayload, len(pending))}
	for i, req := range pending {
		payload.Items[i] = QueueEntryPayload{
			ItemID:     req.ItemID,
			Title:      req.Title,
			TMDBID:     req.TMDBID,
			Kind:       string(req.Kind),
			Priority:   req.Priority.String(),
			EnqueuedAt: req.EnqueuedAt,
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// handleTrigger force-enqueues an item, bypassing the suppression window.
func (s *apiServer) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload TriggerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.TMDBID <= 0 {
		s.writeError(w, http.StatusBadRequest, "tmdb_id must be positive")
		return
	}
	if payload.Path == "" {
		s.writeError(w, http.StatusBadRequest, "path required")
		return
	}
	kind := queue.Kind(payload.Kind)
	if kind != queue.KindMovie && kind != queue.KindSeries {
		s.writeError(w, http.StatusBadRequest, "kind must be movie or series")
		return
	}

	accepted := s.daemon.queue.EnqueueForced(queue.Request{
		ItemID:   payload.ItemID,
		Title:    payload.Title,
		TMDBID:   payload.TMDBID,
		Kind:     kind,
		Path:     payload.Path,
		Priority: queue.PriorityHigh,
	})
	s.writeJSON(w, http.StatusAccepted, AcceptedPayload{Accepted: accepted})
}

// handleEvents ingests a catalog notification.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var event ingest.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	accepted := s.daemon.ingest.Handle(event)
	s.writeJSON(w, http.StatusAccepted, AcceptedPayload{Accepted: accepted})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write api response failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorPayload{Error: message})
}
