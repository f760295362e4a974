package potserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"extrad/internal/logging"
)

// State tracks the supervisor lifecycle.
type State string

const (
	StateNotStarted State = "not_started"
	StateStarting   State = "starting"
	StateHealthy    State = "healthy"
	StateUnhealthy  State = "unhealthy"
	StateStopped    State = "stopped"
)

const (
	healthPollAttempts = 30
	healthPollInterval = time.Second
)

// runtime candidates probed in order when starting the managed provider.
var nodeRuntimes = []string{"node", "nodejs"}

// pingResponse models the provider's health payload.
type pingResponse struct {
	Version      string  `json:"version"`
	ServerUptime float64 `json:"server_uptime"`
}

// Config carries the token provider settings.
type Config struct {
	Enabled     bool
	ExternalURL string
	Port        int
	ScriptPath  string
}

// Supervisor keeps a proof-of-origin token provider reachable. In external
// mode it only probes the configured URL; in managed mode it spawns a node
// process running the provider script and restarts health checking on
// demand. All public methods degrade to false rather than returning errors:
// downloads proceed without tokens when the provider is unavailable.
type Supervisor struct {
	cfg        Config
	logger     *slog.Logger
	httpClient *http.Client

	pollAttempts int
	pollInterval time.Duration
	spawn        func() (*exec.Cmd, error)

	startMu sync.Mutex

	mu      sync.Mutex
	state   State
	cmd     *exec.Cmd
	waitErr chan error
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithHTTPClient overrides the health-check client (primarily for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(s *Supervisor) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// New constructs a supervisor. It does not start anything.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Supervisor{
		cfg:          cfg,
		logger:       logger.With(logging.FieldComponent, "potserver"),
		httpClient:   &http.Client{Timeout: 3 * time.Second},
		pollAttempts: healthPollAttempts,
		pollInterval: healthPollInterval,
		state:        StateNotStarted,
	}
	s.spawn = s.spawnProvider
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseURL returns the provider URL handed to yt-dlp.
func (s *Supervisor) BaseURL() string {
	if s.cfg.ExternalURL != "" {
		return s.cfg.ExternalURL
	}
	return "http://127.0.0.1:" + strconv.Itoa(s.cfg.Port)
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EnsureRunning makes sure a healthy provider is reachable and reports
// whether it is. Health probes run concurrently; only the managed start
// sequence serializes.
func (s *Supervisor) EnsureRunning(ctx context.Context) bool {
	if !s.cfg.Enabled {
		return false
	}

	if s.ping(ctx) {
		s.setState(StateHealthy)
		return true
	}

	if s.cfg.ExternalURL != "" {
		// External providers are someone else's process to restart.
		s.setState(StateUnhealthy)
		s.logger.Warn("external token provider unreachable", logging.String("url", s.cfg.ExternalURL))
		return false
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()

	// Another caller may have completed a start while we waited.
	if s.ping(ctx) {
		s.setState(StateHealthy)
		return true
	}

	s.stopManaged()
	if err := s.startManaged(); err != nil {
		s.setState(StateUnhealthy)
		s.logger.Warn("token provider start failed", logging.Error(err))
		return false
	}

	s.setState(StateStarting)
	for attempt := 0; attempt < s.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			s.stopManaged()
			s.setState(StateUnhealthy)
			return false
		case err := <-s.waitChan():
			s.stopManaged()
			s.setState(StateUnhealthy)
			s.logger.Warn("token provider exited during startup", logging.Error(err))
			return false
		case <-time.After(s.pollInterval):
		}
		if s.ping(ctx) {
			s.setState(StateHealthy)
			s.logger.Info("token provider healthy", logging.String("url", s.BaseURL()))
			return true
		}
	}

	// A provider that never answered its health check must not linger.
	s.stopManaged()
	s.setState(StateUnhealthy)
	s.logger.Warn("token provider never became healthy", logging.String("url", s.BaseURL()))
	return false
}

// Stop terminates a managed provider. Safe to call repeatedly; a supervisor
// in external mode only flips its state.
func (s *Supervisor) Stop() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	s.stopManaged()
	s.setState(StateStopped)
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Supervisor) waitChan() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitErr
}

func (s *Supervisor) ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL()+"/ping", nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var payload pingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false
	}
	s.logger.Debug("token provider ping",
		logging.String("version", payload.Version),
		logging.Float64("uptime_seconds", payload.ServerUptime))
	return true
}

// spawnProvider builds the provider command. Its process group is its own
// so the whole tree can be signalled on shutdown.
func (s *Supervisor) spawnProvider() (*exec.Cmd, error) {
	runtimeBin, err := findNodeRuntime()
	if err != nil {
		return nil, err
	}
	script, err := s.resolveScript()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(runtimeBin, script, "--port", strconv.Itoa(s.cfg.Port)) //nolint:gosec
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
	return cmd, nil
}

// startManaged launches the provider detached from any request context so
// it outlives the call that needed it.
func (s *Supervisor) startManaged() error {
	cmd, err := s.spawn()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start token provider: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	s.mu.Lock()
	s.cmd = cmd
	s.waitErr = waitErr
	s.mu.Unlock()

	s.logger.Info("token provider started",
		logging.String("command", cmd.Path),
		logging.Int("port", s.cfg.Port))
	return nil
}

func (s *Supervisor) stopManaged() {
	s.mu.Lock()
	cmd := s.cmd
	waitErr := s.waitErr
	s.cmd = nil
	s.waitErr = nil
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	if cmd.ProcessState != nil {
		// Already reaped; nothing left to signal.
		return
	}
	// Negative pid signals the whole process group.
	_ = unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	select {
	case <-waitErr:
	case <-time.After(5 * time.Second):
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		<-waitErr
	}
}

// resolveScript locates the provider script. Relative paths resolve against
// the daemon executable's directory so packaged installs work without
// configuration.
func (s *Supervisor) resolveScript() (string, error) {
	script := s.cfg.ScriptPath
	if script == "" {
		return "", fmt.Errorf("token provider script path not configured")
	}
	if !filepath.IsAbs(script) {
		executable, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("locate executable: %w", err)
		}
		script = filepath.Join(filepath.Dir(executable), script)
	}
	if _, err := os.Stat(script); err != nil {
		return "", fmt.Errorf("token provider script: %w", err)
	}
	return script, nil
}

func findNodeRuntime() (string, error) {
	for _, name := range nodeRuntimes {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no node runtime found (tried %v)", nodeRuntimes)
}
