// Package manager drives strategy deployments through the container runtime:
// discovery, start, stop, restart, status, logs, and batch processing.
package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"tradingdesk/internal/domain"
	"tradingdesk/internal/ports"
)

const (
	defaultImage        = "trading-desk-strategy"
	defaultNetwork      = "trading-desk-network"
	defaultRestartPause = time.Second

	strategyMount = "/app/strategy"
)

// Manager implements the strategy lifecycle state machine
// (not_deployed → running → stopped) over a ports.ContainerRuntime.
// All operations are strictly sequential; ProcessAll deliberately runs one
// strategy at a time so the per-strategy report lines keep discovery order.
type Manager struct {
	strategiesDir string
	serverURL     string
	image         string
	network       string
	restartPause  time.Duration
	runtime       ports.ContainerRuntime
	journal       ports.DeploymentJournal
	logger        ports.Logger
	out           io.Writer
}

// Config holds configuration for the lifecycle manager.
type Config struct {
	StrategiesDir string
	ServerURL     string
	Image         string        // empty means "trading-desk-strategy"
	Network       string        // empty means "trading-desk-network"
	RestartPause  time.Duration // pause between stop and start on restart; <= 0 means 1s
	Runtime       ports.ContainerRuntime
	Journal       ports.DeploymentJournal // optional; nil disables journaling
	Logger        ports.Logger
	Out           io.Writer // destination for report lines; nil means os.Stdout
}

// New creates a new lifecycle manager.
func New(cfg Config) (*Manager, error) {
	if cfg.Runtime == nil {
		return nil, fmt.Errorf("container runtime is required for manager")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for manager")
	}
	if cfg.StrategiesDir == "" {
		return nil, fmt.Errorf("%w: strategies directory must be set", ports.ErrConfigurationError)
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("%w: server URL must be set", ports.ErrConfigurationError)
	}

	image := cfg.Image
	if image == "" {
		image = defaultImage
	}
	network := cfg.Network
	if network == "" {
		network = defaultNetwork
	}
	pause := cfg.RestartPause
	if pause <= 0 {
		pause = defaultRestartPause
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	return &Manager{
		strategiesDir: cfg.StrategiesDir,
		serverURL:     cfg.ServerURL,
		image:         image,
		network:       network,
		restartPause:  pause,
		runtime:       cfg.Runtime,
		journal:       cfg.Journal,
		logger:        cfg.Logger,
		out:           out,
	}, nil
}

// EnsureNetwork creates the shared network if it does not exist. Idempotent.
func (m *Manager) EnsureNetwork(ctx context.Context) error {
	exists, err := m.runtime.NetworkExists(ctx, m.network)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	fmt.Fprintf(m.out, "Creating network: %s\n", m.network)
	return m.runtime.CreateNetwork(ctx, m.network)
}

// loadConfig reads the strategy's optional config.json. A missing file yields
// an empty config; a malformed one propagates the parse error, aborting the
// current lifecycle operation.
func (m *Manager) loadConfig(s domain.Strategy) (domain.StrategyConfig, error) {
	var cfg domain.StrategyConfig
	data, err := os.ReadFile(filepath.Join(s.Dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config.json in %s: %w", s.Dir, err)
	}
	return cfg, nil
}

// userID resolves the strategy's identity: config.json user_id when present,
// directory name otherwise.
func (m *Manager) userID(s domain.Strategy, cfg domain.StrategyConfig) string {
	if cfg.UserID != "" {
		return cfg.UserID
	}
	return s.Name()
}

func (m *Manager) isRunning(ctx context.Context, container string) (bool, error) {
	names, err := m.runtime.RunningNames(ctx)
	if err != nil {
		return false, err
	}
	return contains(names, container), nil
}

func (m *Manager) record(ctx context.Context, s domain.Strategy, action string, success bool, detail string) {
	if m.journal == nil {
		return
	}
	err := m.journal.RecordEvent(ctx, &domain.DeploymentEvent{
		Strategy:  s.Name(),
		Container: s.ContainerName(),
		Action:    action,
		Success:   success,
		Detail:    detail,
		At:        time.Now(),
	})
	if err != nil {
		m.logger.Warn(ctx, "Failed to record deployment event",
			map[string]interface{}{"strategy": s.Name(), "action": action, "error": err.Error()})
	}
}

// Start deploys one strategy: ensures the shared network, then issues a
// single detached run. Starting an already-running strategy is a no-op
// warning, not an error. A runtime failure is surfaced with the runtime's
// error text and is not retried.
func (m *Manager) Start(ctx context.Context, s domain.Strategy) (bool, error) {
	container := s.ContainerName()

	if _, err := os.Stat(s.EntryPoint()); err != nil {
		fmt.Fprintf(m.out, "✗ No %s found in %s\n", domain.EntryPointFile, s.Dir)
		return false, fmt.Errorf("%w: %s", ports.ErrNoEntryPoint, s.Dir)
	}

	cfg, err := m.loadConfig(s)
	if err != nil {
		return false, err
	}

	running, err := m.isRunning(ctx, container)
	if err != nil {
		return false, err
	}
	if running {
		fmt.Fprintf(m.out, "⚠ Strategy %s is already running\n", container)
		return false, nil
	}

	if err := m.EnsureNetwork(ctx); err != nil {
		return false, err
	}

	userID := m.userID(s, cfg)
	fmt.Fprintf(m.out, "▶ Starting strategy: %s (user: %s)\n", container, userID)

	absDir, err := filepath.Abs(s.Dir)
	if err != nil {
		return false, err
	}

	env := map[string]string{
		"DESK_SERVER_URL": m.serverURL,
		"USER_ID":         userID,
	}
	for k, v := range cfg.Env {
		env[k] = v
	}

	spec := ports.RunSpec{
		Name:          container,
		Network:       m.network,
		RestartPolicy: "unless-stopped",
		Env:           env,
		Binds:         []ports.Bind{{HostPath: absDir, ContainerPath: strategyMount, ReadOnly: true}},
		Image:         m.image,
		Command:       []string{"python", "-u", strategyMount + "/" + domain.EntryPointFile},
	}

	if err := m.runtime.RunDetached(ctx, spec); err != nil {
		fmt.Fprintf(m.out, "✗ Failed to start %s: %v\n", container, err)
		m.record(ctx, s, "start", false, err.Error())
		return false, err
	}

	fmt.Fprintf(m.out, "✓ Started %s\n", container)
	m.record(ctx, s, "start", true, "")
	return true, nil
}

// Stop halts one strategy: runtime stop then remove, in sequence. Stopping a
// strategy that is not running is a no-op warning. A failed remove after a
// successful stop is surfaced as-is; there is no rollback.
func (m *Manager) Stop(ctx context.Context, s domain.Strategy) (bool, error) {
	container := s.ContainerName()

	running, err := m.isRunning(ctx, container)
	if err != nil {
		return false, err
	}
	if !running {
		fmt.Fprintf(m.out, "⚠ Strategy %s is not running\n", container)
		return false, nil
	}

	fmt.Fprintf(m.out, "■ Stopping strategy: %s\n", container)

	if err := m.runtime.Stop(ctx, container); err != nil {
		fmt.Fprintf(m.out, "✗ Failed to stop %s: %v\n", container, err)
		m.record(ctx, s, "stop", false, err.Error())
		return false, err
	}
	if err := m.runtime.Remove(ctx, container); err != nil {
		fmt.Fprintf(m.out, "✗ Failed to remove %s: %v\n", container, err)
		m.record(ctx, s, "stop", false, err.Error())
		return false, err
	}

	fmt.Fprintf(m.out, "✓ Stopped %s\n", container)
	m.record(ctx, s, "stop", true, "")
	return true, nil
}

// Restart stops the strategy best-effort (a not-running warning is ignored),
// pauses briefly, then starts it. Not atomic: a crash between the two steps
// leaves the strategy stopped.
func (m *Manager) Restart(ctx context.Context, s domain.Strategy) (bool, error) {
	if _, err := m.Stop(ctx, s); err != nil {
		return false, err
	}
	select {
	case <-time.After(m.restartPause):
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return m.Start(ctx, s)
}

// Status reports the observed deployment state of one strategy without
// mutating it. The state is derived from two sequential runtime queries
// (running list, then all list); an external change between the two can
// yield a stale read, which is accepted.
func (m *Manager) Status(ctx context.Context, s domain.Strategy) (domain.StrategyStatus, error) {
	container := s.ContainerName()
	status := domain.StrategyStatus{Container: container}

	running, err := m.isRunning(ctx, container)
	if err != nil {
		return status, err
	}
	if running {
		state, err := m.runtime.Inspect(ctx, container)
		if err != nil {
			return status, err
		}
		status.State = domain.StateRunning
		status.Detail = state.Status
		status.StartedAt = state.StartedAt
		return status, nil
	}

	all, err := m.runtime.AllNames(ctx)
	if err != nil {
		return status, err
	}
	if contains(all, container) {
		status.State = domain.StateStopped
	} else {
		status.State = domain.StateNotDeployed
	}
	return status, nil
}

// PrintStatus writes one status report line.
func (m *Manager) PrintStatus(status domain.StrategyStatus) {
	switch status.State {
	case domain.StateRunning:
		started := status.StartedAt
		if len(started) > 19 {
			started = started[:19]
		}
		fmt.Fprintf(m.out, "● %s - %s (started: %s)\n", status.Container, status.Detail, started)
	case domain.StateStopped:
		fmt.Fprintf(m.out, "○ %s - stopped\n", status.Container)
	default:
		fmt.Fprintf(m.out, "◌ %s - not deployed\n", status.Container)
	}
}

// Logs streams the strategy's captured output to w. Read-only; no state
// transition.
func (m *Manager) Logs(ctx context.Context, s domain.Strategy, opts ports.LogsOptions, w io.Writer) error {
	return m.runtime.Logs(ctx, s.ContainerName(), opts, w)
}

// Strategies discovers every strategy directory under the strategies
// directory: immediate subdirectories containing an entry point file, in
// lexicographic order. Subdirectories without one are silently excluded.
func (m *Manager) Strategies(ctx context.Context) ([]domain.Strategy, error) {
	entries, err := os.ReadDir(m.strategiesDir)
	if err != nil {
		return nil, fmt.Errorf("strategies directory not found: %s: %w", m.strategiesDir, err)
	}

	var strategies []domain.Strategy
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		s := domain.Strategy{Dir: filepath.Join(m.strategiesDir, entry.Name())}
		if _, err := os.Stat(s.EntryPoint()); err != nil {
			continue
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}

// ProcessAll applies one action (start, stop, restart, status) to every
// discovered strategy, sequentially and in discovery order. Each strategy
// reports its own outcome; one failure does not halt the rest.
func (m *Manager) ProcessAll(ctx context.Context, action string) error {
	strategies, err := m.Strategies(ctx)
	if err != nil {
		return err
	}
	if len(strategies) == 0 {
		fmt.Fprintf(m.out, "⚠ No strategy directories with %s found in %s\n", domain.EntryPointFile, m.strategiesDir)
		return nil
	}

	fmt.Fprintf(m.out, "Found %d strategy directory(s) in %s\n\n", len(strategies), m.strategiesDir)

	for _, s := range strategies {
		var err error
		switch action {
		case "start":
			_, err = m.Start(ctx, s)
		case "stop":
			_, err = m.Stop(ctx, s)
		case "restart":
			_, err = m.Restart(ctx, s)
		case "status":
			var status domain.StrategyStatus
			status, err = m.Status(ctx, s)
			if err == nil {
				m.PrintStatus(status)
			}
		default:
			return fmt.Errorf("%w: unknown action %q", ports.ErrInvalidRequest, action)
		}
		if err != nil {
			m.logger.Error(ctx, err, "Strategy operation failed",
				map[string]interface{}{"strategy": s.Name(), "action": action})
		}
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
