package manager

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"tradingdesk/internal/domain"
	"tradingdesk/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// fakeRuntime implements ports.ContainerRuntime in memory, recording every
// run invocation.
type fakeRuntime struct {
	networks map[string]bool
	running  map[string]bool
	exists   map[string]bool
	runCalls []ports.RunSpec
	runErr   error
	stopErr  error
	logLines string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		networks: map[string]bool{},
		running:  map[string]bool{},
		exists:   map[string]bool{},
	}
}

func (f *fakeRuntime) NetworkExists(ctx context.Context, name string) (bool, error) {
	return f.networks[name], nil
}

func (f *fakeRuntime) CreateNetwork(ctx context.Context, name string) error {
	f.networks[name] = true
	return nil
}

func (f *fakeRuntime) RunDetached(ctx context.Context, spec ports.RunSpec) error {
	f.runCalls = append(f.runCalls, spec)
	if f.runErr != nil {
		return f.runErr
	}
	f.running[spec.Name] = true
	f.exists[spec.Name] = true
	return nil
}

func sortedKeys(m map[string]bool) []string {
	var keys []string
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeRuntime) RunningNames(ctx context.Context) ([]string, error) {
	return sortedKeys(f.running), nil
}

func (f *fakeRuntime) AllNames(ctx context.Context) ([]string, error) {
	return sortedKeys(f.exists), nil
}

func (f *fakeRuntime) Inspect(ctx context.Context, name string) (ports.InstanceState, error) {
	return ports.InstanceState{
		Status:    "running",
		Running:   f.running[name],
		StartedAt: "2024-06-01T12:00:00.000000000Z",
	}, nil
}

func (f *fakeRuntime) Stop(ctx context.Context, name string) error {
	if f.stopErr != nil {
		return f.stopErr
	}
	f.running[name] = false
	return nil
}

func (f *fakeRuntime) Remove(ctx context.Context, name string) error {
	delete(f.exists, name)
	delete(f.running, name)
	return nil
}

func (f *fakeRuntime) Logs(ctx context.Context, name string, opts ports.LogsOptions, w io.Writer) error {
	_, err := w.Write([]byte(f.logLines))
	return err
}

// fakeJournal implements ports.DeploymentJournal in memory.
type fakeJournal struct {
	events []*domain.DeploymentEvent
}

func (f *fakeJournal) RecordEvent(ctx context.Context, event *domain.DeploymentEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeJournal) RecentEvents(ctx context.Context, limit int) ([]*domain.DeploymentEvent, error) {
	return f.events, nil
}

// writeStrategy creates a strategy directory with an entry point and an
// optional config.json, returning the Strategy.
func writeStrategy(t *testing.T, root, name, configJSON string) domain.Strategy {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.EntryPointFile), []byte("print('hi')\n"), 0o644))
	if configJSON != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(configJSON), 0o644))
	}
	return domain.Strategy{Dir: dir}
}

func newTestManager(t *testing.T, root string, rt *fakeRuntime, journal ports.DeploymentJournal, out io.Writer) *Manager {
	t.Helper()
	m, err := New(Config{
		StrategiesDir: root,
		ServerURL:     "http://go-server:8080",
		RestartPause:  time.Millisecond,
		Runtime:       rt,
		Journal:       journal,
		Logger:        &mockLogger{},
		Out:           out,
	})
	require.NoError(t, err)
	return m
}

func TestStartRunsContainerWithDefaults(t *testing.T) {
	root := t.TempDir()
	s := writeStrategy(t, root, "alice", "")
	rt := newFakeRuntime()
	var out bytes.Buffer
	m := newTestManager(t, root, rt, nil, &out)

	ok, err := m.Start(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, rt.runCalls, 1)
	spec := rt.runCalls[0]
	assert.Equal(t, "strategy-alice", spec.Name)
	assert.Equal(t, "trading-desk-network", spec.Network)
	assert.Equal(t, "unless-stopped", spec.RestartPolicy)
	assert.Equal(t, "trading-desk-strategy", spec.Image)
	assert.Equal(t, []string{"python", "-u", "/app/strategy/strategy.py"}, spec.Command)
	assert.Equal(t, "http://go-server:8080", spec.Env["DESK_SERVER_URL"])
	assert.Equal(t, "alice", spec.Env["USER_ID"], "user id defaults to the directory name")

	require.Len(t, spec.Binds, 1)
	assert.Equal(t, "/app/strategy", spec.Binds[0].ContainerPath)
	assert.True(t, spec.Binds[0].ReadOnly)
	assert.True(t, filepath.IsAbs(spec.Binds[0].HostPath))

	assert.True(t, rt.networks["trading-desk-network"], "network is created when absent")
	assert.Contains(t, out.String(), "▶ Starting strategy: strategy-alice (user: alice)")
	assert.Contains(t, out.String(), "✓ Started strategy-alice")
}

func TestStartAppliesConfigOverrides(t *testing.T) {
	root := t.TempDir()
	s := writeStrategy(t, root, "bob", `{"user_id": "bob2", "env": {"MAX_QTY": "10"}, "future_key": true}`)
	rt := newFakeRuntime()
	m := newTestManager(t, root, rt, nil, io.Discard)

	ok, err := m.Start(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, rt.runCalls, 1)
	env := rt.runCalls[0].Env
	assert.Equal(t, "bob2", env["USER_ID"])
	assert.Equal(t, "10", env["MAX_QTY"])
}

func TestStartIsIdempotentOnRunningStrategy(t *testing.T) {
	root := t.TempDir()
	s := writeStrategy(t, root, "alice", "")
	rt := newFakeRuntime()
	var out bytes.Buffer
	m := newTestManager(t, root, rt, nil, &out)

	ok, err := m.Start(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Start(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, ok, "second start is a no-op warning")
	assert.Len(t, rt.runCalls, 1, "at most one run invocation")
	assert.Contains(t, out.String(), "⚠ Strategy strategy-alice is already running")
}

func TestStartMissingEntryPoint(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "empty")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	rt := newFakeRuntime()
	var out bytes.Buffer
	m := newTestManager(t, root, rt, nil, &out)

	ok, err := m.Start(context.Background(), domain.Strategy{Dir: dir})
	assert.False(t, ok)
	assert.ErrorIs(t, err, ports.ErrNoEntryPoint)
	assert.Empty(t, rt.runCalls)
	assert.Contains(t, out.String(), "✗ No strategy.py found in")
}

func TestStartMalformedConfigAbortsOperation(t *testing.T) {
	root := t.TempDir()
	s := writeStrategy(t, root, "alice", `{"user_id": `)
	rt := newFakeRuntime()
	m := newTestManager(t, root, rt, nil, io.Discard)

	ok, err := m.Start(context.Background(), s)
	assert.False(t, ok)
	require.Error(t, err)
	assert.Empty(t, rt.runCalls)
}

func TestStartSurfacesRuntimeFailure(t *testing.T) {
	root := t.TempDir()
	s := writeStrategy(t, root, "alice", "")
	rt := newFakeRuntime()
	rt.runErr = fmt.Errorf("%w: docker run: no such image", ports.ErrRuntimeFailed)
	journal := &fakeJournal{}
	var out bytes.Buffer
	m := newTestManager(t, root, rt, journal, &out)

	ok, err := m.Start(context.Background(), s)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ports.ErrRuntimeFailed)
	assert.Contains(t, out.String(), "✗ Failed to start strategy-alice")

	// Failed attempt is journaled; state remains not_deployed.
	require.Len(t, journal.events, 1)
	assert.Equal(t, "start", journal.events[0].Action)
	assert.False(t, journal.events[0].Success)

	status, err := m.Status(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNotDeployed, status.State)
}

func TestStateMachineTransitions(t *testing.T) {
	root := t.TempDir()
	s := writeStrategy(t, root, "alice", "")
	rt := newFakeRuntime()
	var out bytes.Buffer
	m := newTestManager(t, root, rt, nil, &out)
	ctx := context.Background()

	state := func() domain.DeploymentState {
		status, err := m.Status(ctx, s)
		require.NoError(t, err)
		return status.State
	}

	// not_deployed → start → running
	assert.Equal(t, domain.StateNotDeployed, state())
	ok, err := m.Start(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.StateRunning, state())

	// running → start → unchanged/running (warning)
	ok, err = m.Start(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.StateRunning, state())

	// running → stop → stopped/not_deployed (removal converges the two)
	ok, err = m.Stop(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.StateNotDeployed, state())
	assert.Contains(t, out.String(), "✓ Stopped strategy-alice")

	// stopped → stop → warning, no transition
	ok, err = m.Stop(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "⚠ Strategy strategy-alice is not running")

	// stopped → restart → running (not-running warning ignored)
	ok, err = m.Restart(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.StateRunning, state())
}

func TestStatusReportsStoppedBeforeRemoval(t *testing.T) {
	root := t.TempDir()
	s := writeStrategy(t, root, "alice", "")
	rt := newFakeRuntime()
	m := newTestManager(t, root, rt, nil, io.Discard)
	ctx := context.Background()

	ok, err := m.Start(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)

	// Instance stopped outside the manager, not yet removed.
	rt.running["strategy-alice"] = false

	status, err := m.Status(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, domain.StateStopped, status.State)
}

func TestStatusRunningDetails(t *testing.T) {
	root := t.TempDir()
	s := writeStrategy(t, root, "alice", "")
	rt := newFakeRuntime()
	var out bytes.Buffer
	m := newTestManager(t, root, rt, nil, &out)
	ctx := context.Background()

	_, err := m.Start(ctx, s)
	require.NoError(t, err)

	status, err := m.Status(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, domain.StateRunning, status.State)
	assert.Equal(t, "running", status.Detail)
	assert.Equal(t, "2024-06-01T12:00:00.000000000Z", status.StartedAt)

	m.PrintStatus(status)
	assert.Contains(t, out.String(), "● strategy-alice - running (started: 2024-06-01T12:00:00)")
}

func TestStrategiesDiscovery(t *testing.T) {
	root := t.TempDir()
	writeStrategy(t, root, "bob", "")
	writeStrategy(t, root, "alice", "")
	// Directory without an entry point is silently excluded.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0o755))
	// Plain file at the top level is ignored.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	rt := newFakeRuntime()
	m := newTestManager(t, root, rt, nil, io.Discard)

	strategies, err := m.Strategies(context.Background())
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, "alice", strategies[0].Name(), "lexicographic order")
	assert.Equal(t, "bob", strategies[1].Name())
}

func TestStrategiesMissingDir(t *testing.T) {
	rt := newFakeRuntime()
	m := newTestManager(t, filepath.Join(t.TempDir(), "missing"), rt, nil, io.Discard)
	_, err := m.Strategies(context.Background())
	assert.Error(t, err)
}

func TestProcessAllStartsInDiscoveryOrder(t *testing.T) {
	root := t.TempDir()
	writeStrategy(t, root, "bob", "")
	writeStrategy(t, root, "alice", "")
	rt := newFakeRuntime()
	var out bytes.Buffer
	m := newTestManager(t, root, rt, nil, &out)

	require.NoError(t, m.ProcessAll(context.Background(), "start"))

	require.Len(t, rt.runCalls, 2, "exactly one run per strategy")
	assert.Equal(t, "strategy-alice", rt.runCalls[0].Name)
	assert.Equal(t, "strategy-bob", rt.runCalls[1].Name)
	assert.Equal(t, "alice", rt.runCalls[0].Env["USER_ID"])
	assert.Equal(t, "bob", rt.runCalls[1].Env["USER_ID"])
	assert.Contains(t, out.String(), "Found 2 strategy directory(s)")
	assert.Contains(t, out.String(), "✓ Started strategy-alice")
	assert.Contains(t, out.String(), "✓ Started strategy-bob")
}

func TestProcessAllContinuesPastFailures(t *testing.T) {
	root := t.TempDir()
	// alice's config is malformed; bob's start must still happen.
	writeStrategy(t, root, "alice", `{broken`)
	writeStrategy(t, root, "bob", "")
	rt := newFakeRuntime()
	m := newTestManager(t, root, rt, nil, io.Discard)

	require.NoError(t, m.ProcessAll(context.Background(), "start"))
	require.Len(t, rt.runCalls, 1)
	assert.Equal(t, "strategy-bob", rt.runCalls[0].Name)
}

func TestProcessAllEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	rt := newFakeRuntime()
	var out bytes.Buffer
	m := newTestManager(t, root, rt, nil, &out)

	require.NoError(t, m.ProcessAll(context.Background(), "start"))
	assert.Contains(t, out.String(), "⚠ No strategy directories with strategy.py found in")
	assert.Empty(t, rt.runCalls)
}

func TestProcessAllUnknownAction(t *testing.T) {
	root := t.TempDir()
	writeStrategy(t, root, "alice", "")
	rt := newFakeRuntime()
	m := newTestManager(t, root, rt, nil, io.Discard)

	err := m.ProcessAll(context.Background(), "teleport")
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestJournalRecordsLifecycle(t *testing.T) {
	root := t.TempDir()
	s := writeStrategy(t, root, "alice", "")
	rt := newFakeRuntime()
	journal := &fakeJournal{}
	m := newTestManager(t, root, rt, journal, io.Discard)
	ctx := context.Background()

	_, err := m.Start(ctx, s)
	require.NoError(t, err)
	_, err = m.Stop(ctx, s)
	require.NoError(t, err)

	require.Len(t, journal.events, 2)
	assert.Equal(t, "start", journal.events[0].Action)
	assert.True(t, journal.events[0].Success)
	assert.Equal(t, "stop", journal.events[1].Action)
	assert.True(t, journal.events[1].Success)
	assert.Equal(t, "strategy-alice", journal.events[0].Container)
}

func TestLogsStreamsRuntimeOutput(t *testing.T) {
	root := t.TempDir()
	s := writeStrategy(t, root, "alice", "")
	rt := newFakeRuntime()
	rt.logLines = "tick AAPL 144.5\n"
	m := newTestManager(t, root, rt, nil, io.Discard)

	var buf bytes.Buffer
	require.NoError(t, m.Logs(context.Background(), s, ports.LogsOptions{Tail: 100}, &buf))
	assert.Equal(t, "tick AAPL 144.5\n", buf.String())
}

func TestEnsureNetworkIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeStrategy(t, root, "alice", "")
	rt := newFakeRuntime()
	rt.networks["trading-desk-network"] = true
	var out bytes.Buffer
	m := newTestManager(t, root, rt, nil, &out)

	require.NoError(t, m.EnsureNetwork(context.Background()))
	assert.NotContains(t, out.String(), "Creating network")
}
