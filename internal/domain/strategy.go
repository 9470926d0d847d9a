package domain

import (
	"path/filepath"
	"time"
)

// EntryPointFile is the executable the runtime invokes inside each strategy
// directory. Directories without it are not strategies.
const EntryPointFile = "strategy.py"

// DeploymentState represents the observed state of a strategy's runtime instance.
type DeploymentState string

const (
	// StateNotDeployed means no runtime instance is recorded for the strategy.
	StateNotDeployed DeploymentState = "not_deployed"
	// StateStopped means an instance exists but is not running (stop issued,
	// removal not yet observed). After removal it converges with StateNotDeployed.
	StateStopped DeploymentState = "stopped"
	// StateRunning means the runtime reports the instance as running.
	StateRunning DeploymentState = "running"
)

// Strategy identifies one deployable strategy by its on-disk directory.
type Strategy struct {
	Dir string // path to the strategy directory; identity of the strategy
}

// Name returns the strategy's directory name.
func (s Strategy) Name() string {
	return filepath.Base(s.Dir)
}

// ContainerName derives the runtime instance identifier from the directory
// name. Deterministic and collision-sensitive: two directories with the same
// base name under different parents alias to the same instance.
func (s Strategy) ContainerName() string {
	return "strategy-" + s.Name()
}

// EntryPoint returns the path to the strategy's entry point file.
func (s Strategy) EntryPoint() string {
	return filepath.Join(s.Dir, EntryPointFile)
}

// StrategyConfig is the optional per-strategy configuration document
// (config.json inside the strategy directory). Unknown keys are ignored.
type StrategyConfig struct {
	UserID string            `json:"user_id"`
	Env    map[string]string `json:"env"`
}

// StrategyStatus is the result of a non-mutating status query.
type StrategyStatus struct {
	Container string          // derived runtime identifier
	State     DeploymentState // observed state
	Detail    string          // runtime-reported status code (running only)
	StartedAt string          // runtime-reported start timestamp (running only)
}

// DeploymentEvent records one lifecycle attempt for the journal.
type DeploymentEvent struct {
	ID        int64
	Strategy  string // strategy directory name
	Container string // derived runtime identifier
	Action    string // start, stop
	Success   bool
	Detail    string // failure reason or empty
	At        time.Time
}
