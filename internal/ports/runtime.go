package ports

import (
	"context"
	"io"
)

// RunSpec describes a detached runtime instance to create and run.
type RunSpec struct {
	Name          string            // instance name (derived from the strategy directory)
	Network       string            // network to attach
	RestartPolicy string            // e.g. "unless-stopped"
	Env           map[string]string // environment variables passed to the instance
	Binds         []Bind            // volume binds
	Image         string            // image to run
	Command       []string          // command executed inside the instance
}

// Bind is a host-path to container-path volume bind.
type Bind struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// InstanceState is the runtime's view of one instance.
type InstanceState struct {
	Status    string // runtime status code (e.g. "running", "exited")
	Running   bool
	StartedAt string // runtime-reported start timestamp, verbatim
}

// LogsOptions controls log retrieval for an instance.
type LogsOptions struct {
	Follow bool // stream until interrupted
	Tail   int  // number of trailing lines; <= 0 means the adapter default
}

// ContainerRuntime defines the interface to the external container runtime.
// Each method maps to a single runtime invocation; implementations do not
// retry, and a non-zero exit surfaces as an error wrapping ErrRuntimeFailed
// with the runtime's captured error output.
type ContainerRuntime interface {
	// NetworkExists reports whether the named network exists.
	NetworkExists(ctx context.Context, name string) (bool, error)

	// CreateNetwork creates the named network.
	CreateNetwork(ctx context.Context, name string) error

	// RunDetached creates and starts an instance described by spec.
	RunDetached(ctx context.Context, spec RunSpec) error

	// RunningNames lists the names of currently running instances.
	RunningNames(ctx context.Context) ([]string, error)

	// AllNames lists the names of all instances, running or not.
	AllNames(ctx context.Context) ([]string, error)

	// Inspect returns the state of the named instance.
	Inspect(ctx context.Context, name string) (InstanceState, error)

	// Stop stops the named instance.
	Stop(ctx context.Context, name string) error

	// Remove removes the named (stopped) instance.
	Remove(ctx context.Context, name string) error

	// Logs writes the instance's captured output to w. With Follow set it
	// blocks until the context is done or the stream ends.
	Logs(ctx context.Context, name string, opts LogsOptions, w io.Writer) error
}
