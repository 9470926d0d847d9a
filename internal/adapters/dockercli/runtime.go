// Package dockercli implements the ports.ContainerRuntime interface by
// invoking the docker command-line client, one process per operation.
package dockercli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"tradingdesk/internal/ports"
)

const defaultBinary = "docker"

// Runtime implements ports.ContainerRuntime against the docker CLI.
type Runtime struct {
	binary string
	logger ports.Logger
}

// Config holds configuration specific to the docker CLI adapter.
type Config struct {
	Binary string // docker binary name or path; empty means "docker"
	Logger ports.Logger
}

// New creates a new docker CLI runtime adapter.
func New(cfg Config) (*Runtime, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for docker runtime")
	}
	binary := cfg.Binary
	if binary == "" {
		binary = defaultBinary
	}
	return &Runtime{binary: binary, logger: cfg.Logger}, nil
}

// run executes one docker invocation and returns its stdout. A non-zero exit
// becomes an error wrapping ports.ErrRuntimeFailed carrying the captured
// stderr text.
func (r *Runtime) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug(ctx, "Invoking container runtime", map[string]interface{}{"args": strings.Join(args, " ")})

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), fmt.Errorf("%w: %s %s: %s",
				ports.ErrRuntimeFailed, r.binary, args[0], strings.TrimSpace(stderr.String()))
		}
		return stdout.String(), fmt.Errorf("%w: %s: %v", ports.ErrRuntimeFailed, r.binary, err)
	}
	return stdout.String(), nil
}

// NetworkExists reports whether the named network exists. Any non-zero exit
// from the inspect invocation is read as "does not exist".
func (r *Runtime) NetworkExists(ctx context.Context, name string) (bool, error) {
	_, err := r.run(ctx, "network", "inspect", name)
	if err != nil {
		if errors.Is(err, ports.ErrRuntimeFailed) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateNetwork creates the named network.
func (r *Runtime) CreateNetwork(ctx context.Context, name string) error {
	_, err := r.run(ctx, "network", "create", name)
	return err
}

// RunDetached creates and starts an instance described by spec. Environment
// variables are passed in sorted key order so invocations are deterministic.
func (r *Runtime) RunDetached(ctx context.Context, spec ports.RunSpec) error {
	args := []string{"run", "-d", "--name", spec.Name}
	if spec.Network != "" {
		args = append(args, "--network", spec.Network)
	}
	if spec.RestartPolicy != "" {
		args = append(args, "--restart", spec.RestartPolicy)
	}

	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, spec.Env[k]))
	}

	for _, b := range spec.Binds {
		bind := b.HostPath + ":" + b.ContainerPath
		if b.ReadOnly {
			bind += ":ro"
		}
		args = append(args, "-v", bind)
	}

	args = append(args, spec.Image)
	args = append(args, spec.Command...)

	_, err := r.run(ctx, args...)
	return err
}

// RunningNames lists the names of currently running instances.
func (r *Runtime) RunningNames(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "ps", "--format", "{{.Names}}")
	if err != nil {
		return nil, err
	}
	return splitNames(out), nil
}

// AllNames lists the names of all instances, running or not.
func (r *Runtime) AllNames(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "ps", "-a", "--format", "{{.Names}}")
	if err != nil {
		return nil, err
	}
	return splitNames(out), nil
}

// Inspect returns the state of the named instance.
func (r *Runtime) Inspect(ctx context.Context, name string) (ports.InstanceState, error) {
	out, err := r.run(ctx, "inspect", "-f", "{{.State.Status}}|{{.State.Running}}|{{.State.StartedAt}}", name)
	if err != nil {
		return ports.InstanceState{}, err
	}

	parts := strings.SplitN(strings.TrimSpace(out), "|", 3)
	if len(parts) != 3 {
		return ports.InstanceState{}, fmt.Errorf("%w: unexpected inspect output %q", ports.ErrRuntimeFailed, strings.TrimSpace(out))
	}
	running, err := strconv.ParseBool(parts[1])
	if err != nil {
		return ports.InstanceState{}, fmt.Errorf("%w: unexpected running flag %q", ports.ErrRuntimeFailed, parts[1])
	}
	return ports.InstanceState{Status: parts[0], Running: running, StartedAt: parts[2]}, nil
}

// Stop stops the named instance.
func (r *Runtime) Stop(ctx context.Context, name string) error {
	_, err := r.run(ctx, "stop", name)
	return err
}

// Remove removes the named instance.
func (r *Runtime) Remove(ctx context.Context, name string) error {
	_, err := r.run(ctx, "rm", name)
	return err
}

// Logs writes the instance's captured output to w. With Follow set this
// blocks until the stream ends or the context is canceled.
func (r *Runtime) Logs(ctx context.Context, name string, opts ports.LogsOptions, w io.Writer) error {
	args := []string{"logs"}
	if opts.Follow {
		args = append(args, "-f")
	}
	tail := opts.Tail
	if tail <= 0 {
		tail = 100
	}
	args = append(args, "--tail", strconv.Itoa(tail), name)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = w
	var stderr bytes.Buffer
	// docker logs writes the container's stderr stream to stderr; keep it
	// with the rest of the output.
	cmd.Stderr = io.MultiWriter(w, &stderr)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s logs: %s", ports.ErrRuntimeFailed, r.binary, strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("%w: %s: %v", ports.ErrRuntimeFailed, r.binary, err)
	}
	return nil
}

func splitNames(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names
}
