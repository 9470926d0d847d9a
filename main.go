package main

import (
	"context"
	"flag"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"path/filepath"

	"tradingdesk/config"
	"tradingdesk/internal/adapters/dockercli"
	"tradingdesk/internal/adapters/logger"
	"tradingdesk/internal/adapters/sqlite"
	"tradingdesk/internal/domain"
	"tradingdesk/internal/manager"
	"tradingdesk/internal/ports"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(),
		"Usage: deskctl [flags] <start|stop|restart|status|logs> [strategy-dir]\n\n"+
			"Manage trading strategy deployments. With no strategy-dir the command\n"+
			"applies to every strategy discovered under the strategies directory\n"+
			"(logs requires an explicit strategy-dir).\n\nFlags:\n")
	flag.PrintDefaults()
}

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Parse CLI surface (flag defaults come from the environment config)
	strategiesDir := flag.String("strategies-dir", cfg.StrategiesDir, "Directory containing strategy files")
	serverURL := flag.String("server-url", cfg.ServerURL, "Trading desk server URL")
	follow := flag.Bool("follow", false, "Follow logs (for logs command)")
	flag.BoolVar(follow, "f", false, "Follow logs (shorthand)")
	tail := flag.Int("tail", 100, "Number of log lines to show (for logs command)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 || len(args) > 2 {
		usage()
		os.Exit(2)
	}
	command := args[0]
	switch command {
	case "start", "stop", "restart", "status", "logs":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", command)
		usage()
		os.Exit(2)
	}

	// 3. Initialize Logger
	var appLogger ports.Logger
	if cfg.LogFormat == "json" {
		zl, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize logger: %v", err)
		}
		defer zl.Sync()
		appLogger = zl
	} else {
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}

	ctx := context.Background()

	// 4. Initialize Container Runtime (docker CLI adapter)
	runtime, err := dockercli.New(dockercli.Config{Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize container runtime")
		log.Fatalf("FATAL: Failed to initialize container runtime: %v", err)
	}

	// 5. Initialize Deployment Journal (optional)
	var journal ports.DeploymentJournal
	if cfg.JournalPath != "" {
		j, err := sqlite.NewJournal(sqlite.Config{DBPath: cfg.JournalPath, Logger: appLogger})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize deployment journal")
			log.Fatalf("FATAL: Failed to initialize deployment journal: %v", err)
		}
		defer func() {
			if err := j.Close(); err != nil {
				appLogger.Error(ctx, err, "Error closing deployment journal")
			}
		}()
		journal = j
	}

	// 6. Initialize Lifecycle Manager
	mgr, err := manager.New(manager.Config{
		StrategiesDir: *strategiesDir,
		ServerURL:     *serverURL,
		Image:         cfg.Image,
		Network:       cfg.Network,
		Runtime:       runtime,
		Journal:       journal,
		Logger:        appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize lifecycle manager")
		log.Fatalf("FATAL: Failed to initialize lifecycle manager: %v", err)
	}

	if err := mgr.EnsureNetwork(ctx); err != nil {
		appLogger.Warn(ctx, "Could not ensure container network", map[string]interface{}{"error": err.Error()})
	}

	// 7. Dispatch: named strategy or all discovered strategies
	if len(args) == 2 {
		runSingle(ctx, mgr, command, args[1], *follow, *tail)
		return
	}

	if command == "logs" {
		fmt.Fprintln(os.Stderr, "Error: Please specify a strategy directory for logs command")
		os.Exit(1)
	}
	if err := mgr.ProcessAll(ctx, command); err != nil {
		appLogger.Error(ctx, err, "Batch operation failed")
		os.Exit(1)
	}
}

// runSingle validates and runs one command against a named strategy
// directory, exiting non-zero when the target is invalid or the operation
// reports a negative result.
func runSingle(ctx context.Context, mgr *manager.Manager, command, path string, follow bool, tail int) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Strategy directory not found: %s\n", path)
		os.Exit(1)
	}
	if !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: %s is not a directory\n", path)
		os.Exit(1)
	}
	s := domain.Strategy{Dir: path}
	if _, err := os.Stat(filepath.Join(path, domain.EntryPointFile)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: No %s found in %s\n", domain.EntryPointFile, path)
		os.Exit(1)
	}

	var ok bool
	switch command {
	case "logs":
		err = mgr.Logs(ctx, s, ports.LogsOptions{Follow: follow, Tail: tail}, os.Stdout)
		ok = err == nil
	case "start":
		ok, err = mgr.Start(ctx, s)
	case "stop":
		ok, err = mgr.Stop(ctx, s)
	case "restart":
		ok, err = mgr.Restart(ctx, s)
	case "status":
		var status domain.StrategyStatus
		status, err = mgr.Status(ctx, s)
		if err == nil {
			mgr.PrintStatus(status)
			ok = true
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if !ok {
		os.Exit(1)
	}
}
