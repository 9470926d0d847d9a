package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradingdesk/internal/domain"
	"tradingdesk/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Journal implements the ports.DeploymentJournal interface using SQLite,
// keeping a persistent record of strategy lifecycle attempts.
type Journal struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite journal.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewJournal creates a new SQLite journal instance.
func NewJournal(cfg Config) (*Journal, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite journal")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/deployments.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally, but the Go driver benefits from
	// limiting connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db, logger: cfg.Logger}

	if err := j.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize journal schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Deployment journal ready", map[string]interface{}{"path": dbPath})

	return j, nil
}

// initializeSchema creates the events table if it doesn't exist.
func (j *Journal) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS deployment_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		strategy TEXT NOT NULL,
		container TEXT NOT NULL,
		action TEXT NOT NULL,
		success INTEGER NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deployment_events_strategy ON deployment_events(strategy);
	`
	_, err := j.db.ExecContext(ctx, schema)
	return err
}

// RecordEvent stores one lifecycle attempt.
func (j *Journal) RecordEvent(ctx context.Context, event *domain.DeploymentEvent) error {
	if event == nil {
		return fmt.Errorf("%w: event is nil", ports.ErrInvalidRequest)
	}
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}

	res, err := j.db.ExecContext(ctx,
		`INSERT INTO deployment_events (strategy, container, action, success, detail, at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.Strategy, event.Container, event.Action, event.Success, event.Detail, at)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrJournalWrite, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// RecentEvents returns up to limit events, most recent first.
func (j *Journal) RecentEvents(ctx context.Context, limit int) ([]*domain.DeploymentEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, strategy, container, action, success, detail, at
		 FROM deployment_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrJournalQuery, err)
	}
	defer rows.Close()

	var events []*domain.DeploymentEvent
	for rows.Next() {
		var e domain.DeploymentEvent
		if err := rows.Scan(&e.ID, &e.Strategy, &e.Container, &e.Action, &e.Success, &e.Detail, &e.At); err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrJournalQuery, err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrJournalQuery, err)
	}
	return events, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
