// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logging setup, database opening and engine
// wiring to reduce boilerplate across commands.
package appctx

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lherron/clara/internal/config"
	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/engine"
	"github.com/lherron/clara/internal/logging"
	"github.com/lherron/clara/internal/snapcache"
	"github.com/lherron/clara/internal/snapshot"
	"github.com/lherron/clara/internal/store"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// DB is the opened database connection (nil if NeedsDB is false)
	DB *db.DB

	// Engine wraps the store, snapshot builder and snapshot cache
	// (nil if NeedsDB is false)
	Engine *engine.Engine
}

// Store is shorthand for the engine's entity store
func (a *App) Store() *store.Store {
	if a.Engine == nil {
		return nil
	}
	return a.Engine.Store
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.Engine != nil {
		if err := a.Engine.Close(); err != nil {
			log.WithError(err).Warn("failed to close snapshot cache")
		}
		a.Engine = nil
	}
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database and wire the engine.
	NeedsDB bool
}

// DefaultOptions returns default options (DB required).
func DefaultOptions() Options {
	return Options{NeedsDB: true}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// --db overrides every config source
	if dbFlag := cmd.Flag("db"); dbFlag != nil {
		if dbPath := dbFlag.Value.String(); dbPath != "" {
			cfg.DBPath = dbPath
		}
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}

	app := &App{Config: cfg}
	if !opts.NeedsDB {
		return app, nil
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.RequiresMigrationError(); err != nil {
		database.Close()
		return nil, err
	}
	app.DB = database

	cache, err := snapcache.Open(cfg.RedisURL, cfg.SnapshotTTL)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to open snapshot cache: %w", err)
	}

	s := store.New(database)
	app.Engine = engine.New(s, snapshot.NewBuilder(s), cache)

	log.WithFields(log.Fields{
		"db":    cfg.DBPath,
		"cache": cache != nil,
	}).Debug("bootstrapped")

	return app, nil
}
