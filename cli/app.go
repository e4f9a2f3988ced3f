// ABOUTME: Wires configuration, logging, session, cache, and store for every command
// ABOUTME: Falls back to the offline cache when the API cannot be reached
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/agencycrm/api"
	"github.com/harperreed/agencycrm/config"
	"github.com/harperreed/agencycrm/db"
	"github.com/harperreed/agencycrm/logging"
	"github.com/harperreed/agencycrm/session"
	"github.com/harperreed/agencycrm/store"
)

// App is an opened, loaded store plus the resources behind it.
type App struct {
	Config *config.Config
	Log    *logging.Logger
	Cache  *db.Cache
	Tokens *session.TokenStore
	Store  *store.Store
}

// OpenOptions adjusts how Open reaches the API.
type OpenOptions struct {
	Offline bool // serve from the cache without contacting the API
	Verbose bool // mirror logs to stderr
}

// NewLogger builds the application logger from cfg.
func NewLogger(cfg *config.Config, verbose bool) (*logging.Logger, error) {
	return logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
		Verbose: verbose,
	})
}

// Open connects, builds the store, and loads the pipeline.
func Open(ctx context.Context, cfg *config.Config, opts OpenOptions) (*App, error) {
	logger, err := NewLogger(cfg, opts.Verbose)
	if err != nil {
		return nil, err
	}

	cache, err := db.OpenCache(cfg.CachePath)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	app := &App{
		Config: cfg,
		Log:    logger,
		Cache:  cache,
		Tokens: session.NewTokenStore(cfg.TokenPath),
	}

	storeOpts := []store.Option{
		store.WithLogger(logger.Component("store")),
		store.WithCache(cache),
		store.WithRollbackOnPaymentError(cfg.RollbackPaymentOnError),
		store.WithBulkConcurrency(cfg.BulkConcurrency),
		store.WithActivityLimit(cfg.ActivityLimit),
	}

	if opts.Offline {
		app.Store = store.New(api.New(cfg.APIBaseURL, api.WithTimeout(cfg.HTTPTimeout)), storeOpts...)
		if err := app.Store.LoadOffline(ctx); err != nil {
			_ = app.Close()
			return nil, err
		}
		return app, nil
	}

	remote, connectErr := session.Connect(ctx, session.Options{
		BaseURL:  cfg.APIBaseURL,
		Email:    cfg.Email,
		Password: cfg.Password,
		Timeout:  cfg.HTTPTimeout,
		Tokens:   app.Tokens,
		Logger:   logger.Component("session"),
	})
	if connectErr != nil {
		// An unauthenticated client fails every load, which routes the store to the cache.
		remote = api.New(cfg.APIBaseURL, api.WithTimeout(cfg.HTTPTimeout), api.WithLogger(logger.Component("api")))
	}

	app.Store = store.New(remote, storeOpts...)
	if err := app.Store.Load(ctx); err != nil {
		_ = app.Close()
		if connectErr != nil {
			return nil, connectErr
		}
		return nil, err
	}
	if connectErr != nil && !app.Store.Snapshot().Offline {
		_ = app.Close()
		return nil, connectErr
	}
	return app, nil
}

// Close releases the cache and the log file.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Log != nil {
		errs = append(errs, a.Log.Close())
	}
	return errors.Join(errs...)
}

// Describe reports where the app reads from, for the startup log line.
func (a *App) Describe() string {
	snap := a.Store.Snapshot()
	if snap.Offline {
		return fmt.Sprintf("offline cache %s (cached %s)", a.Config.CachePath, snap.CachedAt.Local().Format("2006-01-02 15:04"))
	}
	return a.Config.APIBaseURL
}
