package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/denttrack/denttrack/internal/attachment"
	"github.com/denttrack/denttrack/internal/auth"
	"github.com/denttrack/denttrack/internal/cache"
	"github.com/denttrack/denttrack/internal/config"
	"github.com/denttrack/denttrack/internal/logging"
	"github.com/denttrack/denttrack/internal/remote"
	dtsync "github.com/denttrack/denttrack/internal/sync"
	"go.uber.org/zap"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	cache   *cache.Store
	remote  remote.Store
	auth    *auth.Manager
	coord   *dtsync.Coordinator
	closers []func() error
}

// loadConfig reads configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// openApp wires config, logging, cache, session manager, remote store and
// coordinator. A restored session is reconciled before it returns.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	store, err := cache.Open(cfg.CachePath(), logger.Named("cache"))
	if err != nil {
		a.close()
		return nil, err
	}
	a.cache = store
	a.closers = append(a.closers, store.Close)

	var provider auth.Provider
	if !offline {
		sb, err := auth.NewSupabase(auth.SupabaseConfig{
			URL:      cfg.Remote.URL,
			AnonKey:  cfg.Remote.AnonKey,
			Provider: cfg.Auth.Provider,
		}, logger.Named("auth"))
		switch {
		case err == nil:
			provider = sb
		case errors.Is(err, auth.ErrNotConfigured):
			logger.Debug("no authentication provider configured")
		default:
			a.close()
			return nil, err
		}
	}

	var opener auth.Opener = auth.PrintOpener{W: os.Stderr}
	if cfg.Auth.OpenBrowser {
		opener = auth.BrowserOpener{}
	}
	a.auth = auth.NewManager(provider, auth.NewKVTokenStore(store, cache.KeySession), opener,
		auth.Config{RedirectURL: cfg.Auth.RedirectURL, Timeout: cfg.Auth.Timeout}, logger.Named("auth"))

	if !offline {
		rs, err := remote.New(remote.Config{
			Backend: cfg.Remote.Backend,
			URL:     cfg.Remote.URL,
			AnonKey: cfg.Remote.AnonKey,
			DSN:     cfg.Remote.DSN,
		}, a.auth, logger.Named("remote"))
		switch {
		case err == nil:
			a.remote = rs
			if c, ok := rs.(io.Closer); ok {
				a.closers = append(a.closers, c.Close)
			}
		case errors.Is(err, remote.ErrNotConfigured):
			logger.Debug("no remote store configured, guest mode only")
		default:
			a.close()
			return nil, err
		}
		a.auth.Restore(ctx)
	}

	a.coord = dtsync.New(store, a.remote, a.auth, dtsync.Options{
		Logger:                logger.Named("sync"),
		PushGuestDataOnSignIn: cfg.Sync.PushGuestData,
	})
	if err := a.coord.Init(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		a.coord.Close()
		return nil
	})
	return a, nil
}

// attachments returns the configured attachment store.
func (a *app) attachments(ctx context.Context) (attachment.Store, error) {
	if a.cfg.Attachments.Backend != "s3" {
		return attachment.Inline{}, nil
	}
	s3cfg := a.cfg.Attachments.S3
	return attachment.NewS3(ctx, attachment.S3Config{
		Bucket:    s3cfg.Bucket,
		Prefix:    s3cfg.Prefix,
		Endpoint:  s3cfg.Endpoint,
		PathStyle: s3cfg.PathStyle,
	}, a.logger.Named("attachment"))
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
