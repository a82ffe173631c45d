package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/five82/jobtail/internal/config"
	"github.com/five82/jobtail/internal/logview"
	"github.com/five82/jobtail/internal/prefs"
	"github.com/five82/jobtail/internal/state"
	"github.com/five82/jobtail/internal/ui"
)

// Options configure the interactive viewer.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/jobtail/prefs.toml
	JobID      int64
	File       string        // view a local log file instead of the API
	PollEvery  time.Duration // zero uses poll_interval_ms from config
	NoRefresh  bool          // start with auto-refresh off
	Version    string
}

// Run boots the jobtail TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := loadConfig(opts.ConfigPath, opts.PollEvery)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogFile(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	be, err := newBackend(cfg.APIBase, opts.File, opts.Version, cfg.RequestTimeout)
	if err != nil {
		return err
	}
	logger.Info("starting viewer", "job", opts.JobID, "source", be.label, "version", opts.Version)
	if path, err := config.Path(opts.ConfigPath); err == nil {
		logger.Debug("config resolved", "path", path, "poll", cfg.PollInterval)
	}

	ctrl := logview.NewController(be.source, viewOptions(cfg, logger))
	ctrl.SetAutoRefresh(userPrefs.AutoRefreshEnabled() && !opts.NoRefresh)

	var store *state.Store
	if be.fetcher != nil {
		store = &state.Store{}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if store != nil {
		g.Go(func() error {
			return runJobPoller(gctx, store, be.fetcher, opts.JobID, cfg.PollInterval, logger)
		})
	}
	g.Go(func() error {
		defer cancel()
		defer ctrl.Deactivate()
		return ui.Run(ui.Options{
			Context:    gctx,
			Controller: ctrl,
			Store:      store,
			JobID:      opts.JobID,
			Source:     be.label,
			Prefs:      userPrefs,
			PrefsPath:  opts.PrefsPath,
			Logger:     logger,
		})
	})
	return g.Wait()
}

func loadConfig(path string, pollEvery time.Duration) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load jobtail config: %w", err)
	}
	if pollEvery > 0 {
		cfg.PollInterval = pollEvery
	}
	return cfg, nil
}

func viewOptions(cfg config.Config, logger *log.Logger) logview.Options {
	return logview.Options{
		InitialLoadCount: cfg.InitialLoadCount,
		LoadMoreCount:    cfg.LoadMoreCount,
		PollInterval:     cfg.PollInterval,
		FetchTimeout:     cfg.RequestTimeout,
		MaxEntries:       cfg.MaxEntries,
		FollowThreshold:  cfg.FollowThreshold,
		StickyDetach:     cfg.StickyDetach,
		Logger:           logger,
	}
}
