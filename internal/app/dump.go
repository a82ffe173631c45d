package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/jobtail/internal/logview"
	"github.com/five82/jobtail/internal/state"
	"github.com/five82/jobtail/internal/ui"
)

// DumpOptions configure a non-interactive dump of a job log.
type DumpOptions struct {
	ConfigPath string
	JobID      int64
	File       string
	Lines      int64 // tail size; zero uses initial_load_count
	Follow     bool
	Version    string
	Out        io.Writer // nil uses stdout
	Err        io.Writer // diagnostics; nil uses stderr
}

// Dump prints the tail of a job log. With Follow it keeps printing appended
// entries until ctx is cancelled or the job finishes.
func Dump(ctx context.Context, opts DumpOptions) error {
	cfg, err := loadConfig(opts.ConfigPath, 0)
	if err != nil {
		return err
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	logger := newLogger(opts.Err, cfg.LogLevel)

	be, err := newBackend(cfg.APIBase, opts.File, opts.Version, cfg.RequestTimeout)
	if err != nil {
		return err
	}

	vopts := viewOptions(cfg, logger)
	if opts.Lines > 0 {
		vopts.InitialLoadCount = opts.Lines
	}
	ctrl := logview.NewController(be.source, vopts)
	ctrl.SetAutoRefresh(opts.Follow)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := ctrl.Activate(ctx, opts.JobID); err != nil {
		return fmt.Errorf("load job %d: %w", opts.JobID, err)
	}
	defer ctrl.Deactivate()

	p := &printer{out: opts.Out, last: -1}
	if err := p.print(ctrl.Snapshot().Entries); err != nil {
		return err
	}
	if !opts.Follow {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	var store *state.Store
	if be.fetcher != nil {
		store = &state.Store{}
		g.Go(func() error {
			return runJobPoller(gctx, store, be.fetcher, opts.JobID, cfg.PollInterval, logger)
		})
	}
	g.Go(func() error {
		defer cancel()
		return follow(gctx, ctrl, store, p, cfg.PollInterval)
	})
	return g.Wait()
}

// follow prints new entries as the controller reports them. When store is
// set, a finished job gets one last refresh before follow returns.
func follow(ctx context.Context, ctrl *logview.Controller, store *state.Store, p *printer, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-ctrl.Updates():
			if u.Err != nil {
				continue
			}
			if err := p.print(ctrl.Snapshot().Entries); err != nil {
				return err
			}
		case <-ticker.C:
			if store == nil || !store.Snapshot().Finished() {
				continue
			}
			if _, err := ctrl.RefreshNow(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("final refresh: %w", err)
			}
			return p.print(ctrl.Snapshot().Entries)
		}
	}
}

// printer writes each entry once, in index order.
type printer struct {
	out  io.Writer
	last int64
}

func (p *printer) print(entries []logview.Entry) error {
	for _, e := range entries {
		if int64(e.Index) <= p.last {
			continue
		}
		if _, err := fmt.Fprintln(p.out, ui.FormatLine(e)); err != nil {
			return err
		}
		p.last = int64(e.Index)
	}
	return nil
}
