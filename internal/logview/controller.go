package logview

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// Update is emitted by the tail poller for every tick that appended entries
// or failed, and for the first successful tick after a failure.
type Update struct {
	JobID          int64
	Generation     uint64
	Appended       int
	ScrollToBottom bool
	Err            error
}

const updateBuffer = 16

// Controller owns a Viewer and the poller that keeps it current. It is the
// only component that starts or stops the poller.
type Controller struct {
	viewer *Viewer
	poller *Poller
	logger *log.Logger

	// requests orders lifecycle calls; a call that is overtaken by a newer
	// one gives up once it gets the lock.
	requests atomic.Uint64

	// tickFailed is set while the last poller tick failed.
	tickFailed atomic.Bool

	lifecycle   sync.Mutex
	mu          sync.Mutex
	active      bool
	loading     bool // initial load of the current activation is pending
	autoRefresh bool
	runCtx      context.Context

	updates chan Update
}

// NewController builds an inactive Controller. Auto-refresh starts enabled.
func NewController(source Source, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		viewer:      NewViewer(source, opts),
		logger:      opts.Logger.WithPrefix("tail"),
		autoRefresh: true,
		runCtx:      context.Background(),
		updates:     make(chan Update, updateBuffer),
	}
	c.poller = NewPoller(opts.PollInterval, c.tick)
	return c
}

// Updates delivers poller results. The channel is never closed.
func (c *Controller) Updates() <-chan Update { return c.updates }

// Activate attaches the controller to jobID: the poller is stopped, the
// window is rebuilt from the tail, and the poller restarts when auto-refresh
// is on. ctx bounds the poller's lifetime as well as the initial load.
//
// The lifecycle lock is not held during the initial load, so SetAutoRefresh
// and Deactivate return promptly while it is pending.
func (c *Controller) Activate(ctx context.Context, jobID int64) error {
	seq := c.requests.Add(1)
	c.viewer.interrupt()

	c.lifecycle.Lock()
	if c.requests.Load() != seq {
		c.lifecycle.Unlock()
		return ErrStale
	}
	c.poller.Stop()
	c.viewer.Reset(jobID)
	c.mu.Lock()
	c.active = true
	c.loading = true
	c.runCtx = ctx
	c.mu.Unlock()
	c.lifecycle.Unlock()

	err := c.viewer.Init(ctx)

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.requests.Load() != seq {
		return ErrStale
	}
	c.mu.Lock()
	c.loading = false
	autoRefresh := c.autoRefresh
	c.mu.Unlock()

	if err != nil {
		if !isBenign(err) {
			c.logger.Error("initial load failed", "job", jobID, "err", err)
		}
		return err
	}
	if autoRefresh {
		c.poller.Start(ctx)
	}
	c.logger.Info("attached", "job", jobID, "auto_refresh", autoRefresh)
	return nil
}

// Reload discards the window and initializes the current job again.
func (c *Controller) Reload(ctx context.Context) error {
	return c.Activate(ctx, c.viewer.JobID())
}

// Deactivate stops the poller and discards the window.
func (c *Controller) Deactivate() {
	c.requests.Add(1)
	c.viewer.interrupt()

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.poller.Stop()
	c.viewer.Reset(0)
	c.mu.Lock()
	c.active = false
	c.loading = false
	c.mu.Unlock()
}

// SetAutoRefresh starts or stops the poller. The window is left untouched.
// While an initial load is pending only the setting changes; Activate starts
// the poller once the load succeeds.
func (c *Controller) SetAutoRefresh(enabled bool) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	c.autoRefresh = enabled
	run := enabled && c.active && !c.loading
	ctx := c.runCtx
	c.mu.Unlock()

	if run {
		c.poller.Start(ctx)
		return
	}
	c.poller.Stop()
}

// AutoRefresh reports whether the poller is enabled.
func (c *Controller) AutoRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoRefresh
}

// Polling reports whether the poller goroutine is running.
func (c *Controller) Polling() bool { return c.poller.Running() }

// LoadOlder extends the window toward the past.
func (c *Controller) LoadOlder(ctx context.Context) (int, error) {
	n, err := c.viewer.LoadOlder(ctx)
	if err != nil && !isBenign(err) {
		c.logger.Warn("load older failed", "job", c.viewer.JobID(), "err", err)
	}
	return n, err
}

// RefreshNow runs one tail poll immediately.
func (c *Controller) RefreshNow(ctx context.Context) (TickResult, error) {
	return c.viewer.PollTail(ctx)
}

// ScrollToBottom records an explicit jump to the bottom and re-enables
// auto-follow. The caller performs the scroll itself.
func (c *Controller) ScrollToBottom() { c.viewer.JumpToBottom() }

// OnScroll feeds a scroll position to the follow tracker.
func (c *Controller) OnScroll(scrollHeight, scrollTop, clientHeight int) FollowState {
	return c.viewer.OnScroll(scrollHeight, scrollTop, clientHeight)
}

// Snapshot returns the observable state.
func (c *Controller) Snapshot() Snapshot {
	snap := c.viewer.Snapshot()
	snap.AutoRefresh = c.AutoRefresh()
	return snap
}

func (c *Controller) tick(ctx context.Context) {
	gen := c.viewer.Generation()
	res, err := c.viewer.PollTail(ctx)
	if ctx.Err() != nil || (err != nil && isBenign(err)) {
		return
	}
	recovered := err == nil && c.tickFailed.Swap(false)
	if err != nil {
		c.tickFailed.Store(true)
		c.logger.Warn("tail poll failed", "job", c.viewer.JobID(), "err", err)
	}
	if err == nil && res.Appended == 0 && !recovered {
		return
	}
	update := Update{
		JobID:          c.viewer.JobID(),
		Generation:     gen,
		Appended:       res.Appended,
		ScrollToBottom: res.ScrollToBottom,
		Err:            err,
	}
	select {
	case c.updates <- update:
	case <-ctx.Done():
	}
}
