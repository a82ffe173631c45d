package logview

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultInitialLoadCount = 100
	DefaultLoadMoreCount    = 50
	DefaultPollInterval     = 2 * time.Second
	DefaultFetchTimeout     = 5 * time.Second
)

// Options configure a Viewer and its Controller.
type Options struct {
	InitialLoadCount int64
	LoadMoreCount    int64
	PollInterval     time.Duration
	FetchTimeout     time.Duration
	// MaxEntries caps the window after tail appends while following. Zero
	// disables trimming.
	MaxEntries      int
	FollowThreshold int
	StickyDetach    bool
	Logger          *log.Logger
}

func (o Options) withDefaults() Options {
	if o.InitialLoadCount <= 0 {
		o.InitialLoadCount = DefaultInitialLoadCount
	}
	if o.LoadMoreCount <= 0 {
		o.LoadMoreCount = DefaultLoadMoreCount
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.MaxEntries < 0 {
		o.MaxEntries = 0
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// SyncState is the bookkeeping that ties the window to the remote log.
type SyncState struct {
	KnownTotal         int64
	LastSeenIndex      int64
	HasMoreBackward    bool
	InFlightGeneration uint64
}

// Snapshot is a copy of the viewer state handed to the UI.
type Snapshot struct {
	JobID           int64
	Generation      uint64
	Entries         []Entry
	TotalKnown      int64
	LastSeenIndex   int64
	HasMoreBackward bool
	Follow          FollowState
	Ready           bool
	LoadingOlder    bool
	AutoRefresh     bool
	Err             error
}

// TickResult describes what a tail poll did.
type TickResult struct {
	Appended       int
	ScrollToBottom bool
	// Shrunk is set when the server reported fewer entries than already seen.
	Shrunk bool
}

// Viewer owns the window of loaded entries for one job.
//
// Init, LoadOlder and PollTail each run count→fetch→apply while holding the
// writer lock, so they never interleave. Each captures the generation at its
// start and drops its result if Reset ran in the meantime.
type Viewer struct {
	source Source
	opts   Options
	logger *log.Logger

	writeMu sync.Mutex

	mu           sync.Mutex
	jobID        int64
	window       []Entry
	sync         SyncState
	follow       FollowTracker
	ready        bool
	loadingOlder bool
	err          error
	epoch        context.Context
	cancelEpoch  context.CancelFunc
}

// NewViewer builds a Viewer reading from source.
func NewViewer(source Source, opts Options) *Viewer {
	opts = opts.withDefaults()
	v := &Viewer{
		source: source,
		opts:   opts,
		logger: opts.Logger.WithPrefix("logview"),
		follow: FollowTracker{Threshold: opts.FollowThreshold, Sticky: opts.StickyDetach},
	}
	v.epoch, v.cancelEpoch = context.WithCancel(context.Background())
	v.sync.LastSeenIndex = -1
	return v
}

// Reset discards the window and starts a new generation for jobID. Operations
// still in flight are cancelled and their results dropped.
func (v *Viewer) Reset(jobID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancelEpoch()
	v.epoch, v.cancelEpoch = context.WithCancel(context.Background())
	v.jobID = jobID
	v.window = nil
	v.sync = SyncState{
		LastSeenIndex:      -1,
		InFlightGeneration: v.sync.InFlightGeneration + 1,
	}
	v.ready = false
	v.loadingOlder = false
	v.err = nil
	v.follow.reset()
}

// interrupt cancels whatever operation is in flight without changing the
// generation.
func (v *Viewer) interrupt() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancelEpoch()
	v.epoch, v.cancelEpoch = context.WithCancel(context.Background())
}

// Generation returns the current generation token.
func (v *Viewer) Generation() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sync.InFlightGeneration
}

// JobID returns the job the viewer is attached to.
func (v *Viewer) JobID() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.jobID
}

// Init loads the tail of the log. On failure the viewer is left without a
// window and the error is kept for Snapshot.
func (v *Viewer) Init(ctx context.Context) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	v.mu.Lock()
	gen, jobID, epoch := v.sync.InFlightGeneration, v.jobID, v.epoch
	v.mu.Unlock()

	ctx, cancel := withEpoch(ctx, epoch)
	defer cancel()

	limit := v.opts.InitialLoadCount
	total, err := v.count(ctx, jobID)
	if err != nil {
		return v.failInit(gen, err)
	}
	entries, err := v.fetch(ctx, jobID, max(0, total-limit), limit)
	if err != nil {
		return v.failInit(gen, err)
	}
	window := Merge(nil, entries)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.sync.InFlightGeneration {
		return ErrStale
	}
	v.window = window
	v.sync.KnownTotal = total
	v.sync.LastSeenIndex = -1
	if n := len(window); n > 0 {
		v.sync.LastSeenIndex = int64(window[n-1].Index)
	}
	v.sync.HasMoreBackward = total > limit
	v.ready = true
	v.err = nil
	v.logger.Debug("window initialized", "job", jobID, "total", total, "loaded", len(window))
	return nil
}

func (v *Viewer) failInit(gen uint64, err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.sync.InFlightGeneration {
		return ErrStale
	}
	v.ready = false
	v.err = err
	return err
}

// LoadOlder extends the window toward the past by one page. It returns the
// number of entries prepended. Calls made while a load is in flight, before
// Init succeeded, or once the start of the log is loaded are no-ops.
func (v *Viewer) LoadOlder(ctx context.Context) (int, error) {
	v.mu.Lock()
	if !v.ready || v.loadingOlder || !v.sync.HasMoreBackward {
		v.mu.Unlock()
		return 0, nil
	}
	v.loadingOlder = true
	gen, jobID := v.sync.InFlightGeneration, v.jobID
	v.mu.Unlock()
	defer v.finishLoadOlder(gen)

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	v.mu.Lock()
	if gen != v.sync.InFlightGeneration {
		v.mu.Unlock()
		return 0, ErrStale
	}
	loaded := int64(len(v.window))
	epoch := v.epoch
	v.mu.Unlock()

	ctx, cancel := withEpoch(ctx, epoch)
	defer cancel()

	limit := v.opts.LoadMoreCount
	total, err := v.count(ctx, jobID)
	if err != nil {
		return 0, v.staleOr(gen, err)
	}
	offset := max(0, total-loaded-limit)
	entries, err := v.fetch(ctx, jobID, offset, limit)
	if err != nil {
		return 0, v.staleOr(gen, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.sync.InFlightGeneration {
		return 0, ErrStale
	}
	if len(v.window) > 0 {
		entries = olderThan(entries, v.window[0].Index)
	}
	before := len(v.window)
	v.window = Merge(v.window, entries)
	v.sync.HasMoreBackward = offset > 0
	added := len(v.window) - before
	v.logger.Debug("loaded older entries", "job", jobID, "offset", offset, "added", added)
	return added, nil
}

func (v *Viewer) finishLoadOlder(gen uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen == v.sync.InFlightGeneration {
		v.loadingOlder = false
	}
}

// PollTail checks the remote count and appends whatever is new. It does
// nothing until Init has succeeded.
func (v *Viewer) PollTail(ctx context.Context) (TickResult, error) {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	v.mu.Lock()
	if !v.ready {
		v.mu.Unlock()
		return TickResult{}, nil
	}
	gen, jobID, epoch := v.sync.InFlightGeneration, v.jobID, v.epoch
	known, lastSeen := v.sync.KnownTotal, v.sync.LastSeenIndex
	v.mu.Unlock()

	ctx, cancel := withEpoch(ctx, epoch)
	defer cancel()

	newTotal, err := v.count(ctx, jobID)
	if err != nil {
		return TickResult{}, v.staleOr(gen, err)
	}
	if newTotal <= known {
		if newTotal < known {
			v.logger.Warn("remote log shrank; keeping window", "job", jobID, "known", known, "remote", newTotal)
			return TickResult{Shrunk: true}, nil
		}
		return TickResult{}, nil
	}
	entries, err := v.fetch(ctx, jobID, lastSeen+1, newTotal-known)
	if err != nil {
		return TickResult{}, v.staleOr(gen, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.sync.InFlightGeneration {
		return TickResult{}, ErrStale
	}
	fresh := newerThan(entries, v.sync.LastSeenIndex)
	before := len(v.window)
	v.window = Merge(v.window, fresh)
	appended := len(v.window) - before
	v.sync.KnownTotal = newTotal
	if appended > 0 {
		v.sync.LastSeenIndex = max(v.sync.LastSeenIndex, int64(v.window[len(v.window)-1].Index))
	}

	following := v.follow.State() == Following
	if following && v.opts.MaxEntries > 0 {
		if overflow := len(v.window) - v.opts.MaxEntries; overflow > 0 {
			v.window = append([]Entry(nil), v.window[overflow:]...)
			v.sync.HasMoreBackward = true
		}
	}
	return TickResult{
		Appended:       appended,
		ScrollToBottom: following && appended > 0,
	}, nil
}

func (v *Viewer) staleOr(gen uint64, err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.sync.InFlightGeneration {
		return ErrStale
	}
	return err
}

// OnScroll feeds a scroll position to the follow tracker.
func (v *Viewer) OnScroll(scrollHeight, scrollTop, clientHeight int) FollowState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.follow.OnScroll(scrollHeight, scrollTop, clientHeight)
}

// JumpToBottom re-enables auto-follow.
func (v *Viewer) JumpToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.follow.JumpToBottom()
}

// Snapshot returns a copy of the current state.
func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	var entries []Entry
	if len(v.window) > 0 {
		entries = make([]Entry, len(v.window))
		copy(entries, v.window)
	}
	return Snapshot{
		JobID:           v.jobID,
		Generation:      v.sync.InFlightGeneration,
		Entries:         entries,
		TotalKnown:      v.sync.KnownTotal,
		LastSeenIndex:   v.sync.LastSeenIndex,
		HasMoreBackward: v.sync.HasMoreBackward,
		Follow:          v.follow.State(),
		Ready:           v.ready,
		LoadingOlder:    v.loadingOlder,
		Err:             v.err,
	}
}

func (v *Viewer) count(ctx context.Context, jobID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, v.opts.FetchTimeout)
	defer cancel()
	n, err := v.source.Count(ctx, jobID)
	if err != nil {
		return 0, classify("count", jobID, err)
	}
	return max(0, n), nil
}

func (v *Viewer) fetch(ctx context.Context, jobID, offset, limit int64) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, v.opts.FetchTimeout)
	defer cancel()
	entries, err := v.source.Fetch(ctx, jobID, offset, limit)
	if err != nil {
		return nil, classify("fetch", jobID, err)
	}
	return entries, nil
}

// withEpoch derives a context that is also cancelled when epoch ends.
func withEpoch(ctx context.Context, epoch context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(epoch, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// isBenign reports errors that callers should not surface.
func isBenign(err error) bool {
	return errors.Is(err, ErrStale) || errors.Is(err, context.Canceled)
}
