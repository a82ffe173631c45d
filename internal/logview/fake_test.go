package logview

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSource is an in-memory remote log where Index equals position.
type fakeSource struct {
	mu       sync.Mutex
	entries  []Entry
	countErr error
	fetchErr error

	// hooks run outside the lock so they may mutate the source or the viewer
	onCount func(call int)
	onFetch func(call int, offset, limit int64)

	counts  int
	fetches int
}

func newFakeSource(n int) *fakeSource {
	f := &fakeSource{}
	f.append(n)
	return f
}

func (f *fakeSource) append(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < n; i++ {
		idx := uint64(len(f.entries))
		f.entries = append(f.entries, Entry{
			Index:     idx,
			Timestamp: base.Add(time.Duration(idx) * time.Second),
			Message:   fmt.Sprintf("line %d", idx),
		})
	}
}

func (f *fakeSource) truncate(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = f.entries[:n]
}

func (f *fakeSource) setErrors(countErr, fetchErr error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countErr, f.fetchErr = countErr, fetchErr
}

func (f *fakeSource) setHooks(onCount func(call int), onFetch func(call int, offset, limit int64)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts, f.fetches = 0, 0
	f.onCount, f.onFetch = onCount, onFetch
}

func (f *fakeSource) calls() (counts, fetches int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts, f.fetches
}

func (f *fakeSource) Count(ctx context.Context, jobID int64) (int64, error) {
	f.mu.Lock()
	f.counts++
	call, hook := f.counts, f.onCount
	f.mu.Unlock()
	if hook != nil {
		hook(call)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.entries)), nil
}

func (f *fakeSource) Fetch(ctx context.Context, jobID int64, offset, limit int64) ([]Entry, error) {
	f.mu.Lock()
	f.fetches++
	call, hook := f.fetches, f.onFetch
	f.mu.Unlock()
	if hook != nil {
		hook(call, offset, limit)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	total := int64(len(f.entries))
	if offset >= total || limit <= 0 {
		return nil, nil
	}
	end := min(total, offset+limit)
	out := make([]Entry, end-offset)
	copy(out, f.entries[offset:end])
	return out, nil
}

// overlapSource hands back extra entries before the requested offset, like
// a server whose pagination drifted.
type overlapSource struct {
	*fakeSource
	mu   sync.Mutex
	back int64
}

func (o *overlapSource) setBack(n int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.back = n
}

func (o *overlapSource) Fetch(ctx context.Context, jobID int64, offset, limit int64) ([]Entry, error) {
	o.mu.Lock()
	back := min(o.back, offset)
	o.mu.Unlock()
	return o.fakeSource.Fetch(ctx, jobID, offset-back, limit+back)
}

// blockingSource parks every call until its context ends.
type blockingSource struct {
	started chan struct{}
}

func (b *blockingSource) Count(ctx context.Context, jobID int64) (int64, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return 0, ctx.Err()
}

func (b *blockingSource) Fetch(ctx context.Context, jobID int64, offset, limit int64) ([]Entry, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// jobSources routes calls to a per-job fake.
type jobSources map[int64]*fakeSource

func (j jobSources) Count(ctx context.Context, jobID int64) (int64, error) {
	src, ok := j[jobID]
	if !ok {
		return 0, fmt.Errorf("job %d: %w", jobID, ErrNotFound)
	}
	return src.Count(ctx, jobID)
}

func (j jobSources) Fetch(ctx context.Context, jobID int64, offset, limit int64) ([]Entry, error) {
	src, ok := j[jobID]
	if !ok {
		return nil, fmt.Errorf("job %d: %w", jobID, ErrNotFound)
	}
	return src.Fetch(ctx, jobID, offset, limit)
}

func requireMonotonic(t *testing.T, entries []Entry) {
	t.Helper()
	for i := 1; i < len(entries); i++ {
		require.Less(t, entries[i-1].Index, entries[i].Index, "entries %d and %d out of order", i-1, i)
	}
}

func requireRange(t *testing.T, entries []Entry, from, to uint64) {
	t.Helper()
	require.Len(t, entries, int(to-from))
	for i, e := range entries {
		require.Equal(t, from+uint64(i), e.Index)
	}
}

func testOptions() Options {
	return Options{
		InitialLoadCount: 100,
		LoadMoreCount:    50,
		PollInterval:     10 * time.Millisecond,
		FetchTimeout:     time.Second,
	}
}
