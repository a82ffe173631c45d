package logview

import (
	"context"
	"sort"
	"time"
)

// Entry is a single line of a job log as assigned by the server.
type Entry struct {
	Index     uint64
	Timestamp time.Time
	Message   string
}

// Source provides read-only paginated access to a per-job append-only log.
//
// Count reports how many entries the server holds for the job at call time.
// Fetch returns up to limit entries starting at offset in append order and
// returns fewer only at a true boundary. Implementations wrap ErrNotFound when
// the job id no longer resolves; any other error is treated as transient.
type Source interface {
	Count(ctx context.Context, jobID int64) (int64, error)
	Fetch(ctx context.Context, jobID int64, offset, limit int64) ([]Entry, error)
}

// Merge combines an index-ordered window with incoming entries and returns a
// window that is strictly increasing by Index. Entries whose index is already
// present are dropped. incoming does not need to be sorted. Neither input is
// modified.
func Merge(window, incoming []Entry) []Entry {
	if len(incoming) == 0 {
		return window
	}
	in := make([]Entry, len(incoming))
	copy(in, incoming)
	sort.SliceStable(in, func(i, j int) bool { return in[i].Index < in[j].Index })

	out := make([]Entry, 0, len(window)+len(in))
	i, j := 0, 0
	for i < len(window) || j < len(in) {
		var next Entry
		switch {
		case j >= len(in):
			next = window[i]
			i++
		case i >= len(window):
			next = in[j]
			j++
		case in[j].Index < window[i].Index:
			next = in[j]
			j++
		case in[j].Index == window[i].Index:
			// existing entry wins
			next = window[i]
			i++
			j++
		default:
			next = window[i]
			i++
		}
		if n := len(out); n > 0 && out[n-1].Index >= next.Index {
			continue
		}
		out = append(out, next)
	}
	return out
}

// olderThan returns the entries of in whose index is below bound.
func olderThan(in []Entry, bound uint64) []Entry {
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		if e.Index < bound {
			out = append(out, e)
		}
	}
	return out
}

// newerThan returns the entries of in whose index is above last. A negative
// last keeps everything.
func newerThan(in []Entry, last int64) []Entry {
	if last < 0 {
		return in
	}
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		if e.Index > uint64(last) {
			out = append(out, e)
		}
	}
	return out
}
