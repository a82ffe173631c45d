// Package logview keeps a bounded, index-ordered window over a remote
// append-only job log.
//
// A Viewer loads the tail of the log, extends the window toward the past one
// page at a time, and appends new entries as the server reports them. Every
// entry enters the window through Merge, so the window stays strictly
// increasing by Index no matter how the three loaders interleave.
//
// A Controller wraps a Viewer with a Poller and handles switching jobs,
// toggling auto-refresh, and reloading. Results of work started for an older
// job are dropped and reported as ErrStale.
package logview
