// Package logtail serves a local log file through the logview.Source
// interface.
//
// Each newline-terminated line is one entry; its index is the 0-based line
// number, so the file behaves like an append-only job log. A line that has
// not been terminated yet is left out until the writer finishes it.
//
// Leading "2006-01-02 15:04:05" or RFC 3339 timestamps are split off into
// Entry.Timestamp. Lines without one take the file's modification time.
//
// The file is rescanned on every call. That keeps the source stateless and
// correct across truncation, at the cost of O(file size) reads per poll.
//
//	src := logtail.NewFileSource("/var/log/jobs/42.log")
//	ctrl := logview.NewController(src, opts)
package logtail
