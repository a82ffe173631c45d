package logtail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/five82/jobtail/internal/logview"
)

const lineTimestampLayout = "2006-01-02 15:04:05"

// FileSource serves a local text file as a job log. Every newline-terminated
// line is one entry and its index is the 0-based line number. A trailing line
// without a newline is still being written and is not reported yet.
type FileSource struct {
	path string
}

// Ensure FileSource implements logview.Source at compile time.
var _ logview.Source = (*FileSource)(nil)

// NewFileSource builds a FileSource for path. The file does not need to exist
// yet.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the file being served.
func (s *FileSource) Path() string { return s.path }

// Count returns the number of complete lines in the file. The job id is
// ignored; the file is the log.
func (s *FileSource) Count(ctx context.Context, _ int64) (int64, error) {
	var n int64
	err := s.scan(ctx, func(int64, string) bool {
		n++
		return true
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Fetch returns up to limit complete lines starting at line offset.
func (s *FileSource) Fetch(ctx context.Context, _ int64, offset, limit int64) ([]logview.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	offset = max(0, offset)
	end := offset + limit

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, s.openErr(err)
	}
	modTime := info.ModTime()

	entries := make([]logview.Entry, 0, min(limit, 1024))
	err = s.scan(ctx, func(idx int64, line string) bool {
		if idx < offset {
			return true
		}
		if idx >= end {
			return false
		}
		ts, msg := splitTimestamp(line)
		if ts.IsZero() {
			ts = modTime
		}
		entries = append(entries, logview.Entry{
			Index:     uint64(idx),
			Timestamp: ts,
			Message:   msg,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// scan calls fn for each complete line until fn returns false.
func (s *FileSource) scan(ctx context.Context, fn func(idx int64, line string) bool) error {
	file, err := os.Open(s.path)
	if err != nil {
		return s.openErr(err)
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, 64*1024)
	var idx int64
	for {
		if idx%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		raw, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read log: %w", err)
		}
		line := strings.TrimRight(raw, "\r\n")
		if !fn(idx, line) {
			return nil
		}
		idx++
	}
}

func (s *FileSource) openErr(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("open log %s: %w", s.path, logview.ErrNotFound)
	}
	return fmt.Errorf("open log: %w", err)
}

// splitTimestamp peels a leading timestamp off line. It understands the
// "2006-01-02 15:04:05" prefix and a leading RFC 3339 field.
func splitTimestamp(line string) (time.Time, string) {
	if len(line) >= len(lineTimestampLayout) {
		if ts, err := time.ParseInLocation(lineTimestampLayout, line[:len(lineTimestampLayout)], time.Local); err == nil {
			return ts, strings.TrimLeft(line[len(lineTimestampLayout):], " \t")
		}
	}
	field, rest, _ := strings.Cut(line, " ")
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, field); err == nil {
			return ts, strings.TrimLeft(rest, " \t")
		}
	}
	return time.Time{}, line
}
