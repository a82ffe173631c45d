package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/five82/jobtail/internal/batchapi"
	"github.com/five82/jobtail/internal/logtail"
	"github.com/five82/jobtail/internal/logview"
)

// apiSource adapts the batch API client to logview.Source.
type apiSource struct {
	api batchapi.JobFetcher
}

func (s apiSource) Count(ctx context.Context, jobID int64) (int64, error) {
	n, err := s.api.CountJobLogs(ctx, jobID)
	if err != nil {
		return 0, mapAPIError(err)
	}
	return n, nil
}

func (s apiSource) Fetch(ctx context.Context, jobID int64, offset, limit int64) ([]logview.Entry, error) {
	logs, err := s.api.ListJobLogs(ctx, jobID, offset, limit)
	if err != nil {
		return nil, mapAPIError(err)
	}
	entries := make([]logview.Entry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, logview.Entry{
			Index:     l.Index,
			Timestamp: l.ParsedTime(),
			Message:   l.Message,
		})
	}
	return entries, nil
}

func mapAPIError(err error) error {
	if errors.Is(err, batchapi.ErrNotFound) {
		return fmt.Errorf("%w: %w", logview.ErrNotFound, err)
	}
	return err
}

// backend is what a command reads from: a log source, plus the API client
// when the job header can be polled.
type backend struct {
	source  logview.Source
	fetcher batchapi.JobFetcher
	label   string
}

func newBackend(apiBase, file, version string, timeout time.Duration) (backend, error) {
	if file != "" {
		src := logtail.NewFileSource(file)
		return backend{source: src, label: src.Path()}, nil
	}
	client, err := batchapi.NewClient(apiBase, timeout)
	if err != nil {
		return backend{}, fmt.Errorf("init api client: %w", err)
	}
	if version == "" {
		version = "dev"
	}
	client.SetUserAgent("jobtail/" + version)
	return backend{
		source:  apiSource{api: client},
		fetcher: client,
		label:   client.BaseURL(),
	}, nil
}
