package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/jobtail/internal/batchapi"
	"github.com/five82/jobtail/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

func TestRunJobPoller_StopsWhenJobFinishes(t *testing.T) {
	api := &fakeAPI{job: &batchapi.Job{ID: 3, Name: "build", Status: batchapi.StatusFinished}}
	store := &state.Store{}

	done := make(chan error, 1)
	go func() {
		done <- runJobPoller(context.Background(), store, api, 3, 10*time.Millisecond, log.New(io.Discard))
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runJobPoller returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runJobPoller did not stop for a finished job")
	}
	if api.getCalls != 1 {
		t.Fatalf("GetJob calls = %d, want 1", api.getCalls)
	}
	if snap := store.Snapshot(); !snap.Finished() || snap.Job.Name != "build" {
		t.Fatalf("snapshot = %+v, want finished build job", snap)
	}
}

func TestRunJobPoller_RecordsFailuresUntilCancelled(t *testing.T) {
	api := &fakeAPI{jobErr: errors.New("connection refused")}
	store := &state.Store{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- runJobPoller(ctx, store, api, 3, 10*time.Millisecond, log.New(io.Discard))
	}()

	deadline := time.Now().Add(2 * time.Second)
	for store.Snapshot().ConsecutiveFailures < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("failures = %d, want >= 2", store.Snapshot().ConsecutiveFailures)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !store.Snapshot().IsOffline() {
		t.Fatalf("IsOffline() = false after repeated failures")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runJobPoller returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runJobPoller did not stop after cancel")
	}
}
