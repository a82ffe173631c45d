// Package state holds the job header shown above the log pane.
//
// # Overview
//
// The job poller in package app writes the latest batchapi.Job into a Store;
// the UI reads a Snapshot on every render. The log window itself is not kept
// here. It lives in logview, which has its own locking and generations.
//
//	Producer (job poller):         Consumer (UI):
//	┌────────────────┐            ┌─────────────────┐
//	│ GetJob()       │            │                 │
//	│      ↓         │            │                 │
//	│ store.Update() │───────────→│ store.Snapshot()│
//	│      ↓         │  (RWMutex) │      ↓          │
//	│  wait/backoff  │            │  render header  │
//	└────────────────┘            └─────────────────┘
//
// # Failure Tracking
//
// A failed update keeps the previous job and records the error. Two or more
// consecutive failures make IsOffline report true so the header can show the
// server as unreachable. A not-found error sets Missing, which the UI shows
// as a deleted job rather than a network problem.
package state
