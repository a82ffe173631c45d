// Package app is the composition root for jobtail.
//
// # Overview
//
// Run and Dump wire configuration, logging, the log source, the logview
// Controller and the job-header poller together. Run hands the controller to
// the TUI; Dump prints the window to a writer.
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()          Read ~/.config/jobtail/config.toml
//	       ├─────> openLogFile()          charmbracelet/log to log_file
//	       ├─────> newBackend()           batchapi client or logtail file
//	       ├─────> logview.NewController  Window, tail poller, follow state
//	       └─────> errgroup
//	                ├─> runJobPoller()    GetJob → state.Store
//	                └─> ui.Run()          TUI (blocks until quit)
//
// # Sources
//
// With an API base the log is read through batchapi and adapted to
// logview.Source by apiSource, which maps batchapi.ErrNotFound onto
// logview.ErrNotFound. With a file path the logtail.FileSource is used and
// there is no job header to poll.
//
// # Job Header Polling
//
// The header poller refreshes the job at poll_interval_ms. Consecutive
// failures back off exponentially, capped at 30 seconds. Polling stops once
// the job reaches a terminal status.
//
// # Errors
//
// Config, log file and client setup failures are returned from Run. Once the
// TUI is up, fetch failures are shown in the status bar and logged; they never
// end the program.
package app
