// Package ui provides the Bubble Tea interface for jobtail.
//
// # Layout
//
//	┌ header: job name, status chip, id, submitted time, log-expired flag ┐
//	╭─ Job 42 log · 150 earlier (o to load) ─────────────────────────────╮
//	│ 03-01 10:00:01 message ...                                          │
//	│ ...                                                                 │
//	╰─────────────────────────────────────────────────────────────────────╯
//	  status: loaded / total • following • auto-refresh on • errors
//	  footer: key hints (bubbles/help)
//
// # Data Flow
//
// The Model never fetches logs itself. It asks the logview.Controller to
// activate, load older entries, refresh or reload, and re-renders from
// Controller.Snapshot when a command finishes or the controller publishes an
// Update. The job header comes from state.Store on a one-second tick.
//
// Each entry is one viewport line. After every scroll the viewport's line
// count, offset and height go to Controller.OnScroll, which decides whether
// the pane keeps following the tail. When older entries are prepended the
// offset moves down by the same number of lines so the visible text stays put.
//
// # Keys
//
// j/k, pgup/pgdn, ctrl+u/d and g/G scroll; scrolling up at the top or pressing
// o loads older entries. a toggles auto-refresh, r polls once, c clears and
// reloads, / searches the loaded window, T cycles the theme and ? shows help.
// Theme and auto-refresh choices are saved to prefs.
package ui
