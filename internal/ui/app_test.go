package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/five82/jobtail/internal/logtail"
	"github.com/five82/jobtail/internal/logview"
	"github.com/five82/jobtail/internal/prefs"
)

// newTestModel returns a sized Model attached to a 300-line log file with
// auto-refresh off, so nothing changes behind the test's back.
func newTestModel(t *testing.T) (Model, *logview.Controller, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "job.log")
	var b strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&b, "2024-03-01 10:%02d:%02d line %d\n", i/60, i%60, i)
	}
	if err := os.WriteFile(logPath, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctrl := logview.NewController(logtail.NewFileSource(logPath), logview.Options{
		InitialLoadCount: 100,
		LoadMoreCount:    50,
		FollowThreshold:  2,
	})
	ctrl.SetAutoRefresh(false)
	t.Cleanup(ctrl.Deactivate)

	prefsPath := filepath.Join(dir, "prefs.toml")
	ctx := context.Background()
	m := New(Options{
		Context:    ctx,
		Controller: ctrl,
		JobID:      1,
		Source:     logPath,
		Prefs:      prefs.Prefs{Theme: "Dracula"},
		PrefsPath:  prefsPath,
	})

	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m = update(t, m, activateCmd(ctx, ctrl, 1)())
	return m, ctrl, prefsPath
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_ActivationFillsViewportAtBottom(t *testing.T) {
	m, _, _ := newTestModel(t)

	if m.activating {
		t.Fatalf("activating = true after activatedMsg")
	}
	if got := len(m.logs.Entries); got != 100 {
		t.Fatalf("loaded %d entries, want 100", got)
	}
	if got := m.logViewport.TotalLineCount(); got != 100 {
		t.Fatalf("viewport lines = %d, want one per entry", got)
	}
	if !m.logViewport.AtBottom() {
		t.Fatalf("viewport not at bottom after activation (offset %d)", m.logViewport.YOffset)
	}
	if m.logs.Follow != logview.Following {
		t.Fatalf("Follow = %v, want following", m.logs.Follow)
	}

	view := ansi.Strip(m.View())
	for _, want := range []string{"File log", "200 earlier", "100 / 300", "following", "line 299"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_ScrollDetachesAndBottomReattaches(t *testing.T) {
	m, _, _ := newTestModel(t)

	for i := 0; i < 10; i++ {
		m = update(t, m, keyPress("k"))
	}
	if m.logs.Follow != logview.Detached {
		t.Fatalf("Follow = %v after scrolling up, want detached", m.logs.Follow)
	}

	m = update(t, m, keyPress("G"))
	if m.logs.Follow != logview.Following {
		t.Fatalf("Follow = %v after G, want following", m.logs.Follow)
	}
	if !m.logViewport.AtBottom() {
		t.Fatalf("viewport not at bottom after G")
	}
}

func TestModel_LoadOlderKeepsVisibleLines(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	m = update(t, m, keyPress("g"))
	if m.logViewport.YOffset != 0 {
		t.Fatalf("YOffset = %d after g, want 0", m.logViewport.YOffset)
	}

	next, cmd := m.Update(keyPress("o"))
	m = next.(Model)
	if cmd == nil || !m.logs.LoadingOlder {
		t.Fatalf("o should start a load (cmd=%v loading=%v)", cmd != nil, m.logs.LoadingOlder)
	}

	m = update(t, m, loadOlderCmd(context.Background(), ctrl)())
	if got := len(m.logs.Entries); got != 150 {
		t.Fatalf("entries = %d after load older, want 150", got)
	}
	if m.logViewport.YOffset != 50 {
		t.Fatalf("YOffset = %d, want 50 so the old first line stays on top", m.logViewport.YOffset)
	}
	if m.logs.LoadingOlder {
		t.Fatalf("LoadingOlder still set")
	}
}

func TestModel_ScrollUpAtTopLoadsOlder(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = update(t, m, keyPress("g"))

	next, cmd := m.Update(keyPress("up"))
	m = next.(Model)
	if cmd == nil || !m.logs.LoadingOlder {
		t.Fatalf("scrolling up at the top should load older entries")
	}
}

func TestModel_AutoRefreshTogglePersists(t *testing.T) {
	m, ctrl, prefsPath := newTestModel(t)

	m = update(t, m, keyPress("a"))
	if !ctrl.AutoRefresh() || !m.logs.AutoRefresh {
		t.Fatalf("auto-refresh not enabled after a")
	}
	loaded, _ := prefs.Load(prefsPath)
	if loaded.AutoRefresh == nil || !*loaded.AutoRefresh {
		t.Fatalf("prefs auto_refresh = %v, want true", loaded.AutoRefresh)
	}

	m = update(t, m, keyPress("a"))
	if ctrl.AutoRefresh() || ctrl.Polling() {
		t.Fatalf("auto-refresh still on after second a")
	}
	loaded, _ = prefs.Load(prefsPath)
	if loaded.AutoRefreshEnabled() {
		t.Fatalf("prefs auto_refresh enabled, want false")
	}
}

func TestModel_CycleThemePersists(t *testing.T) {
	m, _, prefsPath := newTestModel(t)

	m = update(t, m, keyPress("T"))
	if m.theme.Name != "Slate" {
		t.Fatalf("theme = %q, want Slate", m.theme.Name)
	}
	loaded, _ := prefs.Load(prefsPath)
	if loaded.Theme != "Slate" {
		t.Fatalf("saved theme = %q, want Slate", loaded.Theme)
	}
}

func TestModel_SearchHighlightsAndJumps(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = update(t, m, keyPress("/"))
	if !m.search.active {
		t.Fatalf("search prompt not active after /")
	}
	// Typing q must go to the prompt, not quit.
	m = update(t, m, keyPress("q"))
	if !m.search.active || m.search.input.Value() != "q" {
		t.Fatalf("q should be typed into the prompt, got active=%v value=%q", m.search.active, m.search.input.Value())
	}
	m.search.input.SetValue("line 25[0-9]")
	m = update(t, m, keyPress("enter"))

	if m.search.active {
		t.Fatalf("search prompt still active after enter")
	}
	if got := len(m.search.matches); got != 10 {
		t.Fatalf("matches = %d, want 10", got)
	}
	if m.search.current != 9 {
		t.Fatalf("current match = %d, want the newest (9)", m.search.current)
	}
	if m.logs.Follow != logview.Detached {
		t.Fatalf("jumping to a match should detach, got %v", m.logs.Follow)
	}

	m = update(t, m, keyPress("n"))
	if m.search.current != 0 {
		t.Fatalf("n should wrap to the first match, got %d", m.search.current)
	}

	m = update(t, m, keyPress("esc"))
	if m.search.query != "" || len(m.search.matches) != 0 {
		t.Fatalf("esc should clear the search")
	}
}

func TestModel_ReloadRebuildsWindow(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	m = update(t, m, keyPress("g"))
	m = update(t, m, loadOlderCmd(context.Background(), ctrl)())

	next, cmd := m.Update(keyPress("c"))
	m = next.(Model)
	if cmd == nil || !m.activating {
		t.Fatalf("c should start a reload")
	}
	m = update(t, m, reloadCmd(context.Background(), ctrl)())
	if got := len(m.logs.Entries); got != 100 {
		t.Fatalf("entries after reload = %d, want 100", got)
	}
	if !m.logViewport.AtBottom() {
		t.Fatalf("viewport not at bottom after reload")
	}
}

func TestModel_HelpOverlay(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = update(t, m, keyPress("?"))
	if !m.showHelp {
		t.Fatalf("? should open help")
	}
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "Keyboard Shortcuts") || !strings.Contains(view, "load older") {
		t.Fatalf("help overlay missing content")
	}
	m = update(t, m, keyPress("x"))
	if m.showHelp {
		t.Fatalf("any key should close help")
	}
}

func TestModel_MissingFileShowsError(t *testing.T) {
	ctrl := logview.NewController(logtail.NewFileSource(filepath.Join(t.TempDir(), "gone.log")), logview.Options{})
	ctrl.SetAutoRefresh(false)
	t.Cleanup(ctrl.Deactivate)

	ctx := context.Background()
	m := New(Options{Context: ctx, Controller: ctrl, JobID: 5, PrefsPath: filepath.Join(t.TempDir(), "p.toml")})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})
	m = update(t, m, activateCmd(ctx, ctrl, 5)())

	if m.activating {
		t.Fatalf("activating should end on failure")
	}
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "job not found") {
		t.Fatalf("view should report the missing log:\n%s", view)
	}
}

func TestModel_SearchMatchFollowsEntryAfterLoadOlder(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	// Lines ending in 0: entries 200, 210, ... 290 in the initial window.
	m = update(t, m, keyPress("/"))
	m.search.input.SetValue("0$")
	m = update(t, m, keyPress("enter"))
	m = update(t, m, keyPress("n"))
	if got := m.logs.Entries[m.search.matches[m.search.current]].Index; got != 200 {
		t.Fatalf("current match entry = %d, want 200", got)
	}

	m = update(t, m, loadOlderCmd(context.Background(), ctrl)())
	if got := len(m.search.matches); got != 15 {
		t.Fatalf("matches after load older = %d, want 15", got)
	}
	if got := m.logs.Entries[m.search.matches[m.search.current]].Index; got != 200 {
		t.Fatalf("current match entry after load older = %d, want 200", got)
	}

	m = update(t, m, keyPress("n"))
	if got := m.logs.Entries[m.search.matches[m.search.current]].Index; got != 210 {
		t.Fatalf("n after load older went to entry %d, want 210", got)
	}
}

func TestModel_TailErrorClearsOnRecovery(t *testing.T) {
	m, _, _ := newTestModel(t)
	boom := &logview.TransientFetchError{Op: "count", JobID: 1, Err: fmt.Errorf("connection refused")}

	m = update(t, m, logUpdateMsg{JobID: 1, Generation: m.logs.Generation, Err: boom})
	if !strings.Contains(ansi.Strip(m.renderStatusBar()), "count failed") {
		t.Fatalf("status bar should show the tail error")
	}

	m = update(t, m, logUpdateMsg{JobID: 1, Generation: m.logs.Generation})
	if m.tailErr != nil {
		t.Fatalf("tailErr = %v after a clean update, want nil", m.tailErr)
	}
	if strings.Contains(ansi.Strip(m.renderStatusBar()), "failed") {
		t.Fatalf("status bar still shows the tail error")
	}
}

func TestLogTitle_CountsEarlierEntriesAcrossGaps(t *testing.T) {
	m := Model{logs: logview.Snapshot{
		TotalKnown:      120,
		HasMoreBackward: true,
		Entries:         []logview.Entry{{Index: 500}, {Index: 900}},
	}}
	if got, want := m.logTitle(), "File log · 118 earlier (o to load)"; got != want {
		t.Fatalf("logTitle = %q, want %q", got, want)
	}
}
