package ui

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/five82/jobtail/internal/logview"
	"github.com/five82/jobtail/internal/prefs"
	"github.com/five82/jobtail/internal/state"
)

// DefaultUIInterval is how often the job header is re-read from the store.
const DefaultUIInterval = time.Second

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller *logview.Controller
	Store      *state.Store // nil when there is no job header to show
	JobID      int64
	Source     string // API base or file path, shown in the header
	Prefs      prefs.Prefs
	PrefsPath  string
	Logger     *log.Logger
	Tick       time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	ctrl      *logview.Controller
	store     *state.Store
	jobID     int64
	source    string
	prefs     prefs.Prefs
	prefsPath string
	logger    *log.Logger
	tick      time.Duration

	// UI state
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	header      state.Snapshot
	logs        logview.Snapshot
	logViewport viewport.Model

	activating bool
	refreshing bool
	tailErr    error // last failed tail poll; cleared by the next append
	actionErr  error // last failed load older or manual refresh
	flash      string

	search searchState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:        ctx,
		ctrl:       opts.Controller,
		store:      opts.Store,
		jobID:      opts.JobID,
		source:     opts.Source,
		prefs:      opts.Prefs,
		prefsPath:  prefsPath,
		logger:     logger.WithPrefix("ui"),
		tick:       tick,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:      GetTheme(opts.Prefs.Theme),
		activating: true,
		search:     newSearchState(),
	}
	m.applyTheme()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.tick),
		activateCmd(m.ctx, m.ctrl, m.jobID),
		waitForUpdate(m.ctx, m.ctrl.Updates()),
		m.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchHeaderCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.showHelp {
			return m, nil
		}
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		m.afterScroll()
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeLogViewport()
		m.ready = true
		m.refreshLogContent()
		if m.logs.Follow == logview.Following {
			m.logViewport.GotoBottom()
		}
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.tick)}
		if m.store != nil {
			cmds = append(cmds, fetchHeaderCmd(m.store))
		}
		return m, tea.Batch(cmds...)

	case headerMsg:
		m.header = state.Snapshot(msg)
		return m, nil

	case activatedMsg:
		if errors.Is(msg.err, logview.ErrStale) {
			// A newer activation is still running.
			return m, nil
		}
		m.activating = false
		m.tailErr = nil
		m.actionErr = nil
		m.refreshLogContent()
		m.logViewport.GotoBottom()
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.logger.Warn("activate failed", "job", m.jobID, "err", msg.err)
		}
		return m, nil

	case logUpdateMsg:
		next := waitForUpdate(m.ctx, m.ctrl.Updates())
		if msg.Err != nil && msg.Generation != m.logs.Generation {
			return m, next
		}
		m.tailErr = msg.Err
		m.refreshLogContent()
		if msg.Err == nil && msg.ScrollToBottom {
			m.logViewport.GotoBottom()
		}
		return m, next

	case olderLoadedMsg:
		m.handleOlderLoaded(msg)
		return m, nil

	case refreshedMsg:
		m.refreshing = false
		if msg.err != nil {
			if !errors.Is(msg.err, logview.ErrStale) && !errors.Is(msg.err, context.Canceled) {
				m.actionErr = msg.err
			}
			return m, nil
		}
		m.actionErr = nil
		m.tailErr = nil
		m.refreshLogContent()
		if msg.result.ScrollToBottom {
			m.logViewport.GotoBottom()
		}
		m.flash = refreshFlash(msg.result)
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderLogs(),
		m.renderStatusBar(),
		m.renderFooter(),
	)
}

// busy reports whether a request the user is waiting on is in flight.
func (m Model) busy() bool {
	return m.activating || m.refreshing || m.logs.LoadingOlder
}

// applyTheme pushes theme colors into the bubbles components.
func (m *Model) applyTheme() {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
	m.help.Styles = help.Styles{
		ShortKey:       styles.AccentText,
		ShortDesc:      styles.MutedText,
		ShortSeparator: styles.FaintText,
		FullKey:        styles.AccentText,
		FullDesc:       styles.MutedText,
		FullSeparator:  styles.FaintText,
		Ellipsis:       styles.FaintText,
	}
	m.search.input.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
	m.search.input.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Text))
}

func (m *Model) savePrefs() {
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("save prefs failed", "path", m.prefsPath, "err", err)
	}
}

// Messages

type tickMsg time.Time

type headerMsg state.Snapshot

type activatedMsg struct{ err error }

type logUpdateMsg logview.Update

type olderLoadedMsg struct {
	added int
	err   error
}

type refreshedMsg struct {
	result logview.TickResult
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchHeaderCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return headerMsg(store.Snapshot())
	}
}

func activateCmd(ctx context.Context, ctrl *logview.Controller, jobID int64) tea.Cmd {
	return func() tea.Msg {
		return activatedMsg{err: ctrl.Activate(ctx, jobID)}
	}
}

func reloadCmd(ctx context.Context, ctrl *logview.Controller) tea.Cmd {
	return func() tea.Msg {
		return activatedMsg{err: ctrl.Reload(ctx)}
	}
}

func loadOlderCmd(ctx context.Context, ctrl *logview.Controller) tea.Cmd {
	return func() tea.Msg {
		n, err := ctrl.LoadOlder(ctx)
		return olderLoadedMsg{added: n, err: err}
	}
}

func refreshCmd(ctx context.Context, ctrl *logview.Controller) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.RefreshNow(ctx)
		return refreshedMsg{result: res, err: err}
	}
}

// waitForUpdate blocks until the controller reports a tail poll. The model
// re-arms it after every update.
func waitForUpdate(ctx context.Context, updates <-chan logview.Update) tea.Cmd {
	return func() tea.Msg {
		select {
		case u := <-updates:
			return logUpdateMsg(u)
		case <-ctx.Done():
			return nil
		}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
