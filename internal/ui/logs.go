package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/jobtail/internal/logview"
)

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.search.active {
		return m.handleSearchInput(msg)
	}

	m.flash = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.applyTheme()
		m.savePrefs()
		m.refreshLogContent()
		return m, nil

	case key.Matches(msg, m.keys.AutoRefresh):
		enabled := !m.ctrl.AutoRefresh()
		m.ctrl.SetAutoRefresh(enabled)
		m.prefs.SetAutoRefresh(enabled)
		m.savePrefs()
		m.logs.AutoRefresh = enabled
		m.flash = "auto-refresh " + onOff(enabled)
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.refreshing || m.activating {
			return m, nil
		}
		m.refreshing = true
		return m, tea.Batch(refreshCmd(m.ctx, m.ctrl), m.spinner.Tick)

	case key.Matches(msg, m.keys.Reload):
		m.activating = true
		m.clearSearch()
		return m, tea.Batch(reloadCmd(m.ctx, m.ctrl), m.spinner.Tick)

	case key.Matches(msg, m.keys.LoadOlder):
		return m.loadOlder()

	case key.Matches(msg, m.keys.Search):
		m.search.begin()
		return m, nil

	case key.Matches(msg, m.keys.NextMatch):
		m.jumpToMatch(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevMatch):
		m.jumpToMatch(-1)
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		if m.search.query != "" {
			m.clearSearch()
			m.refreshLogContent()
		}
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.ctrl.ScrollToBottom()
		m.logViewport.GotoBottom()
		m.logs.Follow = logview.Following
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.afterScroll()
		return m, nil
	}

	// Scrolling up past the first loaded line asks for older entries.
	atTop := m.logViewport.AtTop()
	switch {
	case key.Matches(msg, m.keys.Up):
		if atTop {
			return m.loadOlder()
		}
		m.logViewport.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		m.logViewport.LineDown(1)
	case key.Matches(msg, m.keys.PageUp):
		if atTop {
			return m.loadOlder()
		}
		m.logViewport.ViewUp()
	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.ViewDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		if atTop {
			return m.loadOlder()
		}
		m.logViewport.HalfViewUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfViewDown()
	default:
		return m, nil
	}
	m.afterScroll()
	return m, nil
}

// afterScroll reports the viewport position to the follow tracker. Lines are
// the scroll unit.
func (m *Model) afterScroll() {
	m.logs.Follow = m.ctrl.OnScroll(
		m.logViewport.TotalLineCount(),
		m.logViewport.YOffset,
		m.logViewport.Height,
	)
}

func (m Model) loadOlder() (tea.Model, tea.Cmd) {
	if m.activating || !m.logs.Ready || m.logs.LoadingOlder || !m.logs.HasMoreBackward {
		return m, nil
	}
	m.logs.LoadingOlder = true
	return m, tea.Batch(loadOlderCmd(m.ctx, m.ctrl), m.spinner.Tick)
}

func (m *Model) handleOlderLoaded(msg olderLoadedMsg) {
	switch {
	case errors.Is(msg.err, logview.ErrStale), errors.Is(msg.err, context.Canceled):
	case msg.err != nil:
		m.actionErr = msg.err
	default:
		m.actionErr = nil
	}
	// refreshLogContent shifts the offset by however many lines landed above.
	m.refreshLogContent()
	if msg.added > 0 {
		m.flash = fmt.Sprintf("loaded %d older", msg.added)
	}
}

func (m *Model) resizeLogViewport() {
	// Header, status bar, footer and the box borders.
	w := max(1, m.width-4)
	h := max(1, m.height-5)
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(w, h)
	}
	m.logViewport.Width = w
	m.logViewport.Height = h
}

// refreshLogContent re-reads the controller and re-renders the pane. Lines
// prepended above the viewport or trimmed from the top move the offset so the
// same entries stay on screen.
func (m *Model) refreshLogContent() {
	prev := m.logs
	m.logs = m.ctrl.Snapshot()

	shift := 0
	if prev.Generation == m.logs.Generation {
		shift = lineShift(prev.Entries, m.logs.Entries)
	}

	m.search.match(m.logs.Entries)
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.LogBg))
	m.logViewport.SetContent(m.renderLogContent())
	if shift != 0 {
		m.logViewport.SetYOffset(m.logViewport.YOffset + shift)
	}
}

// lineShift returns how many lines the old first entry moved down.
func lineShift(before, after []logview.Entry) int {
	if len(before) == 0 || len(after) == 0 {
		return 0
	}
	oldFirst, newFirst := before[0].Index, after[0].Index
	shift := 0
	for _, e := range after {
		if e.Index >= oldFirst {
			break
		}
		shift++
	}
	for _, e := range before {
		if e.Index >= newFirst {
			break
		}
		shift--
	}
	return shift
}

// renderLogs renders the bordered log pane.
func (m Model) renderLogs() string {
	return m.renderBox(m.logTitle(), m.logViewport.View(), m.width, m.height-3)
}

func (m Model) logTitle() string {
	title := fmt.Sprintf("Job %d log", m.jobID)
	if m.store == nil {
		title = "File log"
	}
	if earlier := m.logs.TotalKnown - int64(len(m.logs.Entries)); m.logs.HasMoreBackward && earlier > 0 {
		title += fmt.Sprintf(" · %d earlier (o to load)", earlier)
	}
	return title
}

// renderLogContent renders one line per entry.
func (m Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.LogBg)
	styles := m.theme.Styles()
	width := m.logViewport.Width

	if len(m.logs.Entries) == 0 {
		var msg string
		style := styles.MutedText
		switch {
		case m.activating:
			msg = "Loading log..."
		case m.logs.Err != nil:
			msg, style = describeError(m.logs.Err), styles.DangerText
		default:
			msg = "No log entries yet"
		}
		return bg.FillLine(bg.Render(msg, style), width)
	}

	matchBg := NewBgStyle(m.theme.MatchBg)
	var b strings.Builder
	for i, e := range m.logs.Entries {
		lineBg := bg
		if m.search.isMatch(i) {
			lineBg = matchBg
		}
		ts := FormatTimestamp(e.Timestamp)
		msg := truncate(cleanMessage(e.Message), width-len(ts)-1)
		line := lineBg.Render(ts, styles.FaintText) + lineBg.Space() +
			lineBg.Render(msg, m.levelStyle(styles, messageLevel(msg)))
		b.WriteString(lineBg.FillLine(line, width))
		if i < len(m.logs.Entries)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) levelStyle(styles Styles, level string) lipgloss.Style {
	switch level {
	case "WARN":
		return styles.WarningText
	case "ERROR", "FATAL":
		return styles.DangerText
	case "DEBUG":
		return styles.InfoText
	default:
		return styles.Text
	}
}

// renderBox draws content in a rounded border with title in the top edge.
func (m Model) renderBox(title, content string, width, height int) string {
	border := lipgloss.RoundedBorder()
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.BorderFocus))

	label := " " + truncate(title, max(0, width-6)) + " "
	fill := max(0, width-3-lipgloss.Width(label))
	top := borderStyle.Render(border.TopLeft+border.Top) +
		lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Text)).Bold(true).Render(label) +
		borderStyle.Render(strings.Repeat(border.Top, fill)+border.TopRight)

	body := lipgloss.NewStyle().
		Border(border, false, true, true, true).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Background(lipgloss.Color(m.theme.LogBg)).
		Padding(0, 1).
		Width(max(0, width-2)).
		Height(max(0, height-2)).
		Render(content)
	return top + "\n" + body
}

// renderStatusBar renders "loaded / total", follow state and errors.
func (m Model) renderStatusBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if m.search.active {
		return styles.Header.Width(m.width).Render(m.search.input.View())
	}

	var parts []string
	if m.busy() {
		label := "loading"
		switch {
		case m.refreshing:
			label = "refreshing"
		case m.logs.LoadingOlder:
			label = "loading older"
		}
		parts = append(parts, bg.Render(m.spinner.View(), styles.AccentText)+bg.Space()+bg.Render(label, styles.AccentText))
	}

	parts = append(parts, bg.Render(fmt.Sprintf("%d / %d", len(m.logs.Entries), m.logs.TotalKnown), styles.Text))

	if m.logs.Follow == logview.Following {
		parts = append(parts, bg.Render("● following", styles.SuccessText))
	} else {
		parts = append(parts, bg.Render("detached", styles.WarningText)+bg.Space()+bg.Render("(G to follow)", styles.FaintText))
	}

	autoStyle := styles.MutedText
	if !m.logs.AutoRefresh {
		autoStyle = styles.WarningText
	}
	parts = append(parts, bg.Render("auto-refresh "+onOff(m.logs.AutoRefresh), autoStyle))

	if m.search.query != "" {
		parts = append(parts, bg.Render(m.search.status(), styles.AccentText))
	}
	if err := m.currentError(); err != nil {
		parts = append(parts, bg.Render(describeError(err), styles.DangerText))
	} else if m.flash != "" {
		parts = append(parts, bg.Render(m.flash, styles.MutedText))
	}

	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	hint := m.help.View(m.keys) + "  " + styles.FaintText.Render("theme:"+m.theme.Name)
	return styles.Header.Width(m.width).Render(hint)
}

// currentError picks the most relevant error to show.
func (m Model) currentError() error {
	switch {
	case m.actionErr != nil:
		return m.actionErr
	case m.logs.Err != nil:
		return m.logs.Err
	default:
		return m.tailErr
	}
}

// describeError shortens an error for the status bar.
func describeError(err error) string {
	if errors.Is(err, logview.ErrNotFound) {
		return "job not found"
	}
	var tf *logview.TransientFetchError
	if errors.As(err, &tf) {
		return fmt.Sprintf("%s failed: %s", tf.Op, classifyConnectionError(tf.Err))
	}
	return err.Error()
}

func refreshFlash(res logview.TickResult) string {
	switch {
	case res.Shrunk:
		return "remote log shrank"
	case res.Appended > 0:
		return fmt.Sprintf("+%d new", res.Appended)
	default:
		return "up to date"
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
