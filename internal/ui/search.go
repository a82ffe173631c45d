package ui

import (
	"fmt"
	"regexp"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/jobtail/internal/logview"
)

// searchState highlights loaded lines that match a query. It only looks at
// the current window; nothing is fetched to satisfy a search.
type searchState struct {
	input   textinput.Model
	active  bool // typing a query
	query   string
	re      *regexp.Regexp
	matches []int // line numbers in the window
	indexes []uint64 // entry Index of each match
	matched map[int]struct{}
	current int

	// anchor is the entry Index of the current match. Lines move when older
	// entries are prepended or the window is trimmed; the entry does not.
	anchor    uint64
	hasAnchor bool
}

func newSearchState() searchState {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "search loaded lines"
	ti.CharLimit = 100
	return searchState{input: ti, current: -1}
}

func (s *searchState) begin() {
	s.active = true
	s.input.SetValue("")
	s.input.Focus()
}

func (s *searchState) end() {
	s.active = false
	s.input.Blur()
}

// setQuery compiles q case-insensitively. Invalid patterns are matched
// literally.
func (s *searchState) setQuery(q string) {
	s.query = q
	s.re = nil
	s.current = -1
	s.hasAnchor = false
	if q == "" {
		return
	}
	re, err := regexp.Compile("(?i)" + q)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(q))
	}
	s.re = re
}

// match recomputes matches against entries and keeps the current match on
// the same entry.
func (s *searchState) match(entries []logview.Entry) {
	s.matches = s.matches[:0]
	s.indexes = s.indexes[:0]
	s.matched = nil
	if s.re == nil {
		s.current = -1
		return
	}
	s.matched = make(map[int]struct{})
	for i, e := range entries {
		if s.re.MatchString(e.Message) {
			s.matches = append(s.matches, i)
			s.indexes = append(s.indexes, e.Index)
			s.matched[i] = struct{}{}
		}
	}
	if !s.hasAnchor {
		s.current = min(s.current, len(s.matches)-1)
		return
	}
	// The first match at or after the anchor; the last one if it was trimmed
	// past the end.
	s.current = len(s.matches) - 1
	for i, idx := range s.indexes {
		if idx >= s.anchor {
			s.current = i
			break
		}
	}
}

// setCurrent selects match i and anchors it to its entry.
func (s *searchState) setCurrent(i int) {
	s.current = i
	s.hasAnchor = i >= 0 && i < len(s.indexes)
	if s.hasAnchor {
		s.anchor = s.indexes[i]
	}
}

func (s searchState) isMatch(line int) bool {
	_, ok := s.matched[line]
	return ok
}

func (s searchState) status() string {
	if len(s.matches) == 0 {
		return "/" + s.query + " no matches"
	}
	return fmt.Sprintf("/%s %d/%d", s.query, s.current+1, len(s.matches))
}

// handleSearchInput routes keys to the search prompt.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.search.end()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		m.search.end()
		m.search.setQuery(m.search.input.Value())
		m.refreshLogContent()
		if len(m.search.matches) > 0 {
			// Start from the newest match.
			m.search.setCurrent(len(m.search.matches) - 1)
			m.scrollToLine(m.search.matches[m.search.current])
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	return m, cmd
}

func (m *Model) clearSearch() {
	m.search.end()
	m.search.setQuery("")
	m.search.match(nil)
}

// jumpToMatch moves dir matches forward or back, wrapping around.
func (m *Model) jumpToMatch(dir int) {
	n := len(m.search.matches)
	if n == 0 {
		return
	}
	m.search.setCurrent(((m.search.current+dir)%n + n) % n)
	m.scrollToLine(m.search.matches[m.search.current])
}

// scrollToLine centers line in the viewport.
func (m *Model) scrollToLine(line int) {
	m.logViewport.SetYOffset(max(0, line-m.logViewport.Height/2))
	m.afterScroll()
}
