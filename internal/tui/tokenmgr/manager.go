// Package tokenmgr is the interactive scope picker behind
// `excbridge token new`.
package tokenmgr

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/excbridge/internal/auth"
)

var (
	titleStyle   = lipgloss.NewStyle().MarginLeft(2)
	hintStyle    = lipgloss.NewStyle().MarginLeft(4).Foreground(lipgloss.Color("214"))
	resultStyle  = lipgloss.NewStyle().Margin(1, 0, 2, 4)
	impliedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// scopeHelp describes each scope on the picker.
var scopeHelp = map[string]string{
	auth.ScopeAll:        "Everything below, and any scope added later",
	auth.ScopeEXCRead:    "Read the execution context snapshot and dispatcher stats",
	auth.ScopeEXCWrite:   "Send commands to the execution context",
	auth.ScopeEventsRead: "Stream lifecycle events and read the journal",
}

type item struct {
	scope   string
	picked  bool
	implied bool
}

func (i item) Title() string {
	switch {
	case i.picked:
		return "[x] " + i.scope
	case i.implied:
		return impliedStyle.Render("[~] " + i.scope + " (implied)")
	default:
		return "[ ] " + i.scope
	}
}
func (i item) Description() string { return scopeHelp[i.scope] }
func (i item) FilterValue() string { return i.scope }

// Model lets the user toggle scopes. Scopes granted by another pick are
// shown as implied and left out of the result.
type Model struct {
	list   list.Model
	hint   string
	result []string
	state  pickerState
}

type pickerState int

const (
	picking pickerState = iota
	confirmed
	cancelled
)

// New returns the picker with nothing selected.
func New() Model {
	items := make([]list.Item, 0, len(auth.AllScopes))
	for _, s := range auth.AllScopes {
		items = append(items, item{scope: s})
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Token scopes: space toggles, enter confirms"
	l.Styles.Title = titleStyle
	l.SetFilteringEnabled(false)
	return Model{list: l}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.state = cancelled
			return m, tea.Quit
		case " ":
			m.toggle(m.list.Index())
			return m, nil
		case "enter":
			picked := m.picked()
			if len(picked) == 0 {
				m.hint = "pick at least one scope"
				return m, nil
			}
			m.result = picked
			m.state = confirmed
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// toggle flips the item at idx and recomputes which scopes are implied.
func (m *Model) toggle(idx int) {
	items := m.list.Items()
	if idx < 0 || idx >= len(items) {
		return
	}
	it := items[idx].(item)
	it.picked = !it.picked
	items[idx] = it
	m.hint = ""

	var picked []string
	for _, li := range items {
		if it := li.(item); it.picked {
			picked = append(picked, it.scope)
		}
	}
	for i, li := range items {
		it := li.(item)
		it.implied = !it.picked && impliedBy(it.scope, picked)
		items[i] = it
	}
	m.list.SetItems(items)
}

func impliedBy(scope string, picked []string) bool {
	for _, p := range picked {
		if p == auth.ScopeAll || (p == auth.ScopeEXCWrite && scope == auth.ScopeEXCRead) {
			return true
		}
	}
	return false
}

// picked returns the explicitly chosen scopes minus any another choice
// already grants.
func (m Model) picked() []string {
	var all []string
	for _, li := range m.list.Items() {
		if it := li.(item); it.picked {
			all = append(all, it.scope)
		}
	}
	out := make([]string, 0, len(all))
	for _, s := range all {
		if s != auth.ScopeAll && impliedBy(s, all) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (m Model) View() string {
	switch m.state {
	case cancelled:
		return resultStyle.Render("Cancelled.")
	case confirmed:
		return resultStyle.Render(fmt.Sprintf("Selected scopes: %s", strings.Join(m.result, ", ")))
	}
	view := "\n" + m.list.View()
	if m.hint != "" {
		view += "\n" + hintStyle.Render(m.hint)
	}
	return view
}

// Selected returns the confirmed scopes. ok is false when the picker was
// cancelled or is still open.
func (m Model) Selected() (scopes []string, ok bool) {
	return m.result, m.state == confirmed
}
