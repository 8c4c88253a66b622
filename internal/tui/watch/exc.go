package watch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/excbridge/internal/events"
	"github.com/mattjoyce/excbridge/internal/exc"
)

// hookOrder is the display order of the workload hooks.
var hookOrder = []string{"onSetup", "onConfigure", "onSuspend", "onResume", "onRun", "onMonitor", "onRelease"}

// lifecycle is the happy path drawn as the state track.
var lifecycle = []exc.State{
	exc.StateRegistered,
	exc.StateConfigured,
	exc.StateRunning,
	exc.StateDone,
	exc.StateReleasing,
	exc.StateTerminated,
}

const maxTransitions = 6

// EXCState is what the watch knows about the execution context: the last
// polled snapshot plus tallies built from the notification stream.
type EXCState struct {
	Snapshot    exc.Snapshot
	Known       bool
	Hooks       map[string]int
	Transitions []string
}

func newEXCState() EXCState {
	return EXCState{Hooks: make(map[string]int)}
}

// apply folds one lifecycle notification into the tallies.
func (s *EXCState) apply(e events.Event) {
	if e.Type != events.LifecycleEvent {
		return
	}
	var n events.Notification
	if err := json.Unmarshal(e.Data, &n); err != nil {
		return
	}

	switch {
	case strings.HasSuffix(n.DebugTag, " called"):
		s.Hooks[strings.TrimSuffix(n.DebugTag, " called")]++
	case strings.HasPrefix(n.DebugTag, "state "):
		s.Transitions = append(s.Transitions, strings.TrimPrefix(n.DebugTag, "state "))
		if len(s.Transitions) > maxTransitions {
			s.Transitions = s.Transitions[len(s.Transitions)-maxTransitions:]
		}
	}
}

func renderTrack(current string, theme Theme) string {
	parts := make([]string, 0, len(lifecycle)+1)
	for _, st := range lifecycle {
		name := st.String()
		if name == current {
			parts = append(parts, theme.State(name).Bold(true).Render("["+name+"]"))
		} else {
			parts = append(parts, theme.Dim.Render(name))
		}
	}
	if current == exc.StateSuspended.String() {
		parts = append(parts, theme.State(current).Render("(SUSPENDED)"))
	}
	return strings.Join(parts, theme.Dim.Render(" → "))
}

func hookTable(hooks map[string]int) table.Model {
	rows := make([]table.Row, 0, len(hookOrder))
	for _, h := range hookOrder {
		rows = append(rows, table.Row{h, strconv.Itoa(hooks[h])})
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Hook", Width: 12},
			{Title: "Calls", Width: 8},
		}),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	st.Selected = lipgloss.NewStyle()
	t.SetStyles(st)
	return t
}

func renderEXC(s EXCState, theme Theme, width int) string {
	innerWidth := width - 4

	if !s.Known {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("EXECUTION CONTEXT"),
			theme.Dim.Render("  Waiting for snapshot..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	snap := s.Snapshot
	flag := func(name string, on bool) string {
		if on {
			return theme.Healthy.Render(name)
		}
		return theme.Dim.Render(name)
	}

	summary := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf(" %s  %s  recipe %s",
			theme.Header.Render(snap.Name),
			theme.State(snap.State).Render(snap.State),
			theme.Dim.Render(snap.Recipe)),
		" "+renderTrack(snap.State, theme),
		fmt.Sprintf(" %s %s %s %s",
			flag("registered", snap.Registered),
			flag("enabled", snap.Enabled),
			flag("started", snap.Started),
			flag("done", snap.Done)),
		fmt.Sprintf(" uid %d  awm %d  cps %.2f", snap.UID, snap.AWM, snap.CPS),
		fmt.Sprintf(" cycles %d  last cycle %dµs  hook faults %d", snap.Cycles, snap.CycleTimeUS, snap.HookFaults),
	)

	var transitions []string
	for i := len(s.Transitions) - 1; i >= 0; i-- {
		from, to, _ := strings.Cut(s.Transitions[i], " -> ")
		transitions = append(transitions, fmt.Sprintf(" %s %s %s",
			theme.State(from).Render(from), theme.Dim.Render("→"), theme.State(to).Render(to)))
	}
	if len(transitions) == 0 {
		transitions = []string{theme.Dim.Render(" no transitions seen")}
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		summary,
		"",
		theme.Header.Render(" Transitions"),
		strings.Join(transitions, "\n"),
	)
	right := hookTable(s.Hooks).View()

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("EXECUTION CONTEXT"),
		lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(innerWidth-26).Render(left),
			right,
		),
	)
	return theme.Border.Width(innerWidth).Render(content)
}
