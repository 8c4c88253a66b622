// Package watch implements `excbridge watch`, a terminal view of the
// execution context and its lifecycle notifications.
package watch

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/excbridge/internal/exc"
)

// Theme holds every style the watch TUI renders with.
type Theme struct {
	// states colors each EXC lifecycle state; see State.
	states  map[string]lipgloss.Style
	Unknown lipgloss.Style

	// Health line
	Healthy lipgloss.Style
	Alert   lipgloss.Style

	// Panels
	Border    lipgloss.Style
	Title     lipgloss.Style
	Header    lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style
	Hook      lipgloss.Style

	// Indicators
	ActivityOn  lipgloss.Style
	ActivityOff lipgloss.Style
	Rate        lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")
	color := func(hex string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
	}

	return Theme{
		states: map[string]lipgloss.Style{
			exc.StateUnregistered.String(): color("#666666"),
			exc.StateRegistered.String():   color("#61AFEF"),
			exc.StateConfigured.String():   color("#56B6C2"),
			exc.StateRunning.String():      color("#FFFF00"),
			exc.StateSuspended.String():    color("#E5C07B"),
			exc.StateDone.String():         color("#00FF00"),
			exc.StateReleasing.String():    color("#FF8800"),
			exc.StateTerminated.String():   color("#FF0000"),
		},
		Unknown: color("#888888"),

		Healthy: color("#00FF00"),
		Alert:   color("#FF0000"),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")),
		Dim:       color("#888888"),
		Highlight: color("#E5C07B"),
		Hook:      color("#C678DD"),

		ActivityOn:  color("#00FF00"),
		ActivityOff: color("#444444"),
		Rate:        color("#61AFEF"),
	}
}

// State returns the style for a state name as it appears in snapshots and
// "state FROM -> TO" notifications.
func (t Theme) State(name string) lipgloss.Style {
	if st, ok := t.states[name]; ok {
		return st
	}
	return t.Unknown
}
