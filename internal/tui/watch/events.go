package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/excbridge/internal/events"
)

func renderEventStream(eventLog []events.Event, theme Theme, width int) string {
	innerWidth := width - 4

	if len(eventLog) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("EVENT STREAM"),
			theme.Dim.Render("  Waiting for events..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, e := range eventLog {
		if i >= 10 {
			break
		}
		lines = append(lines, formatEvent(e, theme))
	}

	eventsText := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("EVENT STREAM"),
		eventsText,
	)

	return theme.Border.Width(innerWidth).Render(content)
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	var n events.Notification
	if e.Type != events.LifecycleEvent || json.Unmarshal(e.Data, &n) != nil {
		raw := string(e.Data)
		if len(raw) > 60 {
			raw = raw[:60] + "..."
		}
		return fmt.Sprintf("%s %s %s", ts, theme.Dim.Render(fmt.Sprintf("%-14s", e.Type)), raw)
	}

	tagStyle := theme.Dim
	switch {
	case strings.HasPrefix(n.DebugTag, "state "):
		tagStyle = theme.Highlight
	case strings.HasSuffix(n.DebugTag, " called"):
		tagStyle = theme.Hook
	}

	elapsed := theme.Dim.Render(fmt.Sprintf("+%dms", n.ElapsedMillis))
	return fmt.Sprintf("%s %-10s %s %s", ts, n.AppName, tagStyle.Render(n.DebugTag), elapsed)
}
