package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// HealthState tracks service health from /healthz polling.
type HealthState struct {
	Status        string
	UptimeSeconds int64
	Fingerprint   string
	Bindings      int
	Connected     bool
	LastCheck     time.Time
}

// renderHeader draws the title, service health, and the two live
// indicators: notification activity and the measured cycle rate.
func renderHeader(health HealthState, activity Activity, rate RateMeter, theme Theme, width int, now time.Time) string {
	innerWidth := width - 4

	var statusText string
	switch {
	case !health.Connected:
		statusText = theme.Alert.Render("CONNECTING")
	case health.Status == "ok" || health.Status == "":
		statusText = theme.Healthy.Render("SERVING")
	default:
		statusText = theme.Alert.Render(strings.ToUpper(health.Status))
	}

	clock := theme.Dim.Render(now.Format("15:04:05"))
	titleText := " EXCBRIDGE WATCH"
	pad := innerWidth - lipgloss.Width(titleText) - lipgloss.Width(clock) - 4
	titleLine := titleText + strings.Repeat(" ", max(1, pad)) + clock + " "

	fingerprint := health.Fingerprint
	switch {
	case fingerprint == "":
		fingerprint = "-"
	case len(fingerprint) > 12:
		fingerprint = fingerprint[:12]
	}
	statsLine := fmt.Sprintf(" %s  up %s  bindings: %d  config: %s",
		statusText,
		formatDuration(time.Duration(health.UptimeSeconds)*time.Second),
		health.Bindings,
		theme.Dim.Render(fingerprint),
	)

	lastEvent := "never"
	if last := activity.Last(); !last.IsZero() {
		lastEvent = fmt.Sprintf("%s ago", now.Sub(last).Round(time.Second))
	}
	activityLine := fmt.Sprintf(" Last notification: %s %s   cycles: %s",
		lastEvent,
		activity.Render(theme, now),
		rate.Render(theme),
	)

	return theme.Border.Width(innerWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleLine, statsLine, activityLine),
	)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
