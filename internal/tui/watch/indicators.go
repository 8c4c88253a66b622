package watch

import (
	"fmt"
	"strings"
	"time"
)

const (
	activityDots  = 5
	activityFade  = 2 * time.Second
	rateSamples   = 20
	sparkleLevels = "▁▂▃▄▅▆▇█"
)

// Activity lights up on each notification and loses one dot every
// activityFade.
type Activity struct {
	last time.Time
}

func (a *Activity) Mark(at time.Time) { a.last = at }

func (a Activity) Last() time.Time { return a.last }

// Level is the number of lit dots at now.
func (a Activity) Level(now time.Time) int {
	if a.last.IsZero() {
		return 0
	}
	lvl := activityDots - int(now.Sub(a.last)/activityFade)
	return max(0, min(activityDots, lvl))
}

func (a Activity) Render(theme Theme, now time.Time) string {
	lit := a.Level(now)
	var b strings.Builder
	for i := range activityDots {
		if i < lit {
			b.WriteString(theme.ActivityOn.Render("●"))
		} else {
			b.WriteString(theme.ActivityOff.Render("○"))
		}
	}
	return b.String()
}

// RateMeter derives the observed cycle rate from successive snapshots. The
// configured CPS is a target; this is what the control loop achieved.
type RateMeter struct {
	samples    []float64
	lastCycles int
	lastAt     time.Time
}

// Observe records a snapshot's cycle counter. A counter that goes backwards
// (a new run) restarts the measurement without a sample.
func (r *RateMeter) Observe(cycles int, at time.Time) {
	defer func() { r.lastCycles, r.lastAt = cycles, at }()
	if r.lastAt.IsZero() || cycles < r.lastCycles {
		return
	}
	dt := at.Sub(r.lastAt).Seconds()
	if dt <= 0 {
		return
	}
	r.samples = append(r.samples, float64(cycles-r.lastCycles)/dt)
	if len(r.samples) > rateSamples {
		r.samples = r.samples[len(r.samples)-rateSamples:]
	}
}

// Current is the latest sample, zero before two observations.
func (r RateMeter) Current() float64 {
	if len(r.samples) == 0 {
		return 0
	}
	return r.samples[len(r.samples)-1]
}

// Sparkline draws the samples scaled to the largest one.
func (r RateMeter) Sparkline() string {
	if len(r.samples) == 0 {
		return ""
	}
	levels := []rune(sparkleLevels)
	peak := 0.0
	for _, v := range r.samples {
		peak = max(peak, v)
	}
	var b strings.Builder
	for _, v := range r.samples {
		idx := 0
		if peak > 0 {
			idx = int(v / peak * float64(len(levels)-1))
		}
		b.WriteRune(levels[idx])
	}
	return b.String()
}

func (r RateMeter) Render(theme Theme) string {
	if len(r.samples) == 0 {
		return theme.Dim.Render("measuring...")
	}
	return fmt.Sprintf("%s %s", theme.Rate.Render(r.Sparkline()), theme.Dim.Render(fmt.Sprintf("%.1f/s", r.Current())))
}
