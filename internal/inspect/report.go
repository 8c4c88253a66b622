// Package inspect summarizes a lifecycle journal without a running bridge.
package inspect

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const defaultTransitions = 10

// Options narrows a report.
type Options struct {
	// App limits the report to one application name.
	App string
	// Transitions is how many of the latest transitions to keep per app.
	Transitions int
}

// Report is the structured JSON representation of a journal report.
type Report struct {
	Path    string      `json:"path"`
	Records int         `json:"records"`
	Apps    []AppReport `json:"apps"`
}

// AppReport aggregates the records of one application.
type AppReport struct {
	AppName     string         `json:"app_name"`
	Records     int            `json:"records"`
	FirstAt     time.Time      `json:"first_at"`
	LastAt      time.Time      `json:"last_at"`
	LastState   string         `json:"last_state,omitempty"`
	Hooks       map[string]int `json:"hooks"`
	Transitions []Transition   `json:"transitions"`
	// TransitionsTotal counts every transition, including trimmed ones.
	TransitionsTotal int `json:"transitions_total"`
}

// Transition is one "state FROM -> TO" record.
type Transition struct {
	Seq           int64     `json:"seq"`
	At            time.Time `json:"at"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ElapsedMillis int64     `json:"elapsed_ms"`
}

// BuildReport renders a terminal-friendly journal report.
func BuildReport(ctx context.Context, db *sql.DB, path string, opts Options) (string, error) {
	report, err := gatherReportData(ctx, db, path, opts)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Journal Report\n")
	fmt.Fprintf(&out, "Path        : %s\n", report.Path)
	fmt.Fprintf(&out, "Records     : %d\n", report.Records)
	if len(report.Apps) == 0 {
		fmt.Fprintf(&out, "\n<no records>\n")
		return out.String(), nil
	}
	fmt.Fprintf(&out, "\n")

	for _, app := range report.Apps {
		fmt.Fprintf(&out, "[%s]\n", app.AppName)
		fmt.Fprintf(&out, "    records    : %d\n", app.Records)
		fmt.Fprintf(&out, "    span       : %s .. %s\n",
			app.FirstAt.Format(time.RFC3339), app.LastAt.Format(time.RFC3339))
		fmt.Fprintf(&out, "    last state : %s\n", renderUnset(app.LastState, "<unknown>"))

		if len(app.Hooks) == 0 {
			fmt.Fprintf(&out, "    hooks      : <none>\n")
		} else {
			fmt.Fprintf(&out, "    hooks      :\n")
			for _, name := range sortedKeys(app.Hooks) {
				fmt.Fprintf(&out, "      %-12s %d\n", name, app.Hooks[name])
			}
		}

		if len(app.Transitions) == 0 {
			fmt.Fprintf(&out, "    transitions: <none>\n")
		} else {
			fmt.Fprintf(&out, "    transitions: %d (latest %d)\n", app.TransitionsTotal, len(app.Transitions))
			for _, tr := range app.Transitions {
				fmt.Fprintf(&out, "      #%-5d +%dms  %s -> %s\n", tr.Seq, tr.ElapsedMillis, tr.From, tr.To)
			}
		}
		fmt.Fprintf(&out, "\n")
	}

	return strings.TrimRight(out.String(), "\n") + "\n", nil
}

// BuildJSONReport returns the machine-readable journal report.
func BuildJSONReport(ctx context.Context, db *sql.DB, path string, opts Options) (string, error) {
	report, err := gatherReportData(ctx, db, path, opts)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json report: %w", err)
	}
	return string(data), nil
}

func gatherReportData(ctx context.Context, db *sql.DB, path string, opts Options) (*Report, error) {
	if opts.Transitions <= 0 {
		opts.Transitions = defaultTransitions
	}

	query := `
SELECT app_name, seq, debug_tag, elapsed_ms, recorded_at
FROM lifecycle_events`
	var args []any
	if opts.App != "" {
		query += "\nWHERE app_name = ?"
		args = append(args, opts.App)
	}
	query += "\nORDER BY seq ASC;"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	report := &Report{Path: path, Apps: make([]AppReport, 0)}
	byApp := make(map[string]*AppReport)
	var order []string

	for rows.Next() {
		var (
			appName, tag, at string
			seq, elapsed     int64
		)
		if err := rows.Scan(&appName, &seq, &tag, &elapsed, &at); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		recordedAt, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", at, err)
		}

		app, ok := byApp[appName]
		if !ok {
			app = &AppReport{AppName: appName, FirstAt: recordedAt, Hooks: make(map[string]int)}
			byApp[appName] = app
			order = append(order, appName)
		}
		report.Records++
		app.Records++
		app.LastAt = recordedAt

		if hook, ok := strings.CutSuffix(tag, " called"); ok {
			app.Hooks[hook]++
			continue
		}
		if from, to, ok := parseTransition(tag); ok {
			app.TransitionsTotal++
			app.LastState = to
			app.Transitions = append(app.Transitions, Transition{
				Seq: seq, At: recordedAt, From: from, To: to, ElapsedMillis: elapsed,
			})
			if len(app.Transitions) > opts.Transitions {
				app.Transitions = app.Transitions[1:]
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	for _, name := range order {
		report.Apps = append(report.Apps, *byApp[name])
	}
	return report, nil
}

// parseTransition splits "state FROM -> TO".
func parseTransition(tag string) (from, to string, ok bool) {
	rest, found := strings.CutPrefix(tag, "state ")
	if !found {
		return "", "", false
	}
	from, to, found = strings.Cut(rest, " -> ")
	if !found || from == "" || to == "" {
		return "", "", false
	}
	return from, to, true
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func renderUnset(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
