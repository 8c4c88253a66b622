// Package doctor looks for configuration that loads cleanly but is unlikely
// to work as intended once excbridge is serving.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/mattjoyce/excbridge/internal/auth"
	"github.com/mattjoyce/excbridge/internal/config"
	"github.com/mattjoyce/excbridge/internal/storage"
)

// maxSocketPath is the smallest sun_path limit among supported platforms
// (macOS and the BSDs), including the trailing NUL.
const maxSocketPath = 103

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor checks a loaded configuration.
type Doctor struct {
	cfg *config.Config
	// localFS reports whether a path is on local disk; swapped in tests.
	localFS func(string) error
}

// New creates a Doctor for a config that has already passed config.Load.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg, localFS: storage.CheckLocalFilesystem}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateSocket(r)
	d.validateJournal(r)
	d.validateTokens(r)
	d.warnOpenAPI(r)
	d.warnForwarder(r)
	d.warnEXC(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) validateSocket(r *Result) {
	path := d.cfg.Socket.Path
	if len(path) > maxSocketPath {
		d.addError(r, "socket", "socket.path",
			fmt.Sprintf("path is %d bytes; unix sockets allow at most %d", len(path), maxSocketPath))
	}
	if err := d.localFS(path); err != nil {
		d.addError(r, "storage", "socket.path", err.Error())
	}
}

func (d *Doctor) validateJournal(r *Result) {
	if d.cfg.Events.JournalPath == "" {
		return
	}
	if err := d.localFS(d.cfg.Events.JournalPath); err != nil {
		d.addError(r, "storage", "events.journal_path", err.Error())
	}
}

// validateTokens checks scope names and duplicate token values.
func (d *Doctor) validateTokens(r *Result) {
	seen := make(map[string]int)
	for i, tok := range d.cfg.API.Tokens {
		field := fmt.Sprintf("api.tokens[%d]", i)
		for _, scope := range tok.Scopes {
			if !auth.KnownScope(strings.TrimSpace(scope)) {
				d.addError(r, "token_scopes", field+".scopes",
					fmt.Sprintf("unknown scope %q (valid: exc:ro, exc:rw, events:ro, *)", scope))
			}
		}
		if prev, dup := seen[tok.Token]; dup {
			d.addError(r, "tokens", field+".token",
				fmt.Sprintf("same token as api.tokens[%d]", prev))
			continue
		}
		seen[tok.Token] = i
	}

	if !d.cfg.API.Enabled && len(d.cfg.API.Tokens) > 0 {
		d.addWarning(r, "api", "api.tokens", "tokens are configured but the api is disabled")
	}
}

func (d *Doctor) warnOpenAPI(r *Result) {
	if !d.cfg.API.Enabled || len(d.cfg.API.Tokens) > 0 {
		return
	}
	host, _, err := net.SplitHostPort(d.cfg.API.Listen)
	if err != nil {
		d.addError(r, "api", "api.listen", fmt.Sprintf("invalid listen address: %v", err))
		return
	}
	if !isLoopback(host) {
		d.addWarning(r, "api", "api.listen",
			fmt.Sprintf("api listens on %q without tokens; anyone who can reach it can drive the EXC", d.cfg.API.Listen))
	}
}

func (d *Doctor) warnForwarder(r *Result) {
	raw := d.cfg.Events.ForwardURL
	if raw == "" {
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	if u.Scheme == "http" && !isLoopback(u.Hostname()) && d.cfg.Events.ForwardSecret == "" {
		d.addWarning(r, "events", "events.forward_url",
			"notifications are posted over plain http without a signing secret")
	}
}

func (d *Doctor) warnEXC(r *Result) {
	if !d.cfg.EXC.Enabled {
		d.addWarning(r, "exc", "exc.enabled",
			"START returns EXC_NOT_ENABLED until an ENABLE command arrives")
	}
	if d.cfg.EXC.CPS == 0 && d.cfg.EXC.MaxCycles == 0 {
		d.addWarning(r, "exc", "exc.cps",
			"no pacing and no cycle limit; a started EXC runs flat out until terminated")
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
