package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "exc:\n  recipe: demo\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.Name != "excbridge" {
		t.Errorf("service.name = %q", cfg.Service.Name)
	}
	if cfg.EXC.Name != "excbridge" {
		t.Errorf("exc.name should default to service.name, got %q", cfg.EXC.Name)
	}
	if !cfg.EXC.Enabled {
		t.Error("exc.enabled should default to true")
	}
	if cfg.Socket.MailboxSize != 64 {
		t.Errorf("socket.mailbox_size = %d", cfg.Socket.MailboxSize)
	}
	if cfg.Socket.ReplyTimeout != 2*time.Second {
		t.Errorf("socket.reply_timeout = %v", cfg.Socket.ReplyTimeout)
	}
	if cfg.Events.ForwardTimeout != 2*time.Second {
		t.Errorf("events.forward_timeout = %v", cfg.Events.ForwardTimeout)
	}
	if cfg.SourcePath != path {
		t.Errorf("SourcePath = %q, want %q", cfg.SourcePath, path)
	}
	if len(cfg.Fingerprint) != 64 {
		t.Errorf("expected 64-char fingerprint, got %q", cfg.Fingerprint)
	}
}

func TestLoadFullConfig(t *testing.T) {
	t.Setenv("EXB_FORWARD", "http://collector.local/events")
	path := writeConfig(t, `
service:
  name: bridge
  log_level: DEBUG
exc:
  name: worker
  recipe: video
  awm: 2
  cps: 12.5
  max_cycles: 100
  enabled: false
socket:
  path: /tmp/exb.sock
  mailbox_size: 8
api:
  enabled: true
  listen: 127.0.0.1:9000
events:
  buffer: 32
  journal_path: ./data/journal.db
  forward_url: ${EXB_FORWARD}
  forward_timeout: 500ms
  breaker_failures: 3
  breaker_reset: 1m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.LogLevel != "debug" {
		t.Errorf("log level should be normalized, got %q", cfg.Service.LogLevel)
	}
	if cfg.EXC.Name != "worker" || cfg.EXC.AWM != 2 || cfg.EXC.CPS != 12.5 || cfg.EXC.Enabled {
		t.Errorf("unexpected exc config: %+v", cfg.EXC)
	}
	if cfg.Events.ForwardURL != "http://collector.local/events" {
		t.Errorf("forward_url not interpolated: %q", cfg.Events.ForwardURL)
	}
	if cfg.Events.ForwardTimeout != 500*time.Millisecond || cfg.Events.BreakerReset != time.Minute {
		t.Errorf("unexpected durations: %+v", cfg.Events)
	}
}

func TestLoadDirectory(t *testing.T) {
	path := writeConfig(t, "exc:\n  recipe: demo\n")
	if _, err := Load(filepath.Dir(path)); err != nil {
		t.Fatalf("Load(dir): %v", err)
	}
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for directory without config.yaml")
	}
}

func TestLoadTOML(t *testing.T) {
	t.Setenv("EXB_TOKEN", "tok-123")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[service]
name = "bridge"

[exc]
recipe = "video"
cps = 2.5
max_cycles = 100

[api]
enabled = true

[[api.tokens]]
token = "${EXB_TOKEN}"
scopes = ["exc:rw"]

[events]
forward_url = "http://collector.local/events"
forward_timeout = "750ms"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// The directory form finds config.toml too.
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SourcePath != path {
		t.Errorf("SourcePath = %q, want %q", cfg.SourcePath, path)
	}
	if cfg.EXC.Name != "bridge" || cfg.EXC.Recipe != "video" || cfg.EXC.CPS != 2.5 || cfg.EXC.MaxCycles != 100 {
		t.Errorf("unexpected exc section: %+v", cfg.EXC)
	}
	if len(cfg.API.Tokens) != 1 || cfg.API.Tokens[0].Token != "tok-123" {
		t.Errorf("tokens not decoded: %+v", cfg.API.Tokens)
	}
	if cfg.API.RateLimit.PerSecond != 20 {
		t.Errorf("rate limit default lost: %+v", cfg.API.RateLimit)
	}
	if cfg.Events.ForwardTimeout != 750*time.Millisecond {
		t.Errorf("forward_timeout = %v", cfg.Events.ForwardTimeout)
	}
}

func TestLoadTOMLRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.toml")
	if err := os.WriteFile(path, []byte("[exc]\nrecipe = \"r\"\nrecpie = \"typo\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "recpie") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestFormatFor(t *testing.T) {
	for path, want := range map[string]Format{
		"/etc/excbridge/config.yaml": FormatYAML,
		"bridge.yml":                 FormatYAML,
		"bridge.TOML":                FormatTOML,
		"noext":                      FormatYAML,
	} {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "missing recipe", content: "service:\n  name: x\n", want: "exc.recipe is required"},
		{name: "bad log level", content: "service:\n  log_level: loud\nexc:\n  recipe: r\n", want: "service.log_level"},
		{name: "negative cps", content: "exc:\n  recipe: r\n  cps: -1\n", want: "exc.cps"},
		{name: "zero mailbox", content: "exc:\n  recipe: r\nsocket:\n  mailbox_size: 0\n", want: "socket.mailbox_size"},
		{name: "zero reply timeout", content: "exc:\n  recipe: r\nsocket:\n  reply_timeout: 0s\n", want: "socket.reply_timeout"},
		{name: "api without listen", content: "exc:\n  recipe: r\napi:\n  enabled: true\n  listen: \"\"\n", want: "api.listen"},
		{name: "token without scopes", content: "exc:\n  recipe: r\napi:\n  tokens:\n    - token: abc\n", want: "api.tokens[0].scopes"},
		{name: "negative rate limit", content: "exc:\n  recipe: r\napi:\n  rate_limit:\n    burst: -1\n", want: "api.rate_limit"},
		{name: "bad forward url", content: "exc:\n  recipe: r\nevents:\n  forward_url: ftp://x\n", want: "events.forward_url"},
		{name: "unset env var", content: "exc:\n  recipe: ${EXB_UNSET_RECIPE_VAR}\n", want: "${EXB_UNSET_RECIPE_VAR} is not set"},
		{name: "unknown key", content: "exc:\n  recipe: r\n  recpie: typo\n", want: "recpie"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestChecksumPinning(t *testing.T) {
	path := writeConfig(t, "exc:\n  recipe: demo\n")

	hash, err := WriteChecksum(path)
	if err != nil {
		t.Fatalf("WriteChecksum: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load with matching checksum: %v", err)
	}
	if cfg.Fingerprint != hash {
		t.Errorf("fingerprint %q != pinned hash %q", cfg.Fingerprint, hash)
	}

	if err := os.WriteFile(path, []byte("exc:\n  recipe: tampered\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestGetPath(t *testing.T) {
	cfg, err := Parse([]byte("exc:\n  recipe: demo\n  awm: 3\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got, err := cfg.GetPath("exc.recipe")
	if err != nil || got != "demo" {
		t.Fatalf("GetPath(exc.recipe) = %v, %v", got, err)
	}
	got, err = cfg.GetPath("exc.awm")
	if err != nil || got != 3 {
		t.Fatalf("GetPath(exc.awm) = %v, %v", got, err)
	}
	if _, err := cfg.GetPath("exc.nope"); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := cfg.GetPath("exc.recipe.deeper"); err == nil {
		t.Fatal("expected error walking into a scalar")
	}
}

func TestGetPathListIndex(t *testing.T) {
	cfg, err := Parse([]byte(`exc:
  recipe: demo
api:
  tokens:
    - token: first
      scopes: ["exc:ro"]
    - token: second
      scopes: ["exc:rw", "events:ro"]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got, err := cfg.GetPath("api.tokens.1.scopes.1")
	if err != nil || got != "events:ro" {
		t.Fatalf("GetPath(api.tokens.1.scopes.1) = %v, %v", got, err)
	}
	got, err = cfg.GetPath("api.tokens.0.token")
	if err != nil || got != "first" {
		t.Fatalf("GetPath(api.tokens.0.token) = %v, %v", got, err)
	}
	for _, bad := range []string{"api.tokens.2", "api.tokens.x", "api.tokens.-1"} {
		if _, err := cfg.GetPath(bad); err == nil {
			t.Errorf("GetPath(%s): expected error", bad)
		}
	}
}
