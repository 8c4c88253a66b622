package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Format is a config file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// candidateFiles are tried, in order, when a directory is given.
var candidateFiles = []string{"config.yaml", "config.yml", "config.toml"}

// FormatFor picks the encoding from the file extension; anything that is
// not .toml is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads, interpolates, defaults and validates the config file at
// configPath. A directory is accepted if it contains config.yaml (or
// config.yml, config.toml). When a checksum sidecar exists next to the file
// it must match.
func Load(configPath string) (*Config, error) {
	absPath, err := ResolvePath(configPath)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := VerifyChecksum(absPath, raw); err != nil {
		return nil, err
	}

	cfg, err := ParseAs(raw, FormatFor(absPath))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", absPath, err)
	}
	cfg.SourcePath = absPath
	cfg.Fingerprint = Fingerprint(raw)
	return cfg, nil
}

// ResolvePath returns the absolute config file for configPath, which may
// name the file itself or a directory holding one of the candidate files.
func ResolvePath(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if !info.IsDir() {
		return absPath, nil
	}
	for _, name := range candidateFiles {
		candidate := filepath.Join(absPath, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("directory provided but none of %s found in %s",
		strings.Join(candidateFiles, ", "), absPath)
}

// Parse decodes YAML; see ParseAs.
func Parse(raw []byte) (*Config, error) {
	return ParseAs(raw, FormatYAML)
}

// ParseAs decodes raw over Defaults, expanding ${VAR} references first, and
// validates the result. Unknown keys are rejected in both formats.
func ParseAs(raw []byte, format Format) (*Config, error) {
	cfg := Defaults()
	text := interpolateEnv(string(raw))

	switch format {
	case FormatTOML:
		md, err := toml.Decode(text, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode toml: unknown key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(strings.NewReader(text))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	applyDerivedDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyDerivedDefaults(cfg *Config) {
	cfg.Service.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Service.LogLevel))
	if cfg.EXC.Name == "" {
		cfg.EXC.Name = cfg.Service.Name
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is and fail validation where they matter.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

func validate(cfg *Config) error {
	for field, value := range map[string]string{
		"exc.recipe":            cfg.EXC.Recipe,
		"socket.path":           cfg.Socket.Path,
		"api.listen":            cfg.API.Listen,
		"events.journal_path":   cfg.Events.JournalPath,
		"events.forward_url":    cfg.Events.ForwardURL,
		"events.forward_secret": cfg.Events.ForwardSecret,
	} {
		if m := envVarPattern.FindStringSubmatch(value); len(m) > 1 {
			return fmt.Errorf("%s: environment variable ${%s} is not set", field, m[1])
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.Name == "" {
		return fmt.Errorf("service.name is required")
	}

	if strings.TrimSpace(cfg.EXC.Recipe) == "" {
		return fmt.Errorf("exc.recipe is required")
	}
	if cfg.EXC.AWM < 0 {
		return fmt.Errorf("exc.awm must not be negative")
	}
	if cfg.EXC.CPS < 0 {
		return fmt.Errorf("exc.cps must not be negative")
	}
	if cfg.EXC.MaxCycles < 0 {
		return fmt.Errorf("exc.max_cycles must not be negative")
	}

	if cfg.Socket.Path == "" {
		return fmt.Errorf("socket.path is required")
	}
	if cfg.Socket.MailboxSize <= 0 {
		return fmt.Errorf("socket.mailbox_size must be positive")
	}
	if cfg.Socket.ReplyTimeout <= 0 {
		return fmt.Errorf("socket.reply_timeout must be positive")
	}

	if cfg.API.Enabled && cfg.API.Listen == "" {
		return fmt.Errorf("api.listen is required when the api is enabled")
	}
	if cfg.API.RateLimit.PerSecond < 0 || cfg.API.RateLimit.Burst < 0 {
		return fmt.Errorf("api.rate_limit values must not be negative")
	}
	for i, tok := range cfg.API.Tokens {
		if m := envVarPattern.FindStringSubmatch(tok.Token); len(m) > 1 {
			return fmt.Errorf("api.tokens[%d].token: environment variable ${%s} is not set", i, m[1])
		}
		if strings.TrimSpace(tok.Token) == "" {
			return fmt.Errorf("api.tokens[%d].token is required", i)
		}
		if len(tok.Scopes) == 0 {
			return fmt.Errorf("api.tokens[%d].scopes must not be empty", i)
		}
	}

	if cfg.Events.Buffer <= 0 {
		return fmt.Errorf("events.buffer must be positive")
	}
	if cfg.Events.ForwardURL != "" {
		u, err := url.Parse(cfg.Events.ForwardURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("events.forward_url must be an http(s) URL (got %q)", cfg.Events.ForwardURL)
		}
		if cfg.Events.ForwardTimeout <= 0 {
			return fmt.Errorf("events.forward_timeout must be positive")
		}
		if cfg.Events.BreakerFailures == 0 {
			return fmt.Errorf("events.breaker_failures must be positive")
		}
	}

	return nil
}
