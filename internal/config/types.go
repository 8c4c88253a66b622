package config

import "time"

// Config is the complete excbridge configuration. Files may be YAML or
// TOML; both use the same keys.
type Config struct {
	Service ServiceConfig `yaml:"service" toml:"service"`
	EXC     EXCConfig     `yaml:"exc" toml:"exc"`
	Socket  SocketConfig  `yaml:"socket" toml:"socket"`
	API     APIConfig     `yaml:"api,omitempty" toml:"api"`
	Events  EventsConfig  `yaml:"events" toml:"events"`

	// SourcePath is the absolute path the config was loaded from.
	SourcePath string `yaml:"-" toml:"-"`
	// Fingerprint is the BLAKE3 hash of the file as read, before env
	// interpolation.
	Fingerprint string `yaml:"-" toml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name" toml:"name"`
	LogLevel string `yaml:"log_level" toml:"log_level"`
}

// EXCConfig describes the hosted execution context.
type EXCConfig struct {
	// Name defaults to service.name.
	Name      string  `yaml:"name" toml:"name"`
	Recipe    string  `yaml:"recipe" toml:"recipe"`
	AWM       int     `yaml:"awm" toml:"awm"`
	CPS       float32 `yaml:"cps" toml:"cps"`
	MaxCycles int     `yaml:"max_cycles" toml:"max_cycles"`
	Enabled   bool    `yaml:"enabled" toml:"enabled"`
}

// SocketConfig defines the local control socket.
type SocketConfig struct {
	Path        string `yaml:"path" toml:"path"`
	MailboxSize int    `yaml:"mailbox_size" toml:"mailbox_size"`
	// ReplyTimeout bounds one reply write; a peer that stops reading is
	// disconnected once it expires.
	ReplyTimeout time.Duration `yaml:"reply_timeout" toml:"reply_timeout"`
}

// APIConfig defines the admin HTTP server.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Listen  string `yaml:"listen" toml:"listen"`
	// Tokens are scoped bearer tokens. With none configured the API is
	// open, which is only sensible on a loopback listener.
	Tokens []APIToken `yaml:"tokens,omitempty" toml:"tokens"`
	// RateLimit throttles POST /command per caller.
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// APIToken is a bearer token and the scopes it grants, e.g. exc:ro.
type APIToken struct {
	Token  string   `yaml:"token" toml:"token"`
	Scopes []string `yaml:"scopes" toml:"scopes"`
}

// RateLimitConfig is a token bucket; a zero per_second disables it.
type RateLimitConfig struct {
	PerSecond int `yaml:"per_second" toml:"per_second"`
	Burst     int `yaml:"burst" toml:"burst"`
}

// EventsConfig defines where lifecycle notifications go. The in-memory hub
// is always on; the journal and forwarder are enabled by setting a path or
// URL.
type EventsConfig struct {
	Buffer      int    `yaml:"buffer" toml:"buffer"`
	JournalPath string `yaml:"journal_path,omitempty" toml:"journal_path"`
	ForwardURL  string `yaml:"forward_url,omitempty" toml:"forward_url"`
	// ForwardSecret, when set, signs each forwarded body with HMAC-SHA256.
	ForwardSecret   string        `yaml:"forward_secret,omitempty" toml:"forward_secret"`
	ForwardTimeout  time.Duration `yaml:"forward_timeout" toml:"forward_timeout"`
	BreakerFailures uint32        `yaml:"breaker_failures" toml:"breaker_failures"`
	BreakerReset    time.Duration `yaml:"breaker_reset" toml:"breaker_reset"`
}

// Defaults returns a Config with the values used for any key a file omits.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "excbridge",
			LogLevel: "info",
		},
		EXC: EXCConfig{
			Enabled: true,
		},
		Socket: SocketConfig{
			Path:         "./run/excbridge.sock",
			MailboxSize:  64,
			ReplyTimeout: 2 * time.Second,
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8787",
			RateLimit: RateLimitConfig{
				PerSecond: 20,
				Burst:     40,
			},
		},
		Events: EventsConfig{
			Buffer:          256,
			ForwardTimeout:  2 * time.Second,
			BreakerFailures: 5,
			BreakerReset:    30 * time.Second,
		},
	}
}
