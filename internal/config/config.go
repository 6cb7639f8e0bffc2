package config

import (
	"time"

	"github.com/namelens/reachlens/internal/core"
)

// Config represents the complete application configuration. Values come
// from built-in defaults, an optional YAML file and REACHLENS_* environment
// variables, in increasing precedence.
type Config struct {
	Lookup     LookupConfig     `mapstructure:"lookup"`
	DNS        DNSConfig        `mapstructure:"dns"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Whois      WhoisConfig      `mapstructure:"whois"`
	Reputation ReputationConfig `mapstructure:"reputation"`
	Rules      RulesConfig      `mapstructure:"rules"`
	Profiles   []core.Profile   `mapstructure:"profiles"`

	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
	Workers int           `mapstructure:"workers"`

	RateLimits      map[string]int `mapstructure:"rate_limits"`
	RateLimitMargin float64        `mapstructure:"rate_limit_margin"`

	// RateLimitBackoff is how long a WHOIS server is skipped after a
	// failed exchange.
	RateLimitBackoff time.Duration `mapstructure:"rate_limit_backoff"`
}

// LookupConfig selects and orders the availability strategies.
type LookupConfig struct {
	// Priority lists strategies in the order they run. Strategies that are
	// not listed never run.
	Priority   []string `mapstructure:"priority"`
	ExtraRules bool     `mapstructure:"extra_rules"`
	// Profile names a built-in or configured profile that replaces Priority
	// and ExtraRules when set.
	Profile string `mapstructure:"profile"`
}

// DNSConfig configures the DNS query tool.
type DNSConfig struct {
	Servers           []string      `mapstructure:"servers"`
	Protocol          string        `mapstructure:"protocol"`
	Timeout           time.Duration `mapstructure:"timeout"`
	TrustServer       bool          `mapstructure:"trust_server"`
	FollowServerOrder bool          `mapstructure:"follow_server_order"`
}

// HTTPConfig configures the HTTP probe and its status code classes.
type HTTPConfig struct {
	Timeout              time.Duration `mapstructure:"timeout"`
	UserAgent            string        `mapstructure:"user_agent"`
	VerifyTLS            bool          `mapstructure:"verify_tls"`
	AllowRedirects       bool          `mapstructure:"allow_redirects"`
	PinDNS               bool          `mapstructure:"pin_dns"`
	UpCodes              []int         `mapstructure:"up_codes"`
	PotentiallyUpCodes   []int         `mapstructure:"potentially_up_codes"`
	PotentiallyDownCodes []int         `mapstructure:"potentially_down_codes"`
}

// WhoisConfig configures WHOIS lookups.
type WhoisConfig struct {
	Timeout           time.Duration     `mapstructure:"timeout"`
	TableFile         string            `mapstructure:"table_file"`
	Servers           map[string]string `mapstructure:"servers"`
	IgnoredExtensions []string          `mapstructure:"ignored_extensions"`
	IANAReferral      bool              `mapstructure:"iana_referral"`
	RDAPFallback      bool              `mapstructure:"rdap_fallback"`
	RDAPServer        string            `mapstructure:"rdap_server"`
	CacheTTL          time.Duration     `mapstructure:"cache_ttl"`
}

// ReputationConfig points at the optional reputation service.
type ReputationConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RulesConfig locates custom extra rules.
type RulesConfig struct {
	File string `mapstructure:"file"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
	// Disabled skips the store entirely; the WHOIS cache and rate limit
	// state then live in memory for the life of the process.
	Disabled bool `mapstructure:"disabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
