// Package config provides centralized configuration management for reachlens.
// Layers, lowest precedence first: built-in defaults, the YAML config file,
// REACHLENS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/dnsquery"
	"github.com/namelens/reachlens/internal/core/engine"
)

const (
	// AppName names the config, data and cache directories.
	AppName = "reachlens"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "REACHLENS"
)

// ErrUnknownProfile is returned for profile names that are neither built in
// nor configured.
var ErrUnknownProfile = errors.New("unknown profile")

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	defaults := engine.DefaultOptions()

	v.SetDefault("lookup.priority", []string{"reputation", "http", "dns", "whois"})
	v.SetDefault("lookup.extra_rules", defaults.ExtraRules)
	v.SetDefault("lookup.profile", "")

	v.SetDefault("dns.servers", []string{})
	v.SetDefault("dns.protocol", "UDP")
	v.SetDefault("dns.timeout", "5s")
	v.SetDefault("dns.trust_server", false)
	v.SetDefault("dns.follow_server_order", true)

	v.SetDefault("http.timeout", "5s")
	v.SetDefault("http.user_agent", "reachlens/1")
	v.SetDefault("http.verify_tls", false)
	v.SetDefault("http.allow_redirects", defaults.HTTPAllowRedirects)
	v.SetDefault("http.pin_dns", defaults.PinDNS)
	v.SetDefault("http.up_codes", defaults.HTTPCodes.Up)
	v.SetDefault("http.potentially_up_codes", defaults.HTTPCodes.PotentiallyUp)
	v.SetDefault("http.potentially_down_codes", defaults.HTTPCodes.PotentiallyDown)

	v.SetDefault("whois.timeout", "5s")
	v.SetDefault("whois.table_file", "")
	v.SetDefault("whois.servers", map[string]string{})
	v.SetDefault("whois.ignored_extensions", []string{})
	v.SetDefault("whois.iana_referral", false)
	v.SetDefault("whois.rdap_fallback", false)
	v.SetDefault("whois.rdap_server", "")
	v.SetDefault("whois.cache_ttl", defaults.WhoisCacheTTL.String())

	v.SetDefault("reputation.url", "")
	v.SetDefault("reputation.token", "")
	v.SetDefault("reputation.timeout", "5s")

	v.SetDefault("rules.file", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("store.disabled", false)

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)

	v.SetDefault("workers", 4)

	v.SetDefault("rate_limits", map[string]int{})
	v.SetDefault("rate_limit_margin", 0.9)
	v.SetDefault("rate_limit_backoff", "30s")
}

// BindEnv maps REACHLENS_SECTION_KEY variables onto section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the settings held by v. A nil v loads defaults
// and the environment only. The result becomes the value GetConfig returns.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
		SetDefaults(v)
		BindEnv(v)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	settings := v.AllSettings()
	delete(settings, "rate_limits")
	if whois, ok := settings["whois"].(map[string]any); ok {
		delete(whois, "servers")
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Server names and extensions contain dots, which viper splits into
	// nested maps.
	if err := decodeFlat(v.Get("rate_limits"), &cfg.RateLimits); err != nil {
		return nil, fmt.Errorf("rate_limits: %w", err)
	}
	if err := decodeFlat(v.Get("whois.servers"), &cfg.Whois.Servers); err != nil {
		return nil, fmt.Errorf("whois.servers: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

func decodeFlat(raw any, out any) error {
	flat := map[string]any{}
	flattenKeys("", raw, flat)
	return mapstructure.WeakDecode(flat, out)
}

func flattenKeys(prefix string, value any, out map[string]any) {
	nested, ok := value.(map[string]any)
	if !ok {
		if prefix != "" {
			out[prefix] = value
		}
		return
	}
	for key, child := range nested {
		if prefix != "" {
			key = prefix + "." + key
		}
		flattenKeys(key, child, out)
	}
}

// Validate rejects settings that could only fail later.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if _, err := dnsquery.ParseProtocol(c.DNS.Protocol); err != nil {
		return fmt.Errorf("dns.protocol: %w", err)
	}
	if _, _, err := c.lookupPlan(); err != nil {
		return err
	}
	for _, profile := range c.Profiles {
		if strings.TrimSpace(profile.Name) == "" {
			return errors.New("profiles: every profile needs a name")
		}
		if _, err := engine.ParsePriority(profile.Priority); err != nil {
			return fmt.Errorf("profiles.%s: %w", profile.Name, err)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.RateLimitMargin < 0 || c.RateLimitMargin > 1 {
		return fmt.Errorf("rate_limit_margin must be within [0, 1], got %v", c.RateLimitMargin)
	}
	return nil
}

// FindProfile returns a configured profile, falling back to the built-ins.
func (c *Config) FindProfile(name string) (*core.Profile, bool) {
	needle := strings.TrimSpace(name)
	if c != nil {
		for _, profile := range c.Profiles {
			if strings.EqualFold(profile.Name, needle) {
				copied := profile
				copied.Priority = append([]string(nil), profile.Priority...)
				return &copied, true
			}
		}
	}
	return core.FindBuiltInProfile(needle)
}

// WithProfile returns a copy of c whose lookup section uses the named
// profile.
func (c *Config) WithProfile(name string) (*Config, error) {
	if strings.TrimSpace(name) == "" {
		return c, nil
	}
	if _, ok := c.FindProfile(name); !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownProfile, name)
	}
	copied := *c
	copied.Lookup.Profile = name
	return &copied, nil
}

func (c *Config) lookupPlan() ([]engine.Strategy, bool, error) {
	priority, extraRules := c.Lookup.Priority, c.Lookup.ExtraRules
	if name := strings.TrimSpace(c.Lookup.Profile); name != "" {
		profile, ok := c.FindProfile(name)
		if !ok {
			return nil, false, fmt.Errorf("lookup.profile: %w %q", ErrUnknownProfile, name)
		}
		priority, extraRules = profile.Priority, profile.ExtraRules
	}
	strategies, err := engine.ParsePriority(priority)
	if err != nil {
		return nil, false, fmt.Errorf("lookup.priority: %w", err)
	}
	return strategies, extraRules, nil
}

// ResolverOptions converts the lookup settings into the immutable options a
// resolver is built with.
func (c *Config) ResolverOptions() (engine.Options, error) {
	priority, extraRules, err := c.lookupPlan()
	if err != nil {
		return engine.Options{}, err
	}

	opts := engine.DefaultOptions()
	opts.Priority = priority
	opts.ExtraRules = extraRules
	opts.HTTPAllowRedirects = c.HTTP.AllowRedirects
	opts.PinDNS = c.HTTP.PinDNS
	opts.WhoisReferral = c.Whois.IANAReferral
	opts.WhoisRDAPFallback = c.Whois.RDAPFallback
	opts.WhoisCacheTTL = c.Whois.CacheTTL

	if len(c.HTTP.UpCodes) > 0 || len(c.HTTP.PotentiallyUpCodes) > 0 || len(c.HTTP.PotentiallyDownCodes) > 0 {
		opts.HTTPCodes = engine.HTTPCodes{
			Up:              append([]int(nil), c.HTTP.UpCodes...),
			PotentiallyUp:   append([]int(nil), c.HTTP.PotentiallyUpCodes...),
			PotentiallyDown: append([]int(nil), c.HTTP.PotentiallyDownCodes...),
		}
	}
	return opts, nil
}

// DNSQueryConfig converts the dns section for dnsquery.New.
func (c *Config) DNSQueryConfig() (dnsquery.Config, error) {
	protocol, err := dnsquery.ParseProtocol(c.DNS.Protocol)
	if err != nil {
		return dnsquery.Config{}, err
	}
	return dnsquery.Config{
		Servers:           append([]string(nil), c.DNS.Servers...),
		Protocol:          protocol,
		Timeout:           c.DNS.Timeout,
		TrustServer:       c.DNS.TrustServer,
		FollowServerOrder: c.DNS.FollowServerOrder,
	}, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir returns the XDG-compliant config directory.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(AppName)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := DefaultConfigDir()
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}
