package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/config"
	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/dnsquery"
	"github.com/namelens/reachlens/internal/core/engine"
	"github.com/namelens/reachlens/internal/core/httpprobe"
	"github.com/namelens/reachlens/internal/core/reputation"
	"github.com/namelens/reachlens/internal/core/rules"
	"github.com/namelens/reachlens/internal/core/store"
	"github.com/namelens/reachlens/internal/core/whois"
	"github.com/namelens/reachlens/internal/metrics"
	"github.com/namelens/reachlens/internal/observability"
)

// resolverSet builds one resolver per lookup profile over a shared set of
// collaborators. It satisfies handlers.ResolverSource.
type resolverSet struct {
	cfg  *config.Config
	deps engine.Deps
	db   *store.Store

	mu        sync.Mutex
	byProfile map[string]*engine.Resolver
}

// newResolverSet wires the collaborators described by cfg. The caller must
// Close the set.
func newResolverSet(ctx context.Context, cfg *config.Config) (*resolverSet, error) {
	logger := observability.Logger()

	db, err := openStore(ctx, cfg)
	if err != nil && !errors.Is(err, errStoreDisabled) {
		logger.Warn("Store unavailable, caching WHOIS records in memory only", zap.Error(err))
	}

	deps, err := buildDeps(cfg, db, logger)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	set := &resolverSet{cfg: cfg, deps: deps, db: db, byProfile: map[string]*engine.Resolver{}}
	if _, err := set.Resolver(""); err != nil {
		_ = set.Close()
		return nil, err
	}
	return set, nil
}

// Resolver returns the resolver for profile; an empty name selects the
// configured lookup section.
func (s *resolverSet) Resolver(profile string) (*engine.Resolver, error) {
	key := strings.ToLower(strings.TrimSpace(profile))

	s.mu.Lock()
	defer s.mu.Unlock()
	if resolver, ok := s.byProfile[key]; ok {
		return resolver, nil
	}

	cfg, err := s.cfg.WithProfile(key)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ResolverOptions()
	if err != nil {
		return nil, err
	}
	resolver, err := engine.NewResolver(opts, s.deps)
	if err != nil {
		return nil, err
	}
	s.byProfile[key] = resolver
	return resolver, nil
}

// reload swaps in a new lookup configuration. Resolvers built earlier keep
// their options; collaborators are not rebuilt.
func (s *resolverSet) reload(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.byProfile = map[string]*engine.Resolver{}
}

// Store returns the open store, or nil when running without one.
func (s *resolverSet) Store() *store.Store {
	return s.db
}

func (s *resolverSet) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildDeps(cfg *config.Config, db *store.Store, logger core.Logger) (engine.Deps, error) {
	dnsCfg, err := cfg.DNSQueryConfig()
	if err != nil {
		return engine.Deps{}, err
	}
	dns, err := dnsquery.New(dnsCfg, dnsquery.WithLogger(logger))
	if err != nil {
		return engine.Deps{}, fmt.Errorf("dns: %w", err)
	}

	probe := httpprobe.New(dns, httpprobe.Config{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
		VerifyTLS: cfg.HTTP.VerifyTLS,
	}, logger)

	table, err := whoisTable(cfg)
	if err != nil {
		return engine.Deps{}, err
	}

	ruleList := rules.Builtin()
	if path := strings.TrimSpace(cfg.Rules.File); path != "" {
		custom, err := rules.LoadFile(path)
		if err != nil {
			return engine.Deps{}, fmt.Errorf("rules.file: %w", err)
		}
		ruleList = append(ruleList, custom...)
	}

	deps := engine.Deps{
		DNS:       dns,
		Probe:     probe,
		Whois:     whois.NewClient(table, cfg.Whois.Timeout, whois.WithClientLogger(logger)),
		Extractor: whois.NewExtractor(logger),
		Rules: rules.New(ruleList, rules.Env{
			Probe:  probe,
			DNS:    dns,
			PinDNS: cfg.HTTP.PinDNS,
		}, logger),
		Metrics: metrics.Recorder{},
		Logger:  logger,
	}

	if cfg.Whois.RDAPFallback {
		rdap := &whois.RDAP{Timeout: cfg.Whois.Timeout, Logger: logger}
		if raw := strings.TrimSpace(cfg.Whois.RDAPServer); raw != "" {
			server, err := url.Parse(raw)
			if err != nil {
				return engine.Deps{}, fmt.Errorf("whois.rdap_server: %w", err)
			}
			rdap.Server = server
		}
		deps.RDAP = rdap
	}

	// reputation.New returns a nil *Client when no URL is set.
	if client := reputation.New(reputation.Config{
		URL:     cfg.Reputation.URL,
		Token:   cfg.Reputation.Token,
		Timeout: cfg.Reputation.Timeout,
	}, logger); client != nil {
		deps.Reputation = client
	}

	limiter := &engine.RateLimiter{Backoff: cfg.RateLimitBackoff}
	if db != nil {
		deps.Cache = db
		limiter.Store = db
	} else {
		limiter.Store = engine.NewMemoryRateStore()
	}
	limiter.ApplyOverrides(cfg.RateLimits)
	limiter.ApplySafetyMargin(cfg.RateLimitMargin)
	deps.Limiter = limiter

	return deps, nil
}

func whoisTable(cfg *config.Config) (*whois.Table, error) {
	table := whois.DefaultTable()
	if path := strings.TrimSpace(cfg.Whois.TableFile); path != "" {
		loaded, err := whois.LoadTable(path)
		if err != nil {
			return nil, fmt.Errorf("whois.table_file: %w", err)
		}
		table = loaded
	}
	return table.WithOverrides(cfg.Whois.Servers, cfg.Whois.IgnoredExtensions), nil
}
