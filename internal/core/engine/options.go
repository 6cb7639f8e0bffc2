package engine

import (
	"fmt"
	"strings"
	"time"
)

// Strategy names one network signal the resolver can consult.
type Strategy string

const (
	StrategyReputation Strategy = "reputation"
	StrategyHTTP       Strategy = "http"
	StrategyDNS        Strategy = "dns"
	StrategyWhois      Strategy = "whois"
)

// DefaultPriority is the order strategies run in when none is configured.
var DefaultPriority = []Strategy{StrategyReputation, StrategyHTTP, StrategyDNS, StrategyWhois}

// ParseStrategy normalizes a strategy name.
func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case StrategyReputation:
		return StrategyReputation, nil
	case StrategyHTTP, "http_status_code", "http code":
		return StrategyHTTP, nil
	case StrategyDNS, "dns_lookup":
		return StrategyDNS, nil
	case StrategyWhois, "whois_lookup":
		return StrategyWhois, nil
	}
	return "", fmt.Errorf("unknown lookup strategy %q", value)
}

// ParsePriority parses an ordered strategy list. Duplicates are rejected.
func ParsePriority(values []string) ([]Strategy, error) {
	if len(values) == 0 {
		return append([]Strategy(nil), DefaultPriority...), nil
	}
	seen := make(map[Strategy]bool, len(values))
	out := make([]Strategy, 0, len(values))
	for _, value := range values {
		strategy, err := ParseStrategy(value)
		if err != nil {
			return nil, err
		}
		if seen[strategy] {
			return nil, fmt.Errorf("lookup strategy %q listed twice", strategy)
		}
		seen[strategy] = true
		out = append(out, strategy)
	}
	return out, nil
}

// HTTPCodes classifies HTTP status codes.
type HTTPCodes struct {
	Up              []int
	PotentiallyUp   []int
	PotentiallyDown []int
}

// DefaultHTTPCodes returns the standard classification.
func DefaultHTTPCodes() HTTPCodes {
	return HTTPCodes{
		Up: []int{100, 101, 200, 201, 202, 203, 204, 205, 206},
		PotentiallyUp: []int{
			300, 301, 302, 303, 304, 305, 307, 308,
			405, 406, 407, 408, 411, 413, 417, 418,
			421, 422, 423, 424, 426, 428, 429, 431,
			500, 501, 502, 503, 504, 505, 506, 507, 508, 510, 511,
		},
		PotentiallyDown: []int{400, 401, 402, 403, 404, 409, 410, 412, 414, 415, 416, 451},
	}
}

// Active reports whether code proves the subject is being served.
func (c HTTPCodes) Active(code int) bool {
	return contains(c.Up, code) || contains(c.PotentiallyUp, code)
}

func contains(list []int, value int) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// Options is the immutable configuration of a Resolver.
type Options struct {
	// Priority lists the strategies to run, in order. Strategies not listed
	// are disabled.
	Priority   []Strategy
	ExtraRules bool

	HTTPCodes          HTTPCodes
	HTTPAllowRedirects bool
	PinDNS             bool

	WhoisReferral     bool
	WhoisRDAPFallback bool
	WhoisCacheTTL     time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Priority:      append([]Strategy(nil), DefaultPriority...),
		ExtraRules:    true,
		HTTPCodes:     DefaultHTTPCodes(),
		PinDNS:        true,
		WhoisCacheTTL: 24 * time.Hour,
	}
}

func (o Options) clone() Options {
	out := o
	out.Priority = append([]Strategy(nil), o.Priority...)
	out.HTTPCodes = HTTPCodes{
		Up:              append([]int(nil), o.HTTPCodes.Up...),
		PotentiallyUp:   append([]int(nil), o.HTTPCodes.PotentiallyUp...),
		PotentiallyDown: append([]int(nil), o.HTTPCodes.PotentiallyDown...),
	}
	return out
}
