package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/namelens/reachlens/internal/core"
)

// ruleFile is the YAML layout of a custom rules file:
//
//	rules:
//	  - name: parked-lander
//	    pattern: '\.example\.net$'
//	    action: body
//	    markers: ["/parking-lander/"]
//	    to: INACTIVE
//	    from: ACTIVE
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Name           string   `yaml:"name"`
	Pattern        string   `yaml:"pattern"`
	Kinds          []string `yaml:"kinds"`
	Action         string   `yaml:"action"`
	To             string   `yaml:"to"`
	From           string   `yaml:"from"`
	Codes          []int    `yaml:"codes"`
	Header         string   `yaml:"header"`
	Markers        []string `yaml:"markers"`
	Regex          bool     `yaml:"regex"`
	Match          string   `yaml:"match"`
	AllowRedirects bool     `yaml:"allow_redirects"`
}

// LoadFile reads custom rules from a YAML file.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

// Parse decodes custom rules from YAML.
func Parse(data []byte) ([]Rule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	out := make([]Rule, 0, len(file.Rules))
	for idx, spec := range file.Rules {
		rule, err := spec.build()
		if err != nil {
			name := spec.Name
			if name == "" {
				name = fmt.Sprintf("#%d", idx+1)
			}
			return nil, fmt.Errorf("rule %s: %w", name, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

func (s ruleSpec) build() (Rule, error) {
	rule := Rule{Name: s.Name}

	switch {
	case s.Pattern != "":
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return Rule{}, fmt.Errorf("invalid pattern: %w", err)
		}
		rule.Matcher = Host{Pattern: re}
	case len(s.Kinds) > 0:
		kinds := make(Kinds, 0, len(s.Kinds))
		for _, raw := range s.Kinds {
			kind, err := parseKind(raw)
			if err != nil {
				return Rule{}, err
			}
			kinds = append(kinds, kind)
		}
		rule.Matcher = kinds
	default:
		return Rule{}, fmt.Errorf("pattern or kinds is required")
	}

	to, err := parseStatus(s.To)
	if err != nil {
		return Rule{}, err
	}
	var fromStatus core.StatusValue
	if s.From != "" {
		if fromStatus, err = parseStatus(s.From); err != nil {
			return Rule{}, err
		}
	}

	action := strings.ToLower(strings.TrimSpace(s.Action))
	markers, err := s.markers(action == "soa")
	if err != nil {
		return Rule{}, err
	}
	mode := MatchAny
	switch strings.ToLower(s.Match) {
	case "", "any":
	case "all":
		mode = MatchAll
	default:
		return Rule{}, fmt.Errorf("unknown match mode %q", s.Match)
	}

	switch action {
	case "switch":
		rule.Action = Switch{To: to, From: fromStatus}
	case "status_code":
		if len(s.Codes) == 0 {
			return Rule{}, fmt.Errorf("status_code action needs codes")
		}
		rule.Action = StatusCode{Codes: s.Codes, To: to, From: fromStatus}
	case "body", "header":
		if len(markers) == 0 {
			return Rule{}, fmt.Errorf("%s action needs markers", s.Action)
		}
		field := ""
		if action == "header" {
			if s.Header == "" {
				return Rule{}, fmt.Errorf("header action needs a header name")
			}
			field = s.Header
		}
		rule.Action = Content{
			Field:          field,
			Markers:        markers,
			Mode:           mode,
			AllowRedirects: s.AllowRedirects,
			To:             to,
			From:           fromStatus,
		}
	case "soa":
		if len(markers) == 0 {
			return Rule{}, fmt.Errorf("soa action needs markers")
		}
		rule.Action = SOA{Markers: markers, To: to, From: fromStatus}
	default:
		return Rule{}, fmt.Errorf("unknown action %q", s.Action)
	}

	return rule, nil
}

// markers compiles the rule's markers. fold makes them case-insensitive,
// which SOA rules need since DNS names are case-insensitive.
func (s ruleSpec) markers(fold bool) ([]*regexp.Regexp, error) {
	if !s.Regex {
		if fold {
			return FoldLiteral(s.Markers...), nil
		}
		return Literal(s.Markers...), nil
	}
	out := make([]*regexp.Regexp, 0, len(s.Markers))
	for _, marker := range s.Markers {
		if fold {
			marker = "(?i)" + marker
		}
		re, err := regexp.Compile(marker)
		if err != nil {
			return nil, fmt.Errorf("invalid marker %q: %w", marker, err)
		}
		out = append(out, re)
	}
	return out, nil
}

var ruleKinds = []core.SubjectKind{
	core.KindDomain,
	core.KindSubdomain,
	core.KindIPv4,
	core.KindIPv4Range,
	core.KindIPv6,
	core.KindIPv6Range,
	core.KindURL,
}

func parseKind(value string) (core.SubjectKind, error) {
	kind := core.SubjectKind(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range ruleKinds {
		if kind == known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown subject kind %q", value)
}

func parseStatus(value string) (core.StatusValue, error) {
	switch core.StatusValue(strings.ToUpper(strings.TrimSpace(value))) {
	case core.StatusActive:
		return core.StatusActive, nil
	case core.StatusInactive:
		return core.StatusInactive, nil
	}
	return "", fmt.Errorf("status must be ACTIVE or INACTIVE, got %q", value)
}
