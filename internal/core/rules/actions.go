package rules

import (
	"context"
	"regexp"
	"strings"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/httpprobe"
)

// MatchMode selects any-of or all-of semantics for marker lists.
type MatchMode int

const (
	MatchAny MatchMode = iota
	MatchAll
)

// Switch sets a fixed status.
type Switch struct {
	To core.StatusValue
	// From, when set, limits the rule to subjects currently in that status.
	From core.StatusValue
}

func (s Switch) Apply(_ context.Context, _ *Env, t Target) (core.StatusValue, bool) {
	if !from(s.From, t) {
		return "", false
	}
	return s.To, true
}

// StatusCode switches status when the subject answered HTTP with one of
// Codes. The code already on the status is used; otherwise one probe is
// issued and recorded on the status.
type StatusCode struct {
	Codes []int
	To    core.StatusValue
	From  core.StatusValue
}

func (s StatusCode) Apply(ctx context.Context, env *Env, t Target) (core.StatusValue, bool) {
	if !from(s.From, t) {
		return "", false
	}

	code, ok := t.Status.HTTPCode()
	if !ok {
		if env == nil || env.Probe == nil {
			return "", false
		}
		resp, probed := env.Probe.Probe(ctx, t.URL(), httpprobe.Request{PinDNS: env.PinDNS})
		if !probed {
			return "", false
		}
		code = resp.StatusCode
		t.Status.SetHTTPCode(code)
	}

	for _, candidate := range s.Codes {
		if candidate == code {
			return s.To, true
		}
	}
	return "", false
}

// Content issues a fresh request and switches status when the response
// matches Markers. Field selects the body ("") or a header by name.
type Content struct {
	Field          string
	Markers        []*regexp.Regexp
	Mode           MatchMode
	AllowRedirects bool
	To             core.StatusValue
	From           core.StatusValue
}

// Literal compiles plain strings into markers.
func Literal(values ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(values))
	for _, value := range values {
		out = append(out, regexp.MustCompile(regexp.QuoteMeta(value)))
	}
	return out
}

// FoldLiteral is Literal with case-insensitive matching.
func FoldLiteral(values ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(values))
	for _, value := range values {
		out = append(out, regexp.MustCompile("(?i)"+regexp.QuoteMeta(value)))
	}
	return out
}

func (c Content) Apply(ctx context.Context, env *Env, t Target) (core.StatusValue, bool) {
	if !from(c.From, t) || env == nil || env.Probe == nil || len(c.Markers) == 0 {
		return "", false
	}

	resp, ok := env.Probe.Probe(ctx, t.URL(), httpprobe.Request{
		AllowRedirects: c.AllowRedirects,
		PinDNS:         env.PinDNS,
		ReadBody:       c.Field == "",
	})
	if !ok {
		return "", false
	}

	haystack := resp.Body
	if c.Field != "" {
		haystack = strings.Join(resp.Header.Values(c.Field), "\n")
		if haystack == "" {
			return "", false
		}
	}

	if matchMarkers(haystack, c.Markers, c.Mode) {
		return c.To, true
	}
	return "", false
}

// SOA switches status when the SOA record of the subject's registrable
// domain matches one of Markers. Record text is matched as returned, so
// markers should be case-insensitive (see FoldLiteral).
type SOA struct {
	Markers []*regexp.Regexp
	To      core.StatusValue
	From    core.StatusValue
}

func (s SOA) Apply(ctx context.Context, env *Env, t Target) (core.StatusValue, bool) {
	if !from(s.From, t) || env == nil || env.DNS == nil {
		return "", false
	}
	name := t.Syntax.Registrable
	if name == "" {
		name = t.Syntax.Host
	}
	if name == "" {
		return "", false
	}

	result, err := env.DNS.Query(ctx, name, "SOA")
	if err != nil || !result.Found() {
		return "", false
	}
	if matchMarkers(strings.Join(result.Records, "\n"), s.Markers, MatchAny) {
		return s.To, true
	}
	return "", false
}

func matchMarkers(haystack string, markers []*regexp.Regexp, mode MatchMode) bool {
	if len(markers) == 0 {
		return false
	}
	for _, marker := range markers {
		found := marker.MatchString(haystack)
		if mode == MatchAny && found {
			return true
		}
		if mode == MatchAll && !found {
			return false
		}
	}
	return mode == MatchAll
}

func from(required core.StatusValue, t Target) bool {
	return required == "" || t.Status.Status == required
}
