// Package syntax classifies subjects into domains, IP literals, ranges and URLs.
package syntax

import (
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/namelens/reachlens/internal/core"
)

const maxDomainLength = 253

var (
	registrableLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	hostLabel        = regexp.MustCompile(`^[a-z0-9_]([a-z0-9_-]{0,61}[a-z0-9_])?$`)

	lookupProfile = idna.New(idna.MapForLookup(), idna.Transitional(false))
)

// Result is the outcome of classifying one subject.
type Result struct {
	Kind  core.SubjectKind
	Flags core.SyntaxFlags
	// Host is the network location the subject points at, without port.
	Host string
	// Netloc is the host and optional port, as matched by extra rules.
	Netloc string
	// Registrable is the public suffix plus one label, empty for IPs.
	Registrable string
}

// Valid reports whether the subject is anything other than invalid.
func (r Result) Valid() bool {
	return r.Kind != core.KindInvalid
}

// ProbeURL returns the address an HTTP probe requests for the subject.
// URL subjects are used as given; IPv6 literals are bracketed.
func (r Result) ProbeURL(idnaSubject string) string {
	if r.Kind == core.KindURL {
		return idnaSubject
	}
	host := r.Netloc
	if r.Kind == core.KindIPv6 {
		host = "[" + r.Host + "]"
	}
	return (&url.URL{Scheme: "http", Host: host}).String()
}

// Classify inspects a subject without any network access. It never fails:
// input that cannot be parsed is reported as invalid.
func Classify(subject string) Result {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Result{Kind: core.KindInvalid}
	}

	if strings.Contains(subject, "://") {
		return classifyURL(subject)
	}

	if res, ok := classifyIP(subject); ok {
		return res
	}

	return classifyDomain(subject)
}

// ToIDNA returns the ASCII-compatible form of a subject. URLs keep their
// scheme, path and query; only the host is converted. Subjects that cannot
// be converted are returned lowercased.
func ToIDNA(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ""
	}

	if strings.Contains(subject, "://") {
		parsed, err := url.Parse(subject)
		if err != nil || parsed.Host == "" {
			return subject
		}
		host := parsed.Hostname()
		ascii := hostToASCII(host)
		if port := parsed.Port(); port != "" {
			parsed.Host = ascii + ":" + port
		} else {
			parsed.Host = ascii
		}
		return parsed.String()
	}

	return hostToASCII(subject)
}

func hostToASCII(host string) string {
	if _, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		return strings.ToLower(host)
	}
	ascii, err := lookupProfile.ToASCII(host)
	if err != nil || ascii == "" {
		return strings.ToLower(host)
	}
	return strings.ToLower(ascii)
}

func classifyURL(subject string) Result {
	parsed, err := url.Parse(subject)
	if err != nil {
		return Result{Kind: core.KindInvalid}
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return Result{Kind: core.KindInvalid}
	}
	host := parsed.Hostname()
	if host == "" {
		return Result{Kind: core.KindInvalid}
	}

	var inner Result
	if addr, err := netip.ParseAddr(host); err == nil {
		inner = Result{Kind: core.KindIPv4, Host: addr.String()}
		if addr.Is6() && !addr.Is4In6() {
			inner.Kind = core.KindIPv6
		}
	} else {
		inner = classifyDomain(host)
		if !inner.Valid() {
			return Result{Kind: core.KindInvalid}
		}
	}

	return Result{
		Kind:        core.KindURL,
		Flags:       core.SyntaxFlags{URL: true},
		Host:        inner.Host,
		Netloc:      strings.ToLower(parsed.Host),
		Registrable: inner.Registrable,
	}
}

func classifyIP(subject string) (Result, bool) {
	if strings.Contains(subject, "/") {
		prefix, err := netip.ParsePrefix(subject)
		if err != nil {
			return Result{}, false
		}
		addr := prefix.Addr()
		res := Result{Host: addr.String(), Netloc: prefix.String()}
		if addr.Is4() {
			res.Kind = core.KindIPv4Range
			res.Flags = core.SyntaxFlags{IP: true, IPv4: true, IPv4Range: true}
		} else {
			res.Kind = core.KindIPv6Range
			res.Flags = core.SyntaxFlags{IP: true, IPv6: true, IPv6Range: true}
		}
		return res, true
	}

	addr, err := netip.ParseAddr(strings.Trim(subject, "[]"))
	if err != nil {
		return Result{}, false
	}
	res := Result{Host: addr.String(), Netloc: addr.String()}
	if addr.Is4() {
		res.Kind = core.KindIPv4
		res.Flags = core.SyntaxFlags{IP: true, IPv4: true}
	} else {
		res.Kind = core.KindIPv6
		res.Flags = core.SyntaxFlags{IP: true, IPv6: true}
	}
	return res, true
}

func classifyDomain(subject string) Result {
	host := strings.TrimSuffix(hostToASCII(subject), ".")
	if host == "" || len(host) > maxDomainLength {
		return Result{Kind: core.KindInvalid}
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return Result{Kind: core.KindInvalid}
	}

	suffix, icann := publicsuffix.PublicSuffix(host)
	if !icann && !strings.Contains(suffix, ".") {
		return Result{Kind: core.KindInvalid}
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return Result{Kind: core.KindInvalid}
	}

	registrableLabels := strings.Count(registrable, ".") + 1
	for idx, label := range labels {
		pattern := hostLabel
		if idx >= len(labels)-registrableLabels {
			pattern = registrableLabel
		}
		if !pattern.MatchString(label) {
			return Result{Kind: core.KindInvalid}
		}
	}

	res := Result{
		Kind:        core.KindDomain,
		Flags:       core.SyntaxFlags{Domain: true},
		Host:        host,
		Netloc:      host,
		Registrable: registrable,
	}
	if host != registrable {
		res.Kind = core.KindSubdomain
		res.Flags.Subdomain = true
	}
	return res
}
