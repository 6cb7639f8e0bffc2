package rules

import (
	"regexp"

	"github.com/namelens/reachlens/internal/core"
)

// deadPageCodes lists hosting providers whose answer with the given code
// means the hosted site no longer exists.
var deadPageCodes = []struct {
	name    string
	pattern string
	code    int
}{
	{"000webhostapp", `\.000webhostapp\.com$`, 410},
	{"24.eu", `\.24\.eu$`, 503},
	{"altervista", `\.altervista\.org$`, 403},
	{"angelfire", `\.angelfire\.com$`, 404},
	{"canalblog", `\.canalblog\.com$`, 404},
	{"dr.ag", `\.dr\.ag$`, 503},
	{"github.io", `\.github\.io$`, 404},
	{"godaddysites", `\.godaddysites\.com$`, 404},
	{"hpg", `\.hpg\.com\.br$`, 404},
	{"liveadvert", `\.liveadvert\.com$`, 404},
	{"skyrock", `\.skyrock\.com$`, 404},
	{"tumblr", `\.tumblr\.com$`, 404},
	{"wix", `\.wix\.com$`, 404},
	{"weebly", `\.weebly\.com$`, 404},
	{"zzz.com.ua", `\.zzz\.com\.ua$`, 402},
}

// Builtin returns the default registry in evaluation order.
func Builtin() []Rule {
	rules := []Rule{
		{
			Name:    "ip-range",
			Matcher: Kinds{core.KindIPv4Range, core.KindIPv6Range},
			Action:  Switch{To: core.StatusActive},
		},
		{
			Name:    "freenom-soa",
			Matcher: HostPattern(`\.(tk|ml|ga|cf|gq)$`),
			Action: SOA{
				Markers: []*regexp.Regexp{regexp.MustCompile(`(?i)freenom\.com`)},
				To:      core.StatusInactive,
			},
		},
		{
			Name:    "radix-soa",
			Matcher: HostPattern(`\.(online|site|store|tech|website|space|fun|host|press|uno)$`),
			Action: SOA{
				Markers: FoldLiteral("campaigns.radix.website"),
				To:      core.StatusInactive,
			},
		},
		{
			Name:    "blogspot",
			Matcher: HostPattern(`\.blogspot\.`),
			Action: Content{
				Markers:        Literal("create-blog.g?", "87065", "doesn&#8217;t&nbsp;exist"),
				Mode:           MatchAny,
				AllowRedirects: true,
				To:             core.StatusInactive,
				From:           core.StatusActive,
			},
		},
		{
			Name:    "wordpress",
			Matcher: HostPattern(`\.wordpress\.com$`),
			Action: Content{
				Markers: Literal("doesn&#8217;t&nbsp;exist"),
				Mode:    MatchAny,
				To:      core.StatusInactive,
				From:    core.StatusActive,
			},
		},
		{
			Name:    "fc2",
			Matcher: HostPattern(`\.fc2\.com$`),
			Action: Content{
				Field:   "Location",
				Markers: Literal("error.fc2.com"),
				To:      core.StatusInactive,
				From:    core.StatusActive,
			},
		},
		{
			Name:    "imgur",
			Matcher: HostPattern(`\.imgur\.com$`),
			Action: Content{
				Field:   "Location",
				Markers: []*regexp.Regexp{regexp.MustCompile(`^https?://(www\.)?imgur\.com/?$`)},
				To:      core.StatusInactive,
				From:    core.StatusActive,
			},
		},
	}

	for _, entry := range deadPageCodes {
		rules = append(rules, Rule{
			Name:    entry.name,
			Matcher: HostPattern(entry.pattern),
			Action: StatusCode{
				Codes: []int{entry.code},
				To:    core.StatusInactive,
				From:  core.StatusActive,
			},
		})
	}

	return rules
}
