package core

import (
	"strings"
)

// Profile is a named lookup preset: which strategies run, in which order,
// and whether the extra rules apply afterwards.
type Profile struct {
	Name        string   `json:"name" mapstructure:"name"`
	Description string   `json:"description,omitempty" mapstructure:"description"`
	Priority    []string `json:"priority" mapstructure:"priority"`
	ExtraRules  bool     `json:"extra_rules" mapstructure:"extra_rules"`
}

// BuiltInProfiles are available without any configuration.
var BuiltInProfiles = []Profile{
	{
		Name:        "standard",
		Description: "Reputation, HTTP, DNS then WHOIS with extra rules",
		Priority:    []string{"reputation", "http", "dns", "whois"},
		ExtraRules:  true,
	},
	{
		Name:        "quick",
		Description: "DNS only, no extra rules",
		Priority:    []string{"dns"},
	},
	{
		Name:        "web",
		Description: "HTTP first, DNS as a fallback",
		Priority:    []string{"http", "dns"},
		ExtraRules:  true,
	},
	{
		Name:        "registry",
		Description: "WHOIS first for registration-focused lists",
		Priority:    []string{"whois", "dns", "http"},
		ExtraRules:  true,
	},
}

// FindBuiltInProfile looks up a built-in profile by name.
func FindBuiltInProfile(name string) (*Profile, bool) {
	needle := strings.TrimSpace(strings.ToLower(name))
	if needle == "" {
		return nil, false
	}

	for _, profile := range BuiltInProfiles {
		if strings.EqualFold(profile.Name, needle) {
			copied := profile
			copied.Priority = append([]string(nil), profile.Priority...)
			return &copied, true
		}
	}

	return nil, false
}
