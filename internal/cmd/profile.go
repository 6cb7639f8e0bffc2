package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/reachlens/internal/config"
	"github.com/namelens/reachlens/internal/core"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect lookup profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(w, "Profiles:")
		for _, entry := range listProfiles(cfg) {
			suffix := ""
			if entry.builtin {
				suffix = " (builtin)"
			}
			_, _ = fmt.Fprintf(w, "- %s%s: %s\n", entry.profile.Name, suffix, strings.Join(entry.profile.Priority, " -> "))
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		profile, ok := cfg.FindProfile(args[0])
		if !ok {
			return fmt.Errorf("%w %q", config.ErrUnknownProfile, args[0])
		}
		_, builtin := core.FindBuiltInProfile(profile.Name)
		printProfile(cmd.OutOrStdout(), *profile, builtin && !configured(cfg, profile.Name))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
}

type profileEntry struct {
	profile core.Profile
	builtin bool
}

// listProfiles returns configured profiles followed by the built-ins they
// do not shadow.
func listProfiles(cfg *config.Config) []profileEntry {
	entries := make([]profileEntry, 0, len(cfg.Profiles)+len(core.BuiltInProfiles))
	for _, profile := range cfg.Profiles {
		entries = append(entries, profileEntry{profile: profile})
	}
	for _, profile := range core.BuiltInProfiles {
		if !configured(cfg, profile.Name) {
			entries = append(entries, profileEntry{profile: profile, builtin: true})
		}
	}
	return entries
}

func configured(cfg *config.Config, name string) bool {
	for _, profile := range cfg.Profiles {
		if strings.EqualFold(profile.Name, name) {
			return true
		}
	}
	return false
}

func printProfile(w io.Writer, profile core.Profile, builtin bool) {
	_, _ = fmt.Fprintf(w, "Profile: %s\n", profile.Name)
	if builtin {
		_, _ = fmt.Fprintln(w, "Type: builtin")
	}
	if profile.Description != "" {
		_, _ = fmt.Fprintf(w, "Description: %s\n", profile.Description)
	}
	_, _ = fmt.Fprintf(w, "Priority: %s\n", strings.Join(profile.Priority, ", "))
	_, _ = fmt.Fprintf(w, "Extra rules: %t\n", profile.ExtraRules)
}
