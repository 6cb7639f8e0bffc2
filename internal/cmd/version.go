package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/namelens/reachlens/internal/server/handlers"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for full details including Crucible and Go versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		extended, err := cmd.Flags().GetBool("extended")
		if err != nil {
			return err
		}

		info := handlers.CurrentVersion()
		w := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(w, "%s %s\n", info.App.Name, info.App.Version)
		if !extended {
			return nil
		}

		_, _ = fmt.Fprintf(w, "Commit: %s\n", info.App.Commit)
		_, _ = fmt.Fprintf(w, "Built: %s\n", info.App.BuildDate)
		_, _ = fmt.Fprintf(w, "Go: %s\n", info.App.GoVersion)
		_, _ = fmt.Fprintf(w, "\nGofulmen: %s\n", info.Dependencies.Gofulmen)
		_, _ = fmt.Fprintf(w, "Crucible: %s\n", info.Dependencies.Crucible)
		for _, dep := range []struct{ name, version string }{
			{"miekg/dns", info.Dependencies.DNS},
			{"openrdap", info.Dependencies.RDAP},
			{"go-libsql", info.Dependencies.Libsql},
		} {
			if dep.version != "" {
				_, _ = fmt.Fprintf(w, "%s: %s\n", dep.name, dep.version)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("extended", "e", false, "show extended version information")
}
