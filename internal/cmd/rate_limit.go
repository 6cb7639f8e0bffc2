package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/namelens/reachlens/internal/output"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Manage persisted WHOIS rate limit state",
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}

// adminFormat accepts the formats the store administration commands render.
func adminFormat(cmd *cobra.Command) (output.Format, error) {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return "", err
	}
	if format != output.FormatJSON && format != output.FormatTable {
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
	return format, nil
}

func serverArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
