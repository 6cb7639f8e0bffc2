package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the WHOIS record cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired WHOIS records (all records with --all)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		deleted, err := db.PurgeWhoisCache(cmd.Context(), all)
		if err != nil {
			return storeError(cmd.Context(), err, "failed to purge WHOIS cache")
		}

		scope := "expired"
		if all {
			scope = "cached"
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d %s WHOIS record(s)\n", deleted, scope)
		return err
	},
}

func init() {
	cachePurgeCmd.Flags().Bool("all", false, "Delete every cached record, not only expired ones")
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
