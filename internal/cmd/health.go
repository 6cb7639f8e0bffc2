package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify that the configuration is valid, the resolver can be built and the store is reachable.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("Running health check...")

		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration is invalid", err)
			return
		}
		logger.Info("✅ Configuration valid",
			zap.Strings("priority", cfg.Lookup.Priority),
			zap.String("profile", cfg.Lookup.Profile))

		set, err := newResolverSet(cmd.Context(), cfg)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Resolver could not be built", err)
			return
		}
		defer set.Close() // nolint:errcheck // best-effort cleanup
		logger.Info("✅ Resolver ready")

		switch db := set.Store(); {
		case cfg.Store.Disabled:
			logger.Info("Store disabled, WHOIS cache kept in memory")
		case db == nil:
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Store unavailable", errStoreUnavailable)
			return
		default:
			if err := db.DB.PingContext(cmd.Context()); err != nil {
				ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Store unavailable", err)
				return
			}
			logger.Info("✅ Store reachable", zap.String("driver", db.Driver()))
		}

		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
