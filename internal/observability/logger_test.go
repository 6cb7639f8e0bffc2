package observability

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerFallsBackToNop(t *testing.T) {
	CLILogger, ServerLogger = nil, nil
	t.Cleanup(func() { CLILogger, ServerLogger = nil, nil })

	logger := Logger()
	require.NotNil(t, logger)
	logger.Warn("discarded", zap.String("subject", "example.com"))
}

func TestLoggerPrefersServer(t *testing.T) {
	t.Cleanup(func() { CLILogger, ServerLogger = nil, nil })

	InitCLILogger("reachlens-test", true)
	require.NotNil(t, CLILogger)
	require.Same(t, CLILogger, Logger())

	InitServerLogger("reachlens-test", "debug")
	require.NotNil(t, ServerLogger)
	require.Same(t, ServerLogger, Logger())

	Logger().Info("Resolution complete",
		zap.String("subject", "example.com"),
		zap.String("status", "ACTIVE"))
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, "DEBUG", parseLogLevel("Debug"))
	require.Equal(t, "WARN", parseLogLevel("warning"))
	require.Equal(t, "INFO", parseLogLevel(""))
}
