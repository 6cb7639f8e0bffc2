package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/output"
)

func TestParseStatusFilter(t *testing.T) {
	wanted, err := parseStatusFilter([]string{"active", " INVALID ", ""})
	require.NoError(t, err)
	require.Equal(t, []core.StatusValue{core.StatusActive, core.StatusInvalid}, wanted)

	_, err = parseStatusFilter([]string{"parked"})
	require.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "batch.availability", sanitizeFilename("Batch.Availability"))
	require.Equal(t, "rate-limit-list", sanitizeFilename(" rate limit/list "))
	require.Equal(t, "output", sanitizeFilename("..."))
}

func TestOutputExtension(t *testing.T) {
	require.Equal(t, "json", outputExtension(output.FormatJSON))
	require.Equal(t, "md", outputExtension(output.FormatMarkdown))
	require.Equal(t, "hosts", outputExtension(output.FormatHosts))
	require.Equal(t, "txt", outputExtension(output.FormatPlain))
	require.Equal(t, "txt", outputExtension(output.FormatTable))
}
