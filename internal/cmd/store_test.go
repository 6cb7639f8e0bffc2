package cmd

import (
	"context"
	"errors"
	"testing"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/stretchr/testify/require"

	apperrors "github.com/namelens/reachlens/internal/errors"
)

func TestStoreError(t *testing.T) {
	require.NoError(t, storeError(context.Background(), nil, "unused"))

	err := storeError(context.Background(), errors.New("no such table: rate_limits"), "failed to list rate limits")
	var envelope *gferrors.ErrorEnvelope
	require.True(t, errors.As(err, &envelope))
	require.Equal(t, apperrors.CodeStore, envelope.Code)
	require.Equal(t, "failed to list rate limits", envelope.Message)
}

func TestOpenStoreDisabled(t *testing.T) {
	cfg := testConfig(t)
	_, err := openStore(context.Background(), cfg)
	require.ErrorIs(t, err, errStoreDisabled)
}
