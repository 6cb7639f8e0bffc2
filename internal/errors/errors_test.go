package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/reachlens/internal/core"
)

func TestWrapResolveError(t *testing.T) {
	ctx := context.Background()

	contract := core.NewContractError("engine.Resolve", core.ErrEmptySubject)
	env := WrapResolveError(ctx, contract)
	require.Equal(t, CodeInvalidSubject, env.Code)
	require.Equal(t, http.StatusBadRequest, HTTPStatusFromEnvelope(env))
	require.NotEmpty(t, env.CorrelationID)

	env = WrapResolveError(ctx, fmt.Errorf("batch: %w", context.DeadlineExceeded))
	require.Equal(t, CodeTimeout, env.Code)
	require.Equal(t, http.StatusGatewayTimeout, HTTPStatusFromEnvelope(env))

	env = WrapResolveError(ctx, context.Canceled)
	require.Equal(t, CodeCanceled, env.Code)

	env = WrapResolveError(ctx, fmt.Errorf("boom"))
	require.Equal(t, CodeInternal, env.Code)
	require.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(env))
}

func TestWrapStoreError(t *testing.T) {
	env := WrapStoreError(context.Background(), fmt.Errorf("database is locked"), "failed to purge WHOIS cache")
	require.Equal(t, CodeStore, env.Code)
	require.Equal(t, "failed to purge WHOIS cache", env.Message)
	require.Equal(t, "database is locked", env.Context["wrapped_error"])
	require.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(env))
}

func TestEnsureEnvelopeKeepsEnvelopes(t *testing.T) {
	original := NewUnknownProfileError("fastest")
	require.Same(t, original, EnsureEnvelope(original))

	env := EnsureEnvelope(fmt.Errorf("plain"))
	require.Equal(t, CodeInternal, env.Code)
	require.Equal(t, "plain", env.Context["wrapped_error"])
}

func TestRespondWithEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/batch", nil)
	rec := httptest.NewRecorder()

	RespondWithEnvelope(rec, req, NewBatchTooLargeError(5000, 1000))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, CodeBatchTooLarge, body.Error.Code)
	require.EqualValues(t, 1000, body.Error.Details["limit"])
	require.NotEmpty(t, body.Error.RequestID)
}
