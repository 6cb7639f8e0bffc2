package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/reachlens/internal/config"
	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/engine"
	apperrors "github.com/namelens/reachlens/internal/errors"
)

type singleResolver struct {
	resolver *engine.Resolver
}

func (s singleResolver) Resolver(string) (*engine.Resolver, error) {
	return s.resolver, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	resolver, err := engine.NewResolver(engine.DefaultOptions(), engine.Deps{})
	require.NoError(t, err)
	return New(Options{
		Config:    config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Resolvers: singleResolver{resolver: resolver},
	})
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/status", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerRoutesResolution(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/syntax?subject=https://example.com/path", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st core.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	require.Equal(t, core.StatusValid, st.Status)
	require.Equal(t, core.KindURL, st.Kind)
	require.True(t, st.URL)
}

func TestServerHealthRoutes(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/startup", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerAddr(t *testing.T) {
	srv := New(Options{Config: config.ServerConfig{Host: "::1", Port: 8080}})
	require.Equal(t, "[::1]:8080", srv.Addr())
}
