package reputation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/reachlens/internal/core"
)

func TestCheckSendsSubjectAndToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		status := "SANE"
		if body["subject"] == "bad.example" {
			status = "MALICIOUS"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}))
	defer srv.Close()

	client := New(Config{URL: srv.URL, Token: "secret"}, nil)

	verdict, ok := client.Check(context.Background(), "bad.example")
	require.True(t, ok)
	require.Equal(t, core.StatusMalicious, verdict)

	verdict, ok = client.Check(context.Background(), "good.example")
	require.True(t, ok)
	require.Equal(t, core.StatusSane, verdict)
}

func TestCheckVerdictField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"verdict":"malicious"}`))
	}))
	defer srv.Close()

	verdict, ok := New(Config{URL: srv.URL}, nil).Check(context.Background(), "x.example")
	require.True(t, ok)
	require.Equal(t, core.StatusMalicious, verdict)
}

func TestCheckDegradesWithoutVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, ok := New(Config{URL: srv.URL, Token: "wrong"}, nil).Check(context.Background(), "x.example")
	require.False(t, ok)

	var missing *Client
	_, ok = missing.Check(context.Background(), "x.example")
	require.False(t, ok)
	require.Nil(t, New(Config{}, nil))
}
