package httpprobe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/reachlens/internal/core/dnsquery"
)

type stubResolver struct {
	records map[string][]string
	asked   []string
}

func (s *stubResolver) Query(_ context.Context, name, recordType string) (dnsquery.Result, error) {
	s.asked = append(s.asked, name+"/"+recordType)
	return dnsquery.Result{Name: name, RecordType: recordType, Records: s.records[name]}, nil
}

func hostPort(t *testing.T, rawURL string) (string, string) {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(parsed.Host)
	require.NoError(t, err)
	return host, port
}

func TestProbePinsDNSAndKeepsHost(t *testing.T) {
	hosts := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hosts <- r.Host
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	ip, port := hostPort(t, srv.URL)
	resolver := &stubResolver{records: map[string][]string{"pinned.example": {ip}}}
	probe := New(resolver, Config{Timeout: 2 * time.Second}, nil)

	resp, ok := probe.Probe(context.Background(), "http://pinned.example:"+port+"/", Request{PinDNS: true})
	require.True(t, ok)
	require.Equal(t, http.StatusTeapot, resp.StatusCode)
	require.Equal(t, "pinned.example:"+port, <-hosts)
	require.Equal(t, net.JoinHostPort(ip, port), resp.Addr)
	require.Equal(t, []string{"pinned.example/A"}, resolver.asked)
}

func TestProbeKeepsTLSServerName(t *testing.T) {
	names := make(chan string, 1)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		names <- r.TLS.ServerName
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ip, port := hostPort(t, srv.URL)
	resolver := &stubResolver{records: map[string][]string{"secure.example": {ip}}}
	probe := New(resolver, Config{Timeout: 2 * time.Second}, nil)

	code, ok := probe.StatusCode(context.Background(), "https://secure.example:"+port+"/", false, true)
	require.True(t, ok)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "secure.example", <-names)
}

func TestProbeWithoutRecordFails(t *testing.T) {
	probe := New(&stubResolver{}, Config{Timeout: time.Second}, nil)
	_, ok := probe.StatusCode(context.Background(), "http://missing.example/", false, true)
	require.False(t, ok)
}

func TestProbeRedirectPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/landing", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("landing page"))
	}))
	defer srv.Close()

	probe := New(nil, Config{Timeout: 2 * time.Second}, nil)

	resp, ok := probe.Probe(context.Background(), srv.URL+"/", Request{})
	require.True(t, ok)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/landing", resp.Header.Get("Location"))

	resp, ok = probe.Probe(context.Background(), srv.URL+"/", Request{AllowRedirects: true, ReadBody: true})
	require.True(t, ok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "landing page", resp.Body)
}

func TestProbeConnectionFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	probe := New(nil, Config{Timeout: time.Second}, nil)
	_, ok := probe.StatusCode(context.Background(), "http://"+addr+"/", false, false)
	require.False(t, ok)
}
