package whois

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"02-jan-2017":                  "02-jan-2017",
		"2017-01-02":                   "02-jan-2017",
		"Mon Jan 02 2017":              "02-jan-2017",
		"2nd January 2017":             "02-jan-2017",
		"02.01.2017":                   "02-jan-2017",
		"02/01/2017":                   "02-jan-2017",
		"2017.01.02":                   "02-jan-2017",
		"2017/01/02":                   "02-jan-2017",
		"2017-01-02 15:00:00":          "02-jan-2017",
		"20170102 15:00:00":            "02-jan-2017",
		"02-Jan-2017 15:00:00 UTC":     "02-jan-2017",
		"Mon Jan 02 15:00:00 GMT 2017": "02-jan-2017",
		"2017-01-02T15:00:00Z":         "02-jan-2017",
		"2017-01-02T15:00:00.0Z":       "02-jan-2017",
		"2017-01-02T15:00:00+02:00":    "02-jan-2017",
		"2017. 01. 02.":                "02-jan-2017",
		"20170102":                     "02-jan-2017",
		"2.1.2017":                     "02-jan-2017",
		"January 2, 2017":              "02-jan-2017",
		"2017年01月02日":                  "02-jan-2017",
		"Monday, 2 January 2017":       "02-jan-2017",
	}

	for raw, want := range cases {
		got, ok := NormalizeDate(raw)
		require.True(t, ok, raw)
		require.Equal(t, want, got, raw)
	}

	_, ok := NormalizeDate("This is not a date")
	require.False(t, ok)
	_, ok = NormalizeDate("2017-13-02")
	require.False(t, ok)
}

func TestExtractLabels(t *testing.T) {
	extractor := NewExtractor(nil)

	record := strings.Join([]string{
		"   Domain Name: EXAMPLE.COM",
		"   Registrar: Example Registrar, Inc.",
		"   Registrar Registration Expiration Date: ",
		"   Registry Expiry Date: 2028-08-13T04:00:00Z",
		">>> Last update of whois database: 2025-01-01T00:00:00Z <<<",
	}, "\r\n")
	require.Equal(t, "13-aug-2028", extractor.Extract(record))
	require.Equal(t, "Example Registrar, Inc.", Registrar(record))

	require.Equal(t, "02-jan-2017", extractor.Extract("domain: example.ru\npaid-till: 2017-01-02T21:00:00Z\n"))
	require.Equal(t, "02-jan-2017", extractor.Extract("Expiration Date    : 02-Jan-2017 15:00:00 UTC"))
	require.Equal(t, "", extractor.Extract("No match for domain \"EXAMPLE.COM\"."))
	require.Equal(t, "", extractor.Extract("expire: never"))
}

func TestExtractLogsUnparsedDate(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	extractor := NewExtractor(zap.New(core))

	require.Equal(t, "", extractor.Extract("Expiry Date: 31st of Smarch 20xx 17"))
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "31st of Smarch 20xx 17", logs.All()[0].ContextMap()["raw"])
}

func TestMonthCode(t *testing.T) {
	for _, value := range []string{"1", "01", "jan", "Jan.", "January", "JANUARY"} {
		code, ok := monthCode(value)
		require.True(t, ok, value)
		require.Equal(t, "jan", code, value)
	}
	_, ok := monthCode("13")
	require.False(t, ok)
	_, ok = monthCode("xy")
	require.False(t, ok)
}

func TestTable(t *testing.T) {
	table := DefaultTable()
	server, ok := table.Server("com")
	require.True(t, ok)
	require.Equal(t, "whois.verisign-grs.com", server)

	_, ok = table.Server("gr")
	require.False(t, ok)
	require.True(t, table.Ignored("GR"))

	_, ok = table.Server("notanextension")
	require.False(t, ok)

	overridden := table.WithOverrides(map[string]string{"com": "whois.example.test"}, []string{"io"})
	server, _ = overridden.Server(".COM")
	require.Equal(t, "whois.example.test", server)
	_, ok = overridden.Server("io")
	require.False(t, ok)

	server, _ = table.Server("com")
	require.Equal(t, "whois.verisign-grs.com", server)
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("servers:\n  example: whois.nic.example\nignored:\n  - com\n"), 0o600))

	table, err := LoadTable(path)
	require.NoError(t, err)
	server, ok := table.Server("example")
	require.True(t, ok)
	require.Equal(t, "whois.nic.example", server)
	_, ok = table.Server("com")
	require.False(t, ok)
}

func startWhoisServer(t *testing.T, reply func(query string) string) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			line, _ := bufio.NewReader(conn).ReadString('\n')
			_, _ = conn.Write([]byte(reply(strings.TrimRight(line, "\r\n"))))
			_ = conn.Close()
		}
	}()

	_, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	return port
}

func TestClientLookup(t *testing.T) {
	record := strings.Repeat("x", 10000) + "\nRegistry Expiry Date: 2030-05-06T00:00:00Z\n"
	received := make(chan string, 1)
	port := startWhoisServer(t, func(query string) string {
		received <- query
		return record
	})

	table := NewTable(map[string]string{"com": "127.0.0.1"}, nil)
	client := NewClient(table, time.Second, WithPort(port))

	resp := client.Lookup(context.Background(), "example.com", "")
	require.NotNil(t, resp)
	require.Equal(t, "example.com", <-received)
	require.Equal(t, "127.0.0.1", resp.Server)
	require.Equal(t, record, resp.Body)
	require.Equal(t, "06-may-2030", NewExtractor(nil).Extract(resp.Body))
}

func TestClientLookupInvalidUTF8(t *testing.T) {
	port := startWhoisServer(t, func(string) string {
		return "owner: caf\xe9\n"
	})
	client := NewClient(NewTable(nil, nil), time.Second, WithPort(port))

	resp := client.Lookup(context.Background(), "example.com", "127.0.0.1")
	require.NotNil(t, resp)
	require.Equal(t, "owner: caf�\n", resp.Body)
}

func TestClientLookupWithoutServer(t *testing.T) {
	dialed := false
	client := NewClient(NewTable(map[string]string{"com": "whois.example"}, []string{"gr"}), time.Second,
		WithDialer(func(context.Context, string, string) (net.Conn, error) {
			dialed = true
			return nil, net.ErrClosed
		}))

	require.Nil(t, client.Lookup(context.Background(), "example.gr", ""))
	require.Nil(t, client.Lookup(context.Background(), "example.zz", ""))
	require.False(t, dialed)

	require.Nil(t, client.Lookup(context.Background(), "example.com", ""))
	require.True(t, dialed)
}

func TestClientReferral(t *testing.T) {
	port := startWhoisServer(t, func(query string) string {
		return "% IANA WHOIS server\n\ndomain:       " + strings.ToUpper(query) + "\nrefer:        whois.nic." + query + "\n"
	})
	client := NewClient(NewTable(nil, nil), time.Second, WithDialer(func(ctx context.Context, network, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, net.JoinHostPort("127.0.0.1", port))
	}))

	server, err := client.Referral(context.Background(), "example")
	require.NoError(t, err)
	require.Equal(t, "whois.nic.example", server)
}

func TestRDAPLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rdap+json")
		_, _ = w.Write([]byte(`{
  "objectClassName": "domain",
  "ldhName": "example.dev",
  "events": [{"eventAction": "expiration", "eventDate": "2027-03-04T00:00:00Z"}]
}`))
	}))
	defer srv.Close()

	serverURL, err := url.Parse(srv.URL)
	require.NoError(t, err)

	record := (&RDAP{Server: serverURL, Timeout: time.Second}).Lookup(context.Background(), "example.dev")
	require.NotNil(t, record)
	require.Equal(t, "04-mar-2027", record.ExpirationDate)
	require.Equal(t, rdapSource, record.Source)
}
