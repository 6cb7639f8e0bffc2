package dnsquery

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"github.com/namelens/reachlens/internal/core"
)

type scriptedExchanger struct {
	mu      sync.Mutex
	calls   []string
	answers map[string]func(*dns.Msg) (*dns.Msg, error)
}

func (s *scriptedExchanger) Exchange(_ context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	s.mu.Lock()
	s.calls = append(s.calls, server)
	s.mu.Unlock()
	if fn, ok := s.answers[server]; ok {
		return fn(msg)
	}
	return nil, errors.New("unreachable")
}

func negative(msg *dns.Msg) (*dns.Msg, error) {
	resp := new(dns.Msg)
	resp.SetRcode(msg, dns.RcodeNameError)
	return resp, nil
}

func positiveA(ip string) func(*dns.Msg) (*dns.Msg, error) {
	return func(msg *dns.Msg) (*dns.Msg, error) {
		resp := new(dns.Msg)
		resp.SetReply(msg)
		rr, err := dns.NewRR(msg.Question[0].Name + " 60 IN A " + ip)
		if err != nil {
			return nil, err
		}
		resp.Answer = append(resp.Answer, rr)
		return resp, nil
	}
}

func newTool(t *testing.T, trust bool, ex Exchanger) *Tool {
	t.Helper()
	tool, err := New(Config{
		Servers:           []string{"10.0.0.1", "10.0.0.2"},
		TrustServer:       trust,
		FollowServerOrder: true,
	}, WithExchanger(ex))
	require.NoError(t, err)
	return tool
}

func TestTrustServerStopsOnFirstNegative(t *testing.T) {
	ex := &scriptedExchanger{answers: map[string]func(*dns.Msg) (*dns.Msg, error){
		"10.0.0.1:53": negative,
		"10.0.0.2:53": positiveA("192.0.2.1"),
	}}
	tool := newTool(t, true, ex)

	res, err := tool.Query(context.Background(), "example.com", "A")
	require.NoError(t, err)
	require.False(t, res.Found())
	require.Equal(t, []string{"10.0.0.1:53"}, ex.calls)
}

func TestUntrustedServerQueriesNext(t *testing.T) {
	ex := &scriptedExchanger{answers: map[string]func(*dns.Msg) (*dns.Msg, error){
		"10.0.0.1:53": negative,
		"10.0.0.2:53": positiveA("192.0.2.1"),
	}}
	tool := newTool(t, false, ex)

	res, err := tool.Query(context.Background(), "example.com", "A")
	require.NoError(t, err)
	require.Equal(t, []string{"192.0.2.1"}, res.Records)
	require.Equal(t, []string{"10.0.0.1:53", "10.0.0.2:53"}, ex.calls)
}

func TestUntrustedAllNegative(t *testing.T) {
	ex := &scriptedExchanger{answers: map[string]func(*dns.Msg) (*dns.Msg, error){
		"10.0.0.1:53": negative,
		"10.0.0.2:53": negative,
	}}
	tool := newTool(t, false, ex)

	res, err := tool.Query(context.Background(), "example.com", "A")
	require.NoError(t, err)
	require.False(t, res.Found())
	require.Len(t, ex.calls, 2)
}

func TestTrustServerSkipsTransportErrors(t *testing.T) {
	ex := &scriptedExchanger{answers: map[string]func(*dns.Msg) (*dns.Msg, error){
		"10.0.0.2:53": positiveA("192.0.2.7"),
	}}
	tool := newTool(t, true, ex)

	res, err := tool.Query(context.Background(), "example.com", "A")
	require.NoError(t, err)
	require.Equal(t, []string{"192.0.2.7"}, res.Records)
	require.Equal(t, []string{"10.0.0.1:53", "10.0.0.2:53"}, res.Tried)
}

func TestServerFailureRcodeIsSkipped(t *testing.T) {
	ex := &scriptedExchanger{answers: map[string]func(*dns.Msg) (*dns.Msg, error){
		"10.0.0.1:53": func(msg *dns.Msg) (*dns.Msg, error) {
			resp := new(dns.Msg)
			resp.SetRcode(msg, dns.RcodeServerFailure)
			return resp, nil
		},
		"10.0.0.2:53": positiveA("192.0.2.9"),
	}}
	tool := newTool(t, true, ex)

	res, err := tool.Query(context.Background(), "example.com", "A")
	require.NoError(t, err)
	require.Equal(t, []string{"192.0.2.9"}, res.Records)
}

func TestShuffleWhenOrderNotFollowed(t *testing.T) {
	ex := &scriptedExchanger{answers: map[string]func(*dns.Msg) (*dns.Msg, error){
		"10.0.0.1:53": negative,
		"10.0.0.2:53": negative,
	}}
	reverse := func(list []string) {
		for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
			list[i], list[j] = list[j], list[i]
		}
	}
	tool, err := New(Config{
		Servers:     []string{"10.0.0.1", "10.0.0.2"},
		TrustServer: true,
	}, WithExchanger(ex), WithShuffle(reverse))
	require.NoError(t, err)

	_, err = tool.Query(context.Background(), "example.com", "A")
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.2:53"}, ex.calls)
	require.Equal(t, []string{"10.0.0.1:53", "10.0.0.2:53"}, tool.Servers())
}

func TestQueryRejectsUnsupportedType(t *testing.T) {
	tool := newTool(t, true, &scriptedExchanger{})
	_, err := tool.Query(context.Background(), "example.com", "HINFO")
	require.ErrorIs(t, err, ErrUnsupportedRecordType)

	_, err = tool.Query(context.Background(), " ", "A")
	var contract *core.ContractError
	require.ErrorAs(t, err, &contract)
}

func TestParseProtocol(t *testing.T) {
	p, err := ParseProtocol("doh")
	require.NoError(t, err)
	require.Equal(t, ProtocolHTTPS, p)

	p, err = ParseProtocol("")
	require.NoError(t, err)
	require.Equal(t, ProtocolUDP, p)

	_, err = ParseProtocol("QUIC")
	require.ErrorIs(t, err, ErrUnsupportedProtocol)
}

func TestNormalizeServer(t *testing.T) {
	require.Equal(t, "9.9.9.9:53", normalizeServer("9.9.9.9", ProtocolUDP))
	require.Equal(t, "9.9.9.9:853", normalizeServer("9.9.9.9", ProtocolTLS))
	require.Equal(t, "[2620:fe::fe]:53", normalizeServer("2620:fe::fe", ProtocolTCP))
	require.Equal(t, "127.0.0.1:5353", normalizeServer("127.0.0.1:5353", ProtocolUDP))
	require.Equal(t, "https://dns.example/dns-query", normalizeServer("dns.example", ProtocolHTTPS))
}

func TestUDPAgainstLocalServer(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &dns.Server{
		PacketConn: pc,
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			resp := new(dns.Msg)
			resp.SetReply(r)
			rr, _ := dns.NewRR("example.com. 60 IN NS ns1.example.net.")
			resp.Answer = append(resp.Answer, rr)
			_ = w.WriteMsg(resp)
		}),
	}
	started := make(chan struct{})
	server.NotifyStartedFunc = func() { close(started) }
	go func() { _ = server.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = server.Shutdown() })

	tool, err := New(Config{Servers: []string{pc.LocalAddr().String()}, Protocol: ProtocolUDP, FollowServerOrder: true})
	require.NoError(t, err)

	res, err := tool.Query(context.Background(), "example.com", "NS")
	require.NoError(t, err)
	require.Equal(t, []string{"ns1.example.net."}, res.Records)
}

func TestDoHExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, dohContentType, r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		query := new(dns.Msg)
		require.NoError(t, query.Unpack(body))

		resp := new(dns.Msg)
		resp.SetReply(query)
		rr, _ := dns.NewRR(query.Question[0].Name + " 60 IN AAAA 2001:db8::5")
		resp.Answer = append(resp.Answer, rr)
		packed, err := resp.Pack()
		require.NoError(t, err)
		w.Header().Set("Content-Type", dohContentType)
		_, _ = w.Write(packed)
	}))
	defer srv.Close()

	tool, err := New(Config{Servers: []string{srv.URL}, Protocol: ProtocolHTTPS, FollowServerOrder: true})
	require.NoError(t, err)

	res, err := tool.Query(context.Background(), "example.com", "AAAA")
	require.NoError(t, err)
	require.Equal(t, []string{"2001:db8::5"}, res.Records)
}

func TestReverseName(t *testing.T) {
	name, err := ReverseName("192.0.2.1")
	require.NoError(t, err)
	require.Equal(t, "1.2.0.192.in-addr.arpa.", name)
}
