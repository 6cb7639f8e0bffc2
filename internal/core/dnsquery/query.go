// Package dnsquery issues DNS queries against an ordered server list over
// UDP, TCP, DNS-over-TLS or DNS-over-HTTPS.
package dnsquery

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/core"
)

// Protocol selects the DNS transport.
type Protocol string

const (
	ProtocolUDP   Protocol = "UDP"
	ProtocolTCP   Protocol = "TCP"
	ProtocolTLS   Protocol = "TLS"
	ProtocolHTTPS Protocol = "HTTPS"
)

const (
	defaultTimeout = 5 * time.Second
	resolvConfPath = "/etc/resolv.conf"
)

var (
	// ErrUnsupportedProtocol is returned for unknown transports.
	ErrUnsupportedProtocol = errors.New("unsupported dns protocol")
	// ErrUnsupportedRecordType is returned for record types the tool does not query.
	ErrUnsupportedRecordType = errors.New("unsupported dns record type")

	fallbackServers = []string{"1.1.1.1", "8.8.8.8"}

	recordTypes = map[string]uint16{
		"A":     dns.TypeA,
		"AAAA":  dns.TypeAAAA,
		"CNAME": dns.TypeCNAME,
		"NS":    dns.TypeNS,
		"PTR":   dns.TypePTR,
		"SOA":   dns.TypeSOA,
		"TXT":   dns.TypeTXT,
		"MX":    dns.TypeMX,
	}
)

// ParseProtocol normalizes a protocol name.
func ParseProtocol(value string) (Protocol, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "UDP":
		return ProtocolUDP, nil
	case "TCP":
		return ProtocolTCP, nil
	case "TLS", "DOT":
		return ProtocolTLS, nil
	case "HTTPS", "DOH":
		return ProtocolHTTPS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, value)
}

// Config describes how queries are issued. It is copied at construction.
type Config struct {
	Servers           []string
	Protocol          Protocol
	Timeout           time.Duration
	TrustServer       bool
	FollowServerOrder bool
}

// Result is the outcome of one logical query.
type Result struct {
	Name       string
	RecordType string
	Protocol   Protocol
	Records    []string
	// Tried lists every server contacted, in order.
	Tried []string
}

// Found reports whether any record was returned.
func (r Result) Found() bool {
	return len(r.Records) > 0
}

// Tool runs queries. It is safe for concurrent use.
type Tool struct {
	servers     []string
	protocol    Protocol
	timeout     time.Duration
	trust       bool
	followOrder bool
	exchanger   Exchanger
	shuffle     func([]string)
	logger      core.Logger
}

// Option customizes a Tool.
type Option func(*Tool)

// WithExchanger replaces the wire transport.
func WithExchanger(exchanger Exchanger) Option {
	return func(t *Tool) {
		t.exchanger = exchanger
	}
}

// WithShuffle replaces the server shuffler used when order is not followed.
func WithShuffle(shuffle func([]string)) Option {
	return func(t *Tool) {
		t.shuffle = shuffle
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(t *Tool) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New builds a Tool from cfg.
func New(cfg Config, opts ...Option) (*Tool, error) {
	protocol := cfg.Protocol
	if protocol == "" {
		protocol = ProtocolUDP
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	servers := cfg.Servers
	if len(servers) == 0 {
		servers = systemServers()
	}
	normalized := make([]string, 0, len(servers))
	for _, server := range servers {
		if addr := normalizeServer(server, protocol); addr != "" {
			normalized = append(normalized, addr)
		}
	}

	tool := &Tool{
		servers:     normalized,
		protocol:    protocol,
		timeout:     timeout,
		trust:       cfg.TrustServer,
		followOrder: cfg.FollowServerOrder,
		shuffle: func(list []string) {
			rand.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
		},
		logger: core.NopLogger(),
	}
	for _, opt := range opts {
		opt(tool)
	}

	if tool.exchanger == nil {
		exchanger, err := NewExchanger(protocol, timeout)
		if err != nil {
			return nil, err
		}
		tool.exchanger = exchanger
	}
	return tool, nil
}

// Servers returns the normalized server list.
func (t *Tool) Servers() []string {
	return append([]string(nil), t.servers...)
}

// Protocol returns the configured transport.
func (t *Tool) Protocol() Protocol {
	return t.protocol
}

// Query resolves name for recordType. Per-server transport failures are
// skipped; an empty Result means no server produced a record.
func (t *Tool) Query(ctx context.Context, name, recordType string) (Result, error) {
	recordType = strings.ToUpper(strings.TrimSpace(recordType))
	qtype, ok := recordTypes[recordType]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedRecordType, recordType)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, core.NewContractError("dnsquery.Query", core.ErrEmptySubject)
	}

	result := Result{Name: name, RecordType: recordType, Protocol: t.protocol}

	for _, server := range t.order() {
		if ctx.Err() != nil {
			break
		}
		result.Tried = append(result.Tried, server)

		records, err := t.ask(ctx, server, name, qtype)
		if err != nil {
			t.logger.Debug("DNS server gave no answer",
				zap.String("server", server),
				zap.String("name", name),
				zap.String("type", recordType),
				zap.Error(err))
			continue
		}

		if len(records) > 0 {
			result.Records = records
			return result, nil
		}
		if t.trust {
			return result, nil
		}
	}

	return result, nil
}

func (t *Tool) ask(ctx context.Context, server, name string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	queryCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.exchanger.Exchange(queryCtx, msg, server)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("empty response")
	}
	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
	default:
		return nil, fmt.Errorf("server answered %s", dns.RcodeToString[resp.Rcode])
	}

	var records []string
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != qtype {
			continue
		}
		if value := rrValue(rr); value != "" {
			records = append(records, value)
		}
	}
	return records, nil
}

func (t *Tool) order() []string {
	servers := append([]string(nil), t.servers...)
	if !t.followOrder && len(servers) > 1 && t.shuffle != nil {
		t.shuffle(servers)
	}
	return servers
}

// ReverseName returns the PTR query name for an IP literal.
func ReverseName(ip string) (string, error) {
	return dns.ReverseAddr(ip)
}

func rrValue(rr dns.RR) string {
	switch v := rr.(type) {
	case *dns.A:
		return v.A.String()
	case *dns.AAAA:
		return v.AAAA.String()
	case *dns.CNAME:
		return v.Target
	case *dns.NS:
		return v.Ns
	case *dns.PTR:
		return v.Ptr
	case *dns.MX:
		return fmt.Sprintf("%d %s", v.Preference, v.Mx)
	case *dns.TXT:
		return strings.Join(v.Txt, "")
	case *dns.SOA:
		return fmt.Sprintf("%s %s %d %d %d %d %d", v.Ns, v.Mbox, v.Serial, v.Refresh, v.Retry, v.Expire, v.Minttl)
	default:
		return strings.TrimSpace(strings.TrimPrefix(rr.String(), rr.Header().String()))
	}
}

func normalizeServer(server string, protocol Protocol) string {
	server = strings.TrimSpace(server)
	if server == "" {
		return ""
	}

	if protocol == ProtocolHTTPS {
		if strings.HasPrefix(server, "https://") || strings.HasPrefix(server, "http://") {
			return server
		}
		return "https://" + server + "/dns-query"
	}

	port := "53"
	if protocol == ProtocolTLS {
		port = "853"
	}
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), port)
}

func systemServers() []string {
	conf, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil || len(conf.Servers) == 0 {
		return fallbackServers
	}
	return conf.Servers
}
