package dnsquery

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	dohContentType = "application/dns-message"
	dohMaxBytes    = 64 * 1024
)

// Exchanger sends one DNS message to one server.
type Exchanger interface {
	Exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error)
}

// ExchangerFunc adapts a function to Exchanger.
type ExchangerFunc func(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error)

// Exchange calls f.
func (f ExchangerFunc) Exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	return f(ctx, msg, server)
}

// NewExchanger returns the wire transport for a protocol.
func NewExchanger(protocol Protocol, timeout time.Duration) (Exchanger, error) {
	switch protocol {
	case ProtocolUDP:
		return &classicExchanger{network: "udp", timeout: timeout, tcpFallback: true}, nil
	case ProtocolTCP:
		return &classicExchanger{network: "tcp", timeout: timeout}, nil
	case ProtocolTLS:
		return &classicExchanger{network: "tcp-tls", timeout: timeout}, nil
	case ProtocolHTTPS:
		return &dohExchanger{client: &http.Client{Timeout: timeout}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
	}
}

type classicExchanger struct {
	network     string
	timeout     time.Duration
	tcpFallback bool
}

func (e *classicExchanger) Exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	client := &dns.Client{Net: e.network, Timeout: e.timeout}
	if e.network == "tcp-tls" {
		host, _, err := net.SplitHostPort(server)
		if err != nil {
			host = server
		}
		client.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}

	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Truncated && e.tcpFallback {
		tcp := &dns.Client{Net: "tcp", Timeout: e.timeout}
		resp, _, err = tcp.ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

type dohExchanger struct {
	client *http.Client
}

func (e *dohExchanger) Exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	packed, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server, bytes.NewReader(packed))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", dohContentType)
	req.Header.Set("Accept", dohContentType)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("doh server returned status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, dohContentType) {
		return nil, fmt.Errorf("doh server returned content type %q", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, dohMaxBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("doh server returned empty body")
	}

	answer := new(dns.Msg)
	if err := answer.Unpack(body); err != nil {
		return nil, fmt.Errorf("unpack response: %w", err)
	}
	return answer, nil
}
