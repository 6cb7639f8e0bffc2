// Package httpprobe issues HTTP requests whose connections are pinned to
// addresses resolved through the configured DNS servers.
package httpprobe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/dnsquery"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultUserAgent = "reachlens/1 (+https://github.com/namelens/reachlens)"
	maxBodyBytes     = 1 << 20
	maxRedirects     = 10
)

// Resolver is the DNS surface used for pinning.
type Resolver interface {
	Query(ctx context.Context, name, recordType string) (dnsquery.Result, error)
}

// Config controls probe behavior.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	VerifyTLS bool
}

// Request selects per-call options.
type Request struct {
	AllowRedirects bool
	// PinDNS resolves the host through the Resolver instead of the system.
	PinDNS bool
	// ReadBody keeps up to 1 MiB of the response body.
	ReadBody bool
}

// Response is the part of an HTTP answer the checks look at.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       string
	// Addr is the address the connection was pinned to, if any.
	Addr string
}

// Prober is satisfied by Probe.
type Prober interface {
	Probe(ctx context.Context, rawURL string, req Request) (*Response, bool)
}

// Probe performs HTTP requests. Every call builds its own transport, so a
// Probe is safe for concurrent use.
type Probe struct {
	resolver  Resolver
	timeout   time.Duration
	userAgent string
	verifyTLS bool
	logger    core.Logger
}

// New builds a Probe. resolver may be nil when pinning is never requested.
func New(resolver Resolver, cfg Config, logger core.Logger) *Probe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Probe{
		resolver:  resolver,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		verifyTLS: cfg.VerifyTLS,
		logger:    logger,
	}
}

// StatusCode returns the response status code of rawURL, or false when the
// request fails for any reason.
func (p *Probe) StatusCode(ctx context.Context, rawURL string, allowRedirects, pinDNS bool) (int, bool) {
	resp, ok := p.Probe(ctx, rawURL, Request{AllowRedirects: allowRedirects, PinDNS: pinDNS})
	if !ok {
		return 0, false
	}
	return resp.StatusCode, true
}

// Probe performs a GET request against rawURL.
func (p *Probe) Probe(ctx context.Context, rawURL string, req Request) (*Response, bool) {
	resp, err := p.do(ctx, rawURL, req)
	if err != nil {
		p.logger.Debug("HTTP probe failed", zap.String("url", rawURL), zap.Error(err))
		return nil, false
	}
	return resp, true
}

func (p *Probe) do(ctx context.Context, rawURL string, opts Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	pinned := &pinnedDialer{resolver: p.resolver, dialer: &net.Dialer{Timeout: p.timeout}}
	transport := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   p.timeout,
		ResponseHeaderTimeout: p.timeout,
		DisableKeepAlives:     true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !p.verifyTLS, // nolint:gosec // verification is opt-in via http.verify_tls
			MinVersion:         tls.VersionTLS10,
		},
	}
	if opts.PinDNS {
		transport.DialContext = pinned.DialContext
	} else {
		transport.DialContext = pinned.dialer.DialContext
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !opts.AllowRedirects {
				return http.ErrUseLastResponse
			}
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Addr: pinned.lastAddr()}
	if opts.ReadBody {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		out.Body = string(body)
	}
	return out, nil
}

type pinnedDialer struct {
	resolver Resolver
	dialer   *net.Dialer

	mu   sync.Mutex
	last string
}

func (d *pinnedDialer) remember(addr string) {
	d.mu.Lock()
	d.last = addr
	d.mu.Unlock()
}

func (d *pinnedDialer) lastAddr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// DialContext replaces the host of address with an A record from the
// resolver. TLS and the Host header still use the original name because the
// transport derives them from the request URL, not from the dialed address.
func (d *pinnedDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	if _, err := netip.ParseAddr(host); err == nil {
		d.remember(address)
		return d.dialer.DialContext(ctx, network, address)
	}
	if d.resolver == nil {
		return nil, errors.New("dns pinning requested without a resolver")
	}

	result, err := d.resolver.Query(ctx, host, "A")
	if err != nil {
		return nil, err
	}
	if !result.Found() {
		return nil, fmt.Errorf("no A record for %s", host)
	}

	var lastErr error
	for _, ip := range result.Records {
		target := net.JoinHostPort(ip, port)
		conn, err := d.dialer.DialContext(ctx, network, target)
		if err == nil {
			d.remember(target)
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
