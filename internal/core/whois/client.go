// Package whois queries port-43 WHOIS servers and extracts the fields the
// availability checks rely on.
package whois

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/core"
)

const (
	ianaServer     = "whois.iana.org"
	defaultPort    = "43"
	readChunk      = 4096
	maxRecordBytes = 512 * 1024
	defaultTimeout = 5 * time.Second
)

// Response is a raw WHOIS answer.
type Response struct {
	Server string
	Body   string
}

// DialFunc opens a network connection.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Client performs WHOIS lookups. It holds no per-lookup state and is safe
// for concurrent use.
type Client struct {
	table   *Table
	timeout time.Duration
	port    string
	dial    DialFunc
	logger  core.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithPort changes the server port, mainly for tests.
func WithPort(port string) ClientOption {
	return func(c *Client) {
		if port != "" {
			c.port = port
		}
	}
}

// WithDialer replaces the dialer.
func WithDialer(dial DialFunc) ClientOption {
	return func(c *Client) {
		if dial != nil {
			c.dial = dial
		}
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger core.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a Client over an extension table.
func NewClient(table *Table, timeout time.Duration, opts ...ClientOption) *Client {
	if table == nil {
		table = DefaultTable()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}
	client := &Client{
		table:   table,
		timeout: timeout,
		port:    defaultPort,
		dial:    dialer.DialContext,
		logger:  core.NopLogger(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Timeout returns the per-lookup timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// ServerFor resolves the WHOIS server of a domain from the table.
func (c *Client) ServerFor(domain string) (string, bool) {
	return c.table.Server(Extension(domain))
}

// Lookup queries the WHOIS server for subject. When server is empty it is
// taken from the extension table. It returns nil when no server is known or
// the exchange fails.
func (c *Client) Lookup(ctx context.Context, subject, server string) *Response {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil
	}

	if server == "" {
		resolved, ok := c.ServerFor(subject)
		if !ok {
			return nil
		}
		server = resolved
	}

	body, err := c.query(ctx, server, subject)
	if err != nil {
		c.logger.Debug("WHOIS lookup failed",
			zap.String("server", server),
			zap.String("subject", subject),
			zap.Error(err))
		return nil
	}
	return &Response{Server: server, Body: body}
}

// Referral asks IANA which server is authoritative for an extension.
func (c *Client) Referral(ctx context.Context, extension string) (string, error) {
	extension = normalizeExtension(extension)
	if extension == "" {
		return "", errors.New("whois extension is required")
	}
	if c.table.Ignored(extension) {
		return "", fmt.Errorf("whois extension %s is ignored", extension)
	}

	response, err := c.query(ctx, ianaServer, extension)
	if err != nil {
		return "", fmt.Errorf("whois iana query failed: %w", err)
	}

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "refer:") || strings.HasPrefix(lower, "whois:") {
			parts := strings.SplitN(trimmed, ":", 2)
			if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
				return strings.TrimSpace(parts[1]), nil
			}
		}
	}

	return "", fmt.Errorf("no whois server for extension %s", extension)
}

func (c *Client) query(ctx context.Context, server, subject string) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", errors.New("whois server is required")
	}

	address := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		address = net.JoinHostPort(server, c.port)
	}

	conn, err := c.dial(ctx, "tcp", address)
	if err != nil {
		return "", fmt.Errorf("whois dial failed: %w", err)
	}
	defer conn.Close() // nolint:errcheck // best-effort cleanup on network connection

	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := fmt.Fprintf(conn, "%s\r\n", subject); err != nil {
		return "", fmt.Errorf("whois query failed: %w", err)
	}

	var body bytes.Buffer
	chunk := make([]byte, readChunk)
	for body.Len() < maxRecordBytes {
		n, err := conn.Read(chunk)
		body.Write(chunk[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whois read failed: %w", err)
		}
		if n == 0 {
			break
		}
	}

	return decode(body.Bytes()), nil
}

func decode(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}
