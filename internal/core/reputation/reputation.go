// Package reputation asks an external classification service whether a
// subject is known to be malicious.
package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/core"
)

const (
	defaultTimeout = 5 * time.Second
	maxReplyBytes  = 64 * 1024
)

// Config locates the classification API.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// Client calls the classification API. It is safe for concurrent use.
type Client struct {
	url    string
	token  string
	http   *http.Client
	logger core.Logger
}

type checkRequest struct {
	Subject string `json:"subject"`
}

type checkReply struct {
	Status  string `json:"status"`
	Verdict string `json:"verdict"`
}

// New builds a Client. It returns nil when no URL is configured.
func New(cfg Config, logger core.Logger) *Client {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Client{
		url:    strings.TrimSpace(cfg.URL),
		token:  cfg.Token,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Check returns SANE or MALICIOUS, or false when no verdict was obtained.
func (c *Client) Check(ctx context.Context, subject string) (core.StatusValue, bool) {
	if c == nil {
		return "", false
	}
	verdict, err := c.check(ctx, subject)
	if err != nil {
		c.logger.Debug("Reputation lookup gave no verdict", zap.String("subject", subject), zap.Error(err))
		return "", false
	}
	return verdict, true
}

func (c *Client) check(ctx context.Context, subject string) (core.StatusValue, error) {
	payload, err := json.Marshal(checkRequest{Subject: subject})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("reputation api returned status %d", resp.StatusCode)
	}

	var reply checkReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBytes)).Decode(&reply); err != nil {
		return "", fmt.Errorf("decode reputation reply: %w", err)
	}

	value := reply.Status
	if value == "" {
		value = reply.Verdict
	}
	return parseVerdict(value)
}

func parseVerdict(value string) (core.StatusValue, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "malicious", "bad", "blocked":
		return core.StatusMalicious, nil
	case "sane", "clean", "safe", "harmless", "good":
		return core.StatusSane, nil
	case "":
		return "", errors.New("reputation reply carries no verdict")
	default:
		return "", fmt.Errorf("unknown reputation verdict %q", value)
	}
}
