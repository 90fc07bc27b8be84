// Package akismet classifies submissions with the Akismet comment-check API.
package akismet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/itchan-dev/itboard/shared/domain"
)

const defaultEndpoint = "https://%s.rest.akismet.com/1.1/comment-check"

type Client struct {
	key      string
	blog     string
	endpoint string
	http     *http.Client
}

type Option func(*Client)

// WithEndpoint overrides the comment-check URL. A %s verb, if present, is
// replaced with the API key.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client. With an empty key every submission is classified as ham.
func New(key, blog string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	c := &Client{
		key:      key,
		blog:     blog,
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Enabled() bool {
	return c.key != ""
}

// Spam reports whether Akismet considers the content spam. Transport errors
// and unexpected responses are returned as errors; callers decide whether
// to fail open.
func (c *Client) Spam(ctx context.Context, body, title string, client domain.ClientInfo) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	form := url.Values{
		"blog":            {c.blog},
		"user_ip":         {client.IpAddress},
		"user_agent":      {client.UserAgent},
		"referrer":        {client.Referrer},
		"comment_type":    {"forum-post"},
		"comment_content": {body},
	}
	if title != "" {
		form.Set("comment_content", title+"\n"+body)
	}

	endpoint := c.endpoint
	if strings.Contains(endpoint, "%s") {
		endpoint = fmt.Sprintf(endpoint, c.key)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("akismet: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "itboard/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("akismet: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return false, fmt.Errorf("akismet: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("akismet: unexpected status %d", resp.StatusCode)
	}
	switch strings.TrimSpace(string(raw)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		// "invalid" plus an X-Akismet-Debug-Help header on a bad key
		return false, fmt.Errorf("akismet: unexpected response %q: %s", raw, resp.Header.Get("X-Akismet-Debug-Help"))
	}
}
