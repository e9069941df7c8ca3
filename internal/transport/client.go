// Package transport is the JSON-over-HTTP plumbing shared by the source
// reader and the target writer.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexanderramin/planmigrate/internal/domain"
)

const (
	ContentTypeJSON      = "application/json"
	ContentTypeJSONPatch = "application/json-patch+json"
)

// Config holds the endpoint and credentials of one remote service.
type Config struct {
	BaseURL string
	User    string
	Token   string
	Timeout time.Duration
}

// Request describes a single call. Path is relative to the base URL.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	ContentType string
}

// Client performs authenticated JSON requests against one base URL.
type Client struct {
	base  *url.URL
	user  string
	token string
	http  *http.Client
}

// New creates a Client. The dial timeout is fixed; Config.Timeout bounds a
// whole request.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	return &Client{
		base:  base,
		user:  cfg.User,
		token: cfg.Token,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 4,
			},
		},
	}, nil
}

// Do sends req and decodes a successful JSON response into out (when out is
// non-nil). Failures are classified:
//   - no response at all: wrapped ErrTransientTransport
//   - 401/403: wrapped ErrAuthentication
//   - any other non-2xx: *domain.StatusError
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	u := c.base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", ContentTypeJSON)
	if body != nil {
		ct := req.ContentType
		if ct == "" {
			ct = ContentTypeJSON
		}
		httpReq.Header.Set("Content-Type", ct)
	}
	if c.user != "" || c.token != "" {
		httpReq.SetBasicAuth(c.user, c.token)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrTransientTransport, req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response of %s %s: %v", domain.ErrTransientTransport, req.Method, req.Path, err)
	}

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s returned status %d", domain.ErrAuthentication, req.Method, req.Path, httpResp.StatusCode)
	case httpResp.StatusCode < 200 || httpResp.StatusCode > 299:
		return &domain.StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: httpResp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response of %s %s: %w", req.Method, req.Path, err)
	}
	return nil
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// StatusCode extracts the HTTP status of a *domain.StatusError, or 0.
func StatusCode(err error) int {
	var se *domain.StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
