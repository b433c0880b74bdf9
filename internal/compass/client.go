// Package compass talks to the compass plugin of a CALDERA server.
package compass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("compass.client")

// Plugin routes.
const (
	LayerPath       = "/plugin/compass/layer"
	AdversaryPath   = "/plugin/compass/adversary"
	AdversariesPath = "/api/v2/adversaries"
)

// APIKeyHeader is the header CALDERA reads API keys from.
const APIKeyHeader = "KEY"

const defaultTimeout = 30 * time.Second

// Client issues requests against one server.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithAPIKey sends key in the KEY header of every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// WithHTTPClient replaces the underlying HTTP client. hc is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request, whatever HTTP client is in use. Zero
// keeps the client's own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New returns a client for the server at baseURL. Without options it sends no
// API key and gives up on requests after 30s.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// BaseURL returns the server root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// PostJSON sends in as a JSON body and decodes the response into out when out
// is non-nil.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Annotate(err, "encode request")
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// GetJSON decodes the response of a GET into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, errors.NotValidf("empty server URL")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Annotatef(err, "build %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Annotatef(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()
	logger.Debugf("%s %s -> %d (%s)", req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return statusError(req, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.Annotatef(err, "read %s", req.URL.Path)
		}
		*raw = b
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Annotatef(err, "decode %s", req.URL.Path)
	}
	return nil
}

func statusError(req *http.Request, code int, body string) error {
	what := fmt.Sprintf("%s %s", req.Method, req.URL.Path)
	if body != "" {
		what += ": " + body
	}
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Unauthorizedf("%s (%d)", what, code)
	case http.StatusNotFound:
		return errors.NotFoundf("%s", what)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.BadRequestf("%s (%d)", what, code)
	default:
		return errors.Errorf("%s: server returned %d", what, code)
	}
}
