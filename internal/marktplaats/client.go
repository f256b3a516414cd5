package marktplaats

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/dyike/marktbot/internal/logger"
)

const (
	LoginPagePath = "/identity/v2/login"
	LoginAPIPath  = "/identity/v2/api/login"
	SendPath      = "/messages/api/send"
	InboxPath     = "/messages/api/inbox"
)

type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Client is a marketplace HTTP client with its own cookie jar. Anonymous
// search traffic uses a bare Client; an authenticated Session wraps the
// Client whose jar was populated during login.
type Client struct {
	rc      *resty.Client
	jar     http.CookieJar
	baseURL string
	log     *zap.Logger
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("marktplaats: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("marktplaats: invalid base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("marktplaats: create cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rc := resty.New()
	rc.SetBaseURL(base)
	rc.SetTimeout(timeout)
	rc.SetCookieJar(jar)
	rc.SetHeader("Accept", "application/json, text/plain, */*")
	if opts.UserAgent != "" {
		rc.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Client{
		rc:      rc,
		jar:     jar,
		baseURL: base,
		log:     logger.OrNop(opts.Logger),
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Jar() http.CookieJar { return c.jar }

// Fetch performs a GET and returns the body of a 2xx response.
func (c *Client) Fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req := c.rc.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, &TransportError{Op: "GET", URL: c.resolve(path), Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &TransportError{Op: "GET", URL: c.resolve(path), StatusCode: resp.StatusCode()}
	}
	c.log.Debug("fetched", zap.String("path", path), zap.Int("bytes", len(resp.Body())))
	return resp.Body(), nil
}

// ResolveURL turns a site-relative href into an absolute URL.
func (c *Client) ResolveURL(href string) string {
	return c.resolve(href)
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return c.baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}
