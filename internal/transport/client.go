// Package transport is the HTTP client used for geocoding lookups. It sets
// the identifying headers public geo services require and applies optional
// key authentication.
package transport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/errors"
)

// DefaultUserAgent identifies the engine to upstream services.
const DefaultUserAgent = "listingmap/1.0"

// Client performs authenticated JSON GET requests.
type Client struct {
	http      *http.Client
	auth      Authenticator
	userAgent string
	language  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAuth sets the authenticator.
func WithAuth(a Authenticator) Option {
	return func(c *Client) { c.auth = a }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLanguage sets the Accept-Language header.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// New creates a transport client.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: constants.DefaultHTTPTimeout},
		auth:      &NoAuth{},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs a request with headers and authentication applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.auth.Apply(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}
	return c.http.Do(req)
}

// Get performs a GET request against base with query appended.
func (c *Client) Get(ctx context.Context, base string, query url.Values) (*http.Response, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.NewValidationError("url", base, err.Error())
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.NewValidationError("url", base, err.Error())
	}
	return c.Do(req)
}
