// Package vk publishes community wall posts and stories through the VK API.
package vk

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SevereCloud/vksdk/v3/api"

	"github.com/m3rciful/vkrelay/core/netutil"
)

const (
	// DefaultBaseURL is the VK method endpoint root.
	DefaultBaseURL = "https://api.vk.com/method"
	// DefaultVersion is the API version sent with every call.
	DefaultVersion = "5.199"
	// DefaultTimeout bounds one HTTP exchange including media uploads.
	DefaultTimeout = 60 * time.Second
)

// ErrInvalidToken is returned by ValidateToken when VK rejects the token.
var ErrInvalidToken = errors.New("vk: access token rejected")

// UploadError reports a failed media upload step.
type UploadError struct {
	Stage string
	Err   error
}

func (e *UploadError) Error() string {
	if e.Err == nil {
		return "vk: upload " + e.Stage
	}
	return fmt.Sprintf("vk: upload %s: %v", e.Stage, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Client calls VK methods with a user-supplied access token. It holds no
// credentials itself and is safe for concurrent use.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithVersion(version string) Option {
	return func(c *Client) {
		c.version = strings.TrimSpace(version)
	}
}

// WithHTTPClient replaces the transport. Its retry policy must not replay
// wall.post, see NewHTTPClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewHTTPClient returns the client used for VK calls: pooled, bounded by
// timeout, and without transport retries since a post is never resent.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return netutil.NewHTTPClient(netutil.ClientOptions{
		Timeout:               timeout,
		ResponseHeaderTimeout: timeout,
		MaxRetries:            -1,
	})
}

// NewClient builds a client that talks to the public VK API unless
// overridden by options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		version: DefaultVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.version == "" {
		c.version = DefaultVersion
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(DefaultTimeout)
	}
	return c
}

// methodURL is the prefix vksdk appends method names to.
func (c *Client) methodURL() string {
	return strings.TrimRight(c.baseURL, "/") + "/"
}

// session returns an SDK handle bound to one user's token.
func (c *Client) session(token string) *api.VK {
	vk := api.NewVK(token)
	vk.MethodURL = c.methodURL()
	vk.Version = c.version
	vk.Client = c.httpClient
	return vk
}

// apiCode extracts the VK error code, if err carries one.
func apiCode(err error) (int, bool) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return int(apiErr.Code), true
	}
	return 0, false
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
