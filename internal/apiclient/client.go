// Package apiclient is the HTTP client the terminal front end uses to talk to
// the Commune API.
package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTimeout bounds every request that does not carry its own deadline.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	Timeout   time.Duration
	Token     string
	UserAgent string
	// Logger receives request/response debug lines. Nil discards them.
	Logger *log.Logger
}

// Client calls the /api/v1 endpoints.
type Client struct {
	baseURL string
	http    *resty.Client
	log     *log.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Commune-CLI/0.1.0"
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     opts.Logger,
	}
	c.http = resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if opts.Token != "" {
		c.SetToken(opts.Token)
	}

	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		c.debug("HTTP Request", "method", req.Method, "url", req.URL)
		return nil
	})
	c.http.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		c.debug("HTTP Response", "status", resp.StatusCode(), "duration", resp.Time())
		return nil
	})
	return c
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.http.Token
}

// BaseURL returns the server address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) debug(msg string, keyvals ...interface{}) {
	if c.log != nil {
		c.log.Debug(msg, keyvals...)
	}
}

// do sends req and decodes a successful body into result.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}, query url.Values) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Execute(method, "/api/v1"+path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !resp.IsSuccess() {
		return ParseError(resp)
	}
	return nil
}

func page(limit, offset int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprint(offset))
	}
	return q
}
