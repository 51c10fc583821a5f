package netcom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout = 30 * time.Second
	// maxErrorBody bounds how much of a failed response is kept in an HTTPError
	maxErrorBody = 4096
)

// RequestOption defines a function that modifies a request
type RequestOption func(*http.Request) error

// ClientOption defines a function that modifies the client
type ClientOption func(*Client)

// Client represents an HTTP client with configurable options
type Client struct {
	httpClient *http.Client
	/*
	   Headers set on the client level are applied to every request originating from the client

	   Request headers may overwrite Client headers
	*/
	Headers http.Header
}

// NewClient creates a new HTTP client with the given options
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		Headers: make(http.Header),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithTimeout sets the timeout for the client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader sets a header on the request, replacing any client level value
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) error {
		req.Header.Set(key, value)
		return nil
	}
}

func WithBearerToken(token string) RequestOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithQuery merges v into the request query
func WithQuery(v url.Values) RequestOption {
	return func(req *http.Request) error {
		if len(v) == 0 {
			return nil
		}
		q := req.URL.Query()
		for key, values := range v {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		req.URL.RawQuery = q.Encode()
		return nil
	}
}

// newRequest creates a new HTTP request for an absolute URL
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader, options ...RequestOption) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range c.Headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	for _, option := range options {
		if err := option(req); err != nil {
			return nil, fmt.Errorf("failed to apply request option: %w", err)
		}
	}

	return req, nil
}

// Do sends an HTTP request and returns an HTTP response
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// Request sends an HTTP request with the given method, URL, body, and options
func (c *Client) Request(ctx context.Context, method, rawURL string, body io.Reader, options ...RequestOption) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, rawURL, body, options...)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Get sends a GET request
func (c *Client) Get(ctx context.Context, rawURL string, options ...RequestOption) (*http.Response, error) {
	return c.Request(ctx, http.MethodGet, rawURL, nil, options...)
}

// PostForm sends a POST request with form encoded values
func (c *Client) PostForm(ctx context.Context, rawURL string, values url.Values, options ...RequestOption) (*http.Response, error) {
	options = append([]RequestOption{WithHeader("Content-Type", "application/x-www-form-urlencoded")}, options...)
	return c.Request(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()), options...)
}

/*
DecodeResponse decodes the JSON response body into the given value; non 2xx responses yield an *HTTPError.

Numbers decoded into interface values are kept as json.Number so integers beyond 2^53 survive intact.
*/
func DecodeResponse(resp *http.Response, v any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err != nil {
			return fmt.Errorf("failed to read error response body: %w", err)
		}
		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(bodyBytes)),
		}
		if resp.Request != nil {
			httpErr.URL = resp.Request.URL.String()
		}
		return httpErr
	}

	if v == nil {
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
