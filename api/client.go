// Package api is the HTTP adapter for the admin REST API. It speaks JSON, attaches
// the bearer token and turns non-2xx responses into *Error values.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spdeepak/backoffice/normalize"
)

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes = 8 << 20

// Client issues REST calls against BaseURL.
type Client struct {
	BaseURL      *url.URL
	Token        string
	UserAgent    string
	HTTPClient   *http.Client
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.Token = token }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.HTTPClient = httpClient }
}

// WithTimeout sets the timeout on a copy of the http.Client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		clone := *c.HTTPClient
		clone.Timeout = timeout
		c.HTTPClient = &clone
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.Logger = logger }
}

// WithMaxBodyBytes caps response reads.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) { c.MaxBodyBytes = n }
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", baseURL)
	}
	c := &Client{
		BaseURL:      parsed,
		UserAgent:    "backoffice",
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		MaxBodyBytes: DefaultMaxBodyBytes,
		Logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get issues a GET with query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) ([]byte, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends one JSON request and returns the raw response body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path)
}

// Upload posts a multipart form with one file part named field.
func (c *Client) Upload(ctx context.Context, path, field, filename string, content io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("api: create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("api: read upload %s: %w", filename, err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("api: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), &buf)
	if err != nil {
		return nil, fmt.Errorf("api: build upload %s: %w", path, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return c.send(req, path)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.BaseURL
	u.Path = c.BaseURL.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) send(req *http.Request, path string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	started := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Warn("api request failed", slog.String("method", req.Method), slog.String("path", path), slog.Any("error", err.Error()))
		return nil, &Error{Kind: KindTransport, Method: req.Method, Path: path, Cause: err}
	}
	defer resp.Body.Close()

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: req.Method, Path: path, Status: resp.StatusCode, Cause: err}
	}
	if int64(len(body)) > limit {
		c.Logger.Warn("api response too large", slog.String("method", req.Method), slog.String("path", path), slog.Int64("limit", limit))
		return nil, &Error{Kind: KindTransport, Method: req.Method, Path: path, Status: resp.StatusCode, Cause: fmt.Errorf("response exceeds %d bytes", limit)}
	}

	c.Logger.Debug("api request",
		slog.String("method", req.Method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	message, details := normalize.ErrorBody(body)
	return nil, &Error{
		Kind:    KindForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Method:  req.Method,
		Path:    path,
		Message: message,
		Details: details,
		Cause:   errors.New(http.StatusText(resp.StatusCode)),
	}
}
