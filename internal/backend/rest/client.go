// Package rest implements the service.Service interface over the /todos/ HTTP API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"todo/internal/config"
	"todo/internal/service"
)

const (
	// CollectionPath is the path of the todo collection.
	CollectionPath = "/todos/"

	// APITimeout is the default timeout for API calls.
	APITimeout = 5 * time.Second
)

// Options configures a Client.
type Options struct {
	// BaseURL is the service root, e.g. "http://localhost:8000".
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Timeout bounds each request. Zero means no per-request deadline.
	Timeout time.Duration
	// Logger receives one debug record per request. If nil, logs are discarded.
	Logger *slog.Logger
}

// Client implements service.Service against a /todos/ collection.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

var _ service.Service = (*Client)(nil)

// New creates a client from config.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	return NewWithOptions(Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
}

// NewWithOptions creates a client with explicit options (tests use this with httptest).
func NewWithOptions(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		timeout:    opts.Timeout,
		logger:     logger,
	}, nil
}

// List returns all todos in the order the service sends them.
func (c *Client) List(ctx context.Context) ([]service.Task, error) {
	var tasks []service.Task
	if err := c.do(ctx, http.MethodGet, CollectionPath, nil, &tasks, http.StatusOK); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}

// Create posts a new todo and returns the stored record.
func (c *Client) Create(ctx context.Context, draft service.Draft) (service.Task, error) {
	var task service.Task
	err := c.do(ctx, http.MethodPost, CollectionPath, draft, &task, http.StatusOK, http.StatusCreated)
	if err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// SetDone patches the done field. The response body is ignored.
func (c *Client) SetDone(ctx context.Context, id int, done bool) error {
	body := struct {
		Done bool `json:"done"`
	}{Done: done}
	return c.do(ctx, http.MethodPatch, itemPath(id), body, nil, http.StatusOK)
}

// Update replaces a todo and returns the record as stored.
func (c *Client) Update(ctx context.Context, id int, draft service.Draft) (service.Task, error) {
	var task service.Task
	if err := c.do(ctx, http.MethodPut, itemPath(id), draft, &task, http.StatusOK); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// Delete removes a todo.
func (c *Client) Delete(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, itemPath(id), nil, nil, http.StatusOK, http.StatusNoContent)
}

func itemPath(id int) string {
	return CollectionPath + strconv.Itoa(id)
}

// do sends one JSON request. A status outside accept is an error, as is a
// transport failure or an undecodable body when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any, accept ...int) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return wrapError(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(err)
	}
	if !slices.Contains(accept, resp.StatusCode) {
		return &googleapi.Error{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("unexpected status for %s %s", method, path),
			Header:  resp.Header,
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// wrapError turns deadline errors into a short message and leaves the rest intact.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}
	return err
}

// StatusCode returns the HTTP status carried by err, or 0 if err did not
// come from a completed response.
func StatusCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
