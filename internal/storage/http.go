package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTP stores records in a remote JSON document store.
//
// Records live at <base>/<key>.json. A 404 or a literal null body means the
// record does not exist. Deletion is not supported.
type HTTP struct {
	base   *url.URL
	client *http.Client
	tokens TokenSource
	logger *slog.Logger
}

// HTTPOption configures an HTTP backend.
type HTTPOption func(*HTTP)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

// WithTokenSource adds an auth query parameter to every request.
func WithTokenSource(ts TokenSource) HTTPOption {
	return func(h *HTTP) { h.tokens = ts }
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTP) { h.logger = l }
}

// NewHTTP creates a backend rooted at baseURL.
func NewHTTP(baseURL string, opts ...HTTPOption) (*HTTP, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse storage url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("storage url %q: scheme must be http or https", baseURL)
	}

	h := &HTTP{
		base:   u,
		client: &http.Client{Timeout: defaultHTTPTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// GetItem fetches <base>/<key>.json.
func (h *HTTP) GetItem(ctx context.Context, key string) (string, bool, error) {
	resp, err := h.do(ctx, http.MethodGet, key, nil)
	if err != nil {
		return "", false, &AdapterError{Op: "get", Key: key, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false, &AdapterError{
			Op:         "get",
			Key:        key,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, &AdapterError{Op: "get", Key: key, Err: fmt.Errorf("read body: %w", err)}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false, nil
	}
	if !json.Valid(trimmed) {
		return "", false, &AdapterError{Op: "get", Key: key, StatusCode: resp.StatusCode, Err: ErrMalformedBody}
	}

	h.logger.Debug("record fetched", "key", key, "bytes", len(trimmed))
	return string(trimmed), true, nil
}

// SetItem replaces <base>/<key>.json with value.
func (h *HTTP) SetItem(ctx context.Context, key, value string) error {
	if !json.Valid([]byte(value)) {
		return &AdapterError{Op: "set", Key: key, Err: ErrMalformedBody}
	}

	resp, err := h.do(ctx, http.MethodPut, key, strings.NewReader(value))
	if err != nil {
		return &AdapterError{Op: "set", Key: key, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &AdapterError{
			Op:         "set",
			Key:        key,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response %s", resp.Status),
		}
	}

	h.logger.Debug("record stored", "key", key, "bytes", len(value))
	return nil
}

// RemoveItem always fails with ErrNotImplemented.
func (h *HTTP) RemoveItem(_ context.Context, key string) error {
	return &AdapterError{Op: "remove", Key: key, Err: ErrNotImplemented}
}

func (h *HTTP) do(ctx context.Context, method, key string, body io.Reader) (*http.Response, error) {
	target, err := h.recordURL(ctx, key)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return h.client.Do(req)
}

func (h *HTTP) recordURL(ctx context.Context, key string) (string, error) {
	u := *h.base
	u.Path = u.Path + "/" + key + ".json"
	u.RawPath = ""

	if h.tokens != nil {
		token, err := h.tokens.Token(ctx)
		if err != nil {
			return "", fmt.Errorf("auth token: %w", err)
		}
		q := u.Query()
		q.Set("auth", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
