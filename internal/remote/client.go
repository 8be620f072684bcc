// Package remote talks to the business API that owns every purchase, return, sale and ledger
// record.
package remote

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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Meta carries list pagination.
type Meta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page,omitempty"`
	Limit int   `json:"limit,omitempty"`
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    messageText     `json:"message"`
	Data       json.RawMessage `json:"data"`
	Meta       *Meta           `json:"meta,omitempty"`
}

// Config configures the client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client wraps the JSON REST API. It never retries: a failed mutation has to be submitted
// again by the user.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a new client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote: base url %q must be http(s)", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type tokenContextKey struct{}

// ContextWithToken attaches the caller's bearer token; it takes precedence over the configured
// service token.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext extracts the bearer token from context.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// RequestOption customises a single request.
type RequestOption func(*http.Request)

// WithIdempotencyKey sends an Idempotency-Key header so the server can drop a duplicate.
func WithIdempotencyKey(key string) RequestOption {
	return func(r *http.Request) {
		if key != "" {
			r.Header.Set("Idempotency-Key", key)
		}
	}
}

// WithQuery appends query parameters.
func WithQuery(values url.Values) RequestOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		for key, vals := range values {
			for _, v := range vals {
				q.Add(key, v)
			}
		}
		r.URL.RawQuery = q.Encode()
	}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) (Meta, error) {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) (Meta, error) {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Patch issues a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) (Meta, error) {
	return c.Do(ctx, http.MethodPatch, path, body, out, opts...)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) (Meta, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// List reads one page of a collection endpoint. When the server omits meta.total the page
// length stands in for it.
func List[T any](ctx context.Context, c *Client, path string, filter shared.ListFilter) (shared.Page[T], error) {
	var items []T
	meta, err := c.Get(ctx, path, &items, WithQuery(filter.Query()))
	if err != nil {
		return shared.Page[T]{}, err
	}
	total := meta.Total
	if total == 0 {
		total = int64(len(items))
	}
	return shared.Page[T]{Items: items, Pagination: shared.NewPagination(filter.Page, filter.Limit, total)}, nil
}

// Do sends one request and decodes the envelope's data into out.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) (Meta, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Meta{}, fmt.Errorf("remote: encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return Meta{}, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.tokenFor(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("remote request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("error", err))
		return Meta{}, &NetworkFailure{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.Debug("remote request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Meta{}, &NetworkFailure{Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(payload, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Meta{}, &RemoteRejection{StatusCode: resp.StatusCode, Message: rejectionMessage(payload, env, decodeErr)}
	}
	if decodeErr != nil {
		if len(bytes.TrimSpace(payload)) == 0 {
			return Meta{}, nil
		}
		return Meta{}, fmt.Errorf("remote: decode %s %s: %w", method, path, decodeErr)
	}
	if env.StatusCode >= 400 {
		return Meta{}, &RemoteRejection{StatusCode: env.StatusCode, Message: string(env.Message)}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return Meta{}, fmt.Errorf("remote: decode %s %s data: %w", method, path, err)
		}
	}
	if env.Meta != nil {
		return *env.Meta, nil
	}
	return Meta{}, nil
}

func (c *Client) tokenFor(ctx context.Context) string {
	if token := TokenFromContext(ctx); token != "" {
		return token
	}
	return c.token
}

// rejectionMessage recovers the server's text from an error body even when the rest of the
// envelope does not decode. Bodies that are not JSON carry no message.
func rejectionMessage(payload []byte, env envelope, decodeErr error) string {
	if decodeErr == nil {
		return string(env.Message)
	}
	var partial struct {
		Message messageText `json:"message"`
	}
	if err := json.Unmarshal(payload, &partial); err != nil {
		return ""
	}
	return string(partial.Message)
}

// messageText accepts the API's message as a string, a list of validation strings, or an
// object carrying a message. Any other JSON value is kept as its raw text.
type messageText string

func (m *messageText) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*m = messageText(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*m = messageText(strings.Join(list, "; "))
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			inner, ok := obj[key]
			if !ok {
				continue
			}
			var text messageText
			if err := text.UnmarshalJSON(inner); err == nil && text != "" {
				*m = text
				return nil
			}
		}
	}
	raw := bytes.TrimSpace(data)
	if string(raw) == "null" {
		*m = ""
		return nil
	}
	*m = messageText(raw)
	return nil
}

// IsNotFound reports a 404 rejection.
func IsNotFound(err error) bool {
	var rej *RemoteRejection
	return errors.As(err, &rej) && rej.StatusCode == http.StatusNotFound
}
