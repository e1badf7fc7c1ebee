// Package api is the typed request layer over the self-analysis backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bloom-client/internal/domain"
	"go.uber.org/zap"
)

// TokenSource yields the current access token. It is consulted on every request.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) string

func (f TokenFunc) AccessToken(ctx context.Context) string { return f(ctx) }

// Error is a non-2xx response from the backend.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
	// Agent is set when the backend rejected a free-text answer as incomplete.
	Agent *domain.AgentFeedback
}

func (e *Error) Error() string { return e.Message }

// Rejected reports whether the error carries agent validation feedback.
func (e *Error) Rejected() bool {
	return e.Agent != nil && !e.Agent.IsAnswerOK
}

// Client issues GET and POST requests with a bearer credential.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a copy of the client that reads credentials from tokens.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	cp := *c
	cp.tokens = tokens
	return &cp
}

// Get fetches path and decodes the JSON body into out (which may be nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out (which may be nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	data := parseBody(raw)

	c.log.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(method, path, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// parseBody substitutes an empty object for empty or unparsable bodies.
func parseBody(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(trimmed)
}

type errorBody struct {
	Detail  *string          `json:"detail"`
	Message string           `json:"message"`
	Answer  json.RawMessage  `json:"answer"`
	Agent   *json.RawMessage `json:"agent"`
}

// DefaultAdvice is shown when a rejection carries neither instructions nor a message.
const DefaultAdvice = "Please improve your answer."

func newError(method, path string, status int, data json.RawMessage) *Error {
	e := &Error{
		Method:  method,
		Path:    path,
		Status:  status,
		Message: fmt.Sprintf("%s %s failed", method, path),
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		// arrays and scalars carry no detail
		return e
	}
	if body.Detail != nil && *body.Detail != "" {
		e.Message = *body.Detail
	}
	if method != http.MethodPost {
		return e
	}

	if body.Agent != nil {
		var fb domain.AgentFeedback
		if err := json.Unmarshal(*body.Agent, &fb); err == nil && !fb.IsAnswerOK {
			if strings.TrimSpace(fb.Instructions) == "" {
				fb.Instructions = strings.TrimSpace(body.Message)
			}
			if fb.Instructions == "" {
				fb.Instructions = DefaultAdvice
			}
			e.Agent = &fb
		}
	}
	if msg := fieldMessage(body.Answer); msg != "" {
		e.Message += ": " + msg
	}
	return e
}

// fieldMessage flattens a field-level validation value, which the backend sends as a string
// or a list of strings.
func fieldMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, " ")
	}
	return ""
}

// Message extracts a user-facing message from any error returned by the client.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The server took too long to respond."
	}
	return "Could not reach the server. Check your connection and try again."
}
