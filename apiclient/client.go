// Package apiclient is the stateless HTTP client for the blog's plugin
// API. Given a credential and a payload it issues one call and classifies
// the outcome; it holds no state, performs no retries, and leaves
// reporting to the caller.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marginote/marginote/envelope"
)

// credentialHeader carries the API key on every call.
const credentialHeader = "X-API-Key"

// maxErrorBody bounds how much of a rejection body is kept for logs.
const maxErrorBody = 2048

// Client talks to one plugin API base URL.
type Client struct {
	base   string
	httpc  *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (tests, custom
// transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the given base URL, e.g.
// "https://blog.example.com/knowledge_base".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(base, "/"),
		httpc:  &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// submitWire mirrors the POST /api/plugin/submit response body.
type submitWire struct {
	Success bool   `json:"success"`
	CardID  string `json:"card_id"`
	Message string `json:"message"`
}

// Submit sends one capture record. 2xx yields the decoded result;
// anything else is an *ErrStatus carrying the numeric status.
func (c *Client) Submit(ctx context.Context, record envelope.CaptureRecord, credential string) (*envelope.SubmitResult, error) {
	var wire submitWire
	if err := c.do(ctx, http.MethodPost, "/api/plugin/submit", nil, record, credential, &wire); err != nil {
		return nil, err
	}
	return &envelope.SubmitResult{CardID: wire.CardID, Message: wire.Message}, nil
}

// syncWire mirrors the POST /api/plugin/sync-annotations response body.
type syncWire struct {
	Success       bool     `json:"success"`
	AnnotationIDs []string `json:"annotation_ids"`
	Count         int      `json:"count"`
}

// SyncAnnotations replaces the remote annotation set for pageURL.
func (c *Client) SyncAnnotations(ctx context.Context, pageURL string, annotations []envelope.Annotation, credential string) (*envelope.SyncResult, error) {
	body := struct {
		URL         string                `json:"url"`
		Annotations []envelope.Annotation `json:"annotations"`
	}{URL: pageURL, Annotations: annotations}

	var wire syncWire
	if err := c.do(ctx, http.MethodPost, "/api/plugin/sync-annotations", nil, body, credential, &wire); err != nil {
		return nil, err
	}
	return &envelope.SyncResult{AnnotationIDs: wire.AnnotationIDs, Count: wire.Count}, nil
}

// annotationsWire mirrors the GET /api/plugin/annotations response body.
type annotationsWire struct {
	Success     bool                  `json:"success"`
	Annotations []envelope.Annotation `json:"annotations"`
	Count       int                   `json:"count"`
}

// GetAnnotations fetches the stored annotations for pageURL, in the order
// the server keeps them.
func (c *Client) GetAnnotations(ctx context.Context, pageURL string, credential string) (*envelope.AnnotationsResult, error) {
	q := url.Values{"url": {pageURL}}

	var wire annotationsWire
	if err := c.do(ctx, http.MethodGet, "/api/plugin/annotations", q, nil, credential, &wire); err != nil {
		return nil, err
	}
	return &envelope.AnnotationsResult{Annotations: wire.Annotations, Count: wire.Count}, nil
}

// recentWire mirrors the GET /api/plugin/recent response body.
type recentWire struct {
	Success bool                   `json:"success"`
	Cards   []envelope.CardSummary `json:"cards"`
}

// Recent fetches the most recent capture summaries, newest first.
func (c *Client) Recent(ctx context.Context, limit int, credential string) (*envelope.RecentResult, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}

	var wire recentWire
	if err := c.do(ctx, http.MethodGet, "/api/plugin/recent", q, nil, credential, &wire); err != nil {
		return nil, err
	}
	return &envelope.RecentResult{Cards: wire.Cards}, nil
}

// do issues one HTTP call and decodes the 2xx body into out. The
// credential check happens first so a missing key never touches the
// network.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, credential string, out any) error {
	if credential == "" {
		return &ErrNoCredential{}
	}

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: marshal body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set(credentialHeader, credential)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.DebugContext(ctx, "api rejection",
			"method", method,
			"path", path,
			"status", resp.StatusCode)
		return &ErrStatus{Status: resp.StatusCode, Body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: decode response: %w", err)
	}
	return nil
}
