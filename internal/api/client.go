// SPDX-License-Identifier: MIT

// Package api is the authenticated client for the media-library backend. It
// owns request signing glue and the typed error taxonomy; everything above it
// works in terms of sentinel errors, not HTTP statuses.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// TokenSource supplies the current bearer token. Token storage and refresh
// belong to the auth collaborator, not to this client.
type TokenSource func() string

// Client issues authenticated requests against the library backend.
type Client struct {
	base    string
	http    *http.Client
	token   TokenSource
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer-token source.
func WithToken(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// New creates a client for the given base URL.
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Playlist returns the adaptive streaming manifest URL for a movie, or
// ErrNotFound while the manifest is not yet available.
func (c *Client) Playlist(ctx context.Context, ownerID, movieID string) (string, error) {
	var p struct {
		PlaylistURL string `json:"playlistUrl"`
	}
	path := c.moviePath(ownerID, movieID, "playlist")
	if err := c.getJSON(ctx, "playlist", path, &p); err != nil {
		return "", err
	}
	if p.PlaylistURL == "" {
		return "", &RequestError{Sentinel: ErrBadResponse, Operation: "playlist", Body: "empty playlistUrl"}
	}
	return p.PlaylistURL, nil
}

// RequestProcessing triggers on-demand transcoding for a movie. The server
// treats repeated requests for the same movie as idempotent.
func (c *Client) RequestProcessing(ctx context.Context, ownerID, movieID string) error {
	path := c.moviePath(ownerID, movieID, "request")
	res, err := c.do(ctx, "processing-request", http.MethodPost, path)
	if err != nil {
		return err
	}
	defer res.Body.Close() //nolint:errcheck
	if res.StatusCode >= 400 {
		return c.statusError("processing-request", res)
	}
	return nil
}

// Status returns the current transcode progress snapshot for a movie.
func (c *Client) Status(ctx context.Context, ownerID, movieID string) (StatusSnapshot, error) {
	var s StatusSnapshot
	path := c.moviePath(ownerID, movieID, "status")
	if err := c.getJSON(ctx, "status", path, &s); err != nil {
		return StatusSnapshot{}, err
	}
	if s.Stage == "" {
		return StatusSnapshot{}, &RequestError{Sentinel: ErrBadResponse, Operation: "status", Body: "missing stageName"}
	}
	return s, nil
}

// Subtitles lists the subtitle tracks available for a movie.
func (c *Client) Subtitles(ctx context.Context, ownerID, movieID string) ([]SubtitleTrack, error) {
	var p struct {
		Subtitles []SubtitleTrack `json:"subtitles"`
	}
	path := c.moviePath(ownerID, movieID, "subtitles")
	if err := c.getJSON(ctx, "subtitles", path, &p); err != nil {
		return nil, err
	}
	return p.Subtitles, nil
}

// FetchText downloads an auxiliary document (subtitle payload) from an
// absolute or base-relative URL, authenticated like every other call.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	target := rawURL
	if strings.HasPrefix(rawURL, "/") {
		target = c.base + rawURL
	}
	res, err := c.doURL(ctx, "fetch-text", http.MethodGet, target)
	if err != nil {
		return "", err
	}
	defer res.Body.Close() //nolint:errcheck
	if res.StatusCode >= 400 {
		return "", c.statusError("fetch-text", res)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &RequestError{Sentinel: ErrBadResponse, Operation: "fetch-text", Err: err}
	}
	return string(body), nil
}

func (c *Client) moviePath(ownerID, movieID, op string) string {
	return fmt.Sprintf("/libraries/%s/movies/%s/%s",
		url.PathEscape(ownerID), url.PathEscape(movieID), op)
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	res, err := c.do(ctx, op, http.MethodGet, path)
	if err != nil {
		return err
	}
	defer res.Body.Close() //nolint:errcheck
	if res.StatusCode >= 400 {
		return c.statusError(op, res)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &RequestError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string) (*http.Response, error) {
	return c.doURL(ctx, op, method, c.base+path)
}

func (c *Client) doURL(ctx context.Context, op, method, target string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RequestError{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, &RequestError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
	}
	return res, nil
}

func (c *Client) statusError(op string, res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	return &RequestError{
		Sentinel:  sentinelForStatus(res.StatusCode),
		Operation: op,
		Status:    res.StatusCode,
		Body:      strings.TrimSpace(string(body)),
	}
}
