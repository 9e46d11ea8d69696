package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultMaxBytes caps the size of a fetched resource.
const DefaultMaxBytes = 50 << 20

// Resource is the payload of a fetched locator.
type Resource struct {
	Data        []byte
	ContentType string
}

// Fetcher retrieves the bytes and content type for a locator.
type Fetcher interface {
	Fetch(ctx context.Context, src string) (Resource, error)
}

// HTTPError is returned when the server answers with a 4xx or 5xx status.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (r HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %s", r.Status)
}

// HTTPFetcher fetches resources with a GET request. Timeouts belong to
// the client.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPFetcher returns a fetcher with a logging client.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		Client:   &http.Client{Transport: LoggedTransport{}, Timeout: timeout},
		MaxBytes: maxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src string) (Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return Resource{}, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Resource{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Resource{}, HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return Resource{}, err
	}
	if int64(len(data)) > limit {
		return Resource{}, fmt.Errorf("resource exceeds %d bytes", limit)
	}
	return Resource{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// LoggedTransport logs every request with slog. Responses with status code
// of 400 or higher are logged with WARN level.
type LoggedTransport struct {
	// Base defaults to http.DefaultTransport.
	Base http.RoundTripper
}

func (t LoggedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	start := time.Now()
	resp, err := base.RoundTrip(req)
	if err != nil {
		slog.Warn("HTTP request failed", "method", req.Method, "url", req.URL, "error", err)
		return resp, err
	}
	level := slog.LevelInfo
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	slog.Log(
		req.Context(),
		level,
		"HTTP request",
		"method", req.Method,
		"url", req.URL,
		"status", resp.StatusCode,
		"duration", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
