// Package web fetches web pages for ingestion.
package web

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.URLFetcher = (*Fetcher)(nil)

const defaultMaxBytes = 10 << 20

// Config configures the fetcher.
type Config struct {
	// Timeout bounds each request, including reading the body.
	Timeout time.Duration

	// RateLimit is the maximum requests per second across all hosts.
	RateLimit float64

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBytes caps the body size. Larger pages are truncated with a warning.
	MaxBytes int64
}

// Fetcher downloads pages with a bounded timeout and a shared rate limit.
type Fetcher struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a fetcher, applying defaults for zero config values.
func New(config Config) *Fetcher {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 2
	}
	if config.UserAgent == "" {
		config.UserAgent = "ragsync"
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = defaultMaxBytes
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Fetch downloads rawURL. Non-200 responses and transport errors wrap
// domain.ErrFetchFailed. The MIME type comes from the Content-Type header
// and defaults to text/html.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.RawDocument, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("fetch %s: %w: not an http(s) URL", rawURL, domain.ErrInvalidInput)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %v", rawURL, domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %w: status %d", rawURL, domain.ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %v", rawURL, domain.ErrFetchFailed, err)
	}
	truncated := int64(len(body)) > f.config.MaxBytes
	if truncated {
		body = body[:f.config.MaxBytes]
		logger.Warn("Page %s is larger than %d bytes, only the first %d are ingested", rawURL, f.config.MaxBytes, f.config.MaxBytes)
	}

	return &domain.RawDocument{
		Source:   rawURL,
		MIMEType: mediaType(resp.Header.Get("Content-Type")),
		Content:  body,
		Metadata: map[string]any{
			"status":     resp.StatusCode,
			"fetched_at": time.Now().UTC().Format(time.RFC3339),
			"truncated":  truncated,
		},
	}, nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return "text/html"
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "text/html"
	}
	return strings.ToLower(mt)
}
