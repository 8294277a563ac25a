// Package fetch retrieves page content over HTTP with bounded timeouts and
// a shared outbound rate limit.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "pagewatch/1.0 (+https://github.com/pagewatch/pagewatch)"
	defaultMaxBody   = 10 << 20
)

// ErrBodyTooLarge is returned when a response body exceeds the configured
// read limit. Callers treat it like any other fetch failure.
var ErrBodyTooLarge = errors.New("response body exceeds configured limit")

// StatusError reports a non-success HTTP status. It is a fetch failure like
// any other, but callers that care can unwrap the code.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %s", e.Status)
}

// Page is the raw result of one successful fetch.
type Page struct {
	Body        []byte
	ContentType string
	// FinalURL is the URL after redirects; relative references on the page
	// resolve against it, not the requested URL.
	FinalURL string
}

type Config struct {
	Timeout           time.Duration
	UserAgent         string
	MaxBodyBytes      int64
	RequestsPerSecond float64
}

// Fetcher performs page fetches. One limiter spans every caller so that
// concurrent check cycles share a single outbound budget.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
}

func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   limiter,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
	}
}

// Fetch retrieves url and returns its body and content type. Network
// errors, timeouts and non-2xx statuses are all plain errors; the caller
// does not distinguish beyond logging.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, ErrBodyTooLarge
	}

	return &Page{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}
