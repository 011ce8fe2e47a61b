package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 10 << 20
)

// StatusError возвращается для ответов с кодом 4xx/5xx.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for url %s", e.StatusCode, e.URL)
}

// Response - ответ сервера. Для 304 тело пустое.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

func (r *Response) ETag() string {
	return r.Header.Get("ETag")
}

type Options struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

type HTTPFetcher struct {
	client    *http.Client
	maxBody   int64
	userAgent string
	log       *slog.Logger
}

func New(log *slog.Logger, opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		maxBody:   opts.MaxBodyBytes,
		userAgent: opts.UserAgent,
		log:       log.With(slog.String("component", "fetcher")),
	}
}

// Fetch выполняет GET запрос с дополнительными заголовками (например If-None-Match).
// Ошибка возвращается только для сетевых сбоев и кодов 4xx/5xx.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, header http.Header) (*Response, error) {
	log := f.log.With(slog.String("url", url))
	log.Debug("Fetching URL")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create request for url %s: %w", url, err)
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		log.Warn(
			"HTTP request failed",
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to fetch url %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		log.Warn(
			"Unexpected status code",
			slog.Int("status_code", resp.StatusCode),
		)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}
	if out.NotModified() {
		log.Debug("URL not modified")
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		log.Warn("Failed to read response body", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read body of url %s: %w", url, err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("body of url %s exceeds %d bytes", url, f.maxBody)
	}
	out.Body = body

	log.Debug("Successfully fetched URL",
		slog.Int("status_code", resp.StatusCode),
		slog.Int("bytes", len(body)),
	)
	return out, nil
}
