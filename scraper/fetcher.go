package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/books-scrape-api/config"
)

const acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Page is a successfully fetched document.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher issues single-page GET requests through a colly collector. Each
// call works on a clone, so concurrent fetches never share callbacks.
type Fetcher struct {
	collector      *colly.Collector
	acceptLanguage string
	limiter        *rate.Limiter
	metrics        *Metrics
	logger         *slog.Logger
}

// FetcherOption customises a Fetcher.
type FetcherOption func(*Fetcher)

// WithTransport replaces the network transport. Brotli decoding is layered
// on top of rt.
func WithTransport(rt http.RoundTripper) FetcherOption {
	return func(f *Fetcher) {
		f.collector.WithTransport(&brotliTransport{base: rt})
	}
}

// WithFetchMetrics records fetch latency and error types on m.
func WithFetchMetrics(m *Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// NewFetcher builds a fetcher restricted to cfg.AllowedDomain.
func NewFetcher(cfg *config.Config, logger *slog.Logger, opts ...FetcherOption) (*Fetcher, error) {
	if cfg.AllowedDomain == "" {
		return nil, fmt.Errorf("allowed domain must be set")
	}
	if logger == nil {
		logger = slog.Default()
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(cfg.AllowedDomain),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&brotliTransport{base: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}})

	f := &Fetcher{
		collector:      collector,
		acceptLanguage: cfg.AcceptLanguage,
		logger:         logger.With("component", "fetcher"),
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch GETs rawURL. Transport failures and unsuccessful statuses are
// returned as classified errors (ErrTimeout, ErrNotFound, ...).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, f.fail(rawURL, classifyError(fmt.Errorf("rate limit wait: %w", err), 0))
		}
	}

	collector := f.collector.Clone()
	collector.Context = ctx

	var (
		page     *Page
		fetchErr error
		status   int
	)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", acceptHeader)
		if f.acceptLanguage != "" {
			r.Headers.Set("Accept-Language", f.acceptLanguage)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r != nil {
			status = r.StatusCode
		}
	})

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return nil, f.fail(rawURL, classifyError(ctx.Err(), 0))
	case err := <-done:
		f.metrics.ObserveDuration(time.Since(start))
		if fetchErr == nil {
			fetchErr = err
		}
		if fetchErr != nil {
			return nil, f.fail(rawURL, classifyError(fetchErr, status))
		}
		if page == nil {
			return nil, f.fail(rawURL, errors.New("no response received"))
		}
		f.logger.Debug("fetched page",
			slog.String("url", page.URL),
			slog.Int("status", page.StatusCode),
			slog.Int("bytes", len(page.Body)),
		)
		return page, nil
	}
}

func (f *Fetcher) fail(rawURL string, err error) error {
	category := errorTypeLabel(err)
	f.metrics.IncError(category)
	f.logger.Error("request error",
		slog.String("url", rawURL),
		slog.String("category", category),
		slog.Any("error", err),
	)
	return err
}

// brotliTransport advertises br alongside gzip and decodes br bodies before
// colly sees them. colly decodes gzip itself.
type brotliTransport struct {
	base http.RoundTripper
}

func (t *brotliTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "gzip, br")
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(strings.TrimSpace(resp.Header.Get("Content-Encoding")), "br") {
		resp.Body = &brotliBody{Reader: brotli.NewReader(resp.Body), Closer: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
		resp.Uncompressed = true
	}
	return resp, nil
}

type brotliBody struct {
	io.Reader
	io.Closer
}
