package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/books-scrape-api/config"
)

const artURL = "https://books.toscrape.com/catalogue/category/books/art_25/index.html"

func newTestFetcher(t *testing.T, transport http.RoundTripper, mutate func(*config.Config)) *Fetcher {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	f, err := NewFetcher(cfg, quietLogger(), WithTransport(transport), WithFetchMetrics(NewMetrics()))
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return f
}

func TestFetcherReturnsBody(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", artURL, htmlResponder(buildCatalogPage(3)))

	page, err := newTestFetcher(t, transport, nil).Fetch(context.Background(), artURL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", page.StatusCode)
	}
	if page.URL != artURL {
		t.Fatalf("url = %q", page.URL)
	}
	if !strings.Contains(string(page.Body), "product_pod") {
		t.Fatalf("unexpected body: %q", page.Body)
	}
}

func TestFetcherHTTPStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusNotFound, expected: "not_found"},
		{status: http.StatusBadGateway, expected: "http_status"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", artURL, httpmock.NewStringResponder(tt.status, ""))

			_, err := newTestFetcher(t, transport, nil).Fetch(context.Background(), artURL)
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}
			if got := errorTypeLabel(err); got != tt.expected {
				t.Fatalf("label = %q, want %q (err=%v)", got, tt.expected, err)
			}
		})
	}
}

func TestFetcherConnectionError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", artURL, httpmock.NewErrorResponder(errors.New("connection reset by peer")))

	if _, err := newTestFetcher(t, transport, nil).Fetch(context.Background(), artURL); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestFetcherSendsBrowserHeadersAndDecodesBrotli(t *testing.T) {
	page := buildCatalogPage(2)
	var compressed bytes.Buffer
	w := brotli.NewWriter(&compressed)
	if _, err := w.Write([]byte(page)); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close brotli writer: %v", err)
	}

	var gotUA, gotLang, gotEncoding string
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", artURL, func(req *http.Request) (*http.Response, error) {
		gotUA = req.Header.Get("User-Agent")
		gotLang = req.Header.Get("Accept-Language")
		gotEncoding = req.Header.Get("Accept-Encoding")
		resp := httpmock.NewBytesResponse(http.StatusOK, compressed.Bytes())
		resp.Header.Set("Content-Type", "text/html")
		resp.Header.Set("Content-Encoding", "br")
		return resp, nil
	})

	got, err := newTestFetcher(t, transport, nil).Fetch(context.Background(), artURL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(got.Body) != page {
		t.Fatalf("body was not decoded")
	}

	cfg := config.DefaultConfig()
	if gotUA != cfg.UserAgent {
		t.Fatalf("user agent = %q", gotUA)
	}
	if gotLang != "en-US,en;q=0.9" {
		t.Fatalf("accept-language = %q", gotLang)
	}
	if !strings.Contains(gotEncoding, "br") {
		t.Fatalf("accept-encoding = %q, want br advertised", gotEncoding)
	}
}

func TestFetcherRejectsOtherDomains(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com/", htmlResponder("<html></html>"))

	if _, err := newTestFetcher(t, transport, nil).Fetch(context.Background(), "https://example.com/"); err == nil {
		t.Fatalf("expected error for domain outside the allow-list")
	}
	if transport.GetTotalCallCount() != 0 {
		t.Fatalf("request reached the transport")
	}
}

func TestFetcherHonoursContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", artURL, func(req *http.Request) (*http.Response, error) {
		select {
		case <-release:
		case <-req.Context().Done():
		}
		return httpmock.NewStringResponse(http.StatusOK, "<html></html>"), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestFetcher(t, transport, nil).Fetch(ctx, artURL)
	var timeout ErrTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestBrotliTransportPassesThroughPlainBodies(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", artURL, htmlResponder("<html>plain</html>"))

	rt := &brotliTransport{base: transport}
	req, err := http.NewRequest(http.MethodGet, artURL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if body.String() != "<html>plain</html>" {
		t.Fatalf("body = %q", body.String())
	}
	if req.Header.Get("Accept-Encoding") != "" {
		t.Fatalf("caller request was mutated")
	}
}
