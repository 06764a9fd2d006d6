package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/books-scrape-api/features"
	"github.com/aluiziolira/books-scrape-api/models"
	"github.com/aluiziolira/books-scrape-api/parser"
	"github.com/aluiziolira/books-scrape-api/pipeline"
)

// PageFetcher retrieves one page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// Persister stores a batch of books and reports where it went.
type Persister interface {
	Persist(ctx context.Context, books []*models.Book, sourceURL string) (pipeline.Outcome, error)
}

// Request is one scrape call: a URL or shortcut name plus feature flags.
type Request struct {
	URL      string          `json:"url"`
	Features models.Features `json:"features"`
}

// Service runs the validate, fetch, extract, persist and post-process steps
// for a single request.
type Service struct {
	allowedDomain string
	fetcher       PageFetcher
	extractor     *parser.Extractor
	persister     Persister
	cipher        *features.Cipher
	metrics       *Metrics
	logger        *slog.Logger
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics records request outcomes on m.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService wires the request steps together. cipher is used only for
// requests with the security flag.
func NewService(allowedDomain string, fetcher PageFetcher, persister Persister, cipher *features.Cipher, opts ...ServiceOption) (*Service, error) {
	if allowedDomain == "" {
		return nil, errors.New("allowed domain must be set")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if persister == nil {
		return nil, errors.New("persister is required")
	}
	if cipher == nil {
		return nil, errors.New("cipher is required")
	}

	s := &Service{
		allowedDomain: allowedDomain,
		fetcher:       fetcher,
		persister:     persister,
		cipher:        cipher,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "service")
	s.extractor = parser.NewExtractor(s.logger)
	return s, nil
}

// AllowedDomain is the only host the service will fetch from.
func (s *Service) AllowedDomain() string {
	return s.allowedDomain
}

// Scrape handles one request end to end. Errors are always one of
// ErrInvalidInput, ErrFetch, ErrNoData or ErrUnexpected. A persistence
// failure is reported in the result, not as an error.
func (s *Service) Scrape(ctx context.Context, req Request) (result *models.ScrapeResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during scrape", slog.Any("panic", r))
			result, err = nil, ErrUnexpected{Err: fmt.Errorf("panic: %v", r)}
		}
		outcome := "success"
		if err != nil {
			outcome = Category(err)
		}
		s.metrics.IncRequest(outcome)
	}()

	target, err := ResolveURL(req.URL, s.allowedDomain)
	if err != nil {
		s.logger.Warn("rejected scrape request", slog.String("input", req.URL), slog.Any("error", err))
		return nil, err
	}

	page, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, ErrFetch{URL: target, Err: err}
	}

	books, err := s.extract(page, target)
	if err != nil {
		return nil, err
	}

	storage := s.persist(ctx, books, target)

	if req.Features.AI {
		for _, book := range books {
			features.AnalyzeBook(book)
		}
	}
	if req.Features.Security {
		for _, book := range books {
			if err := s.cipher.EncryptBook(book); err != nil {
				return nil, ErrUnexpected{Err: fmt.Errorf("encrypt book: %w", err)}
			}
		}
	}

	result = &models.ScrapeResult{
		Books:             books,
		Source:            target,
		Count:             len(books),
		ProcessingTime:    fmt.Sprintf("%.2f seconds", time.Since(start).Seconds()),
		Features:          req.Features,
		Storage:           storage,
		AIEnabled:         req.Features.AI,
		EncryptionEnabled: req.Features.Security,
	}
	s.logger.Info("scrape completed",
		slog.String("url", target),
		slog.Int("books", result.Count),
		slog.Bool("saved", storage.SavedToCSV),
	)
	return result, nil
}

func (s *Service) extract(page *Page, target string) ([]*models.Book, error) {
	doc, err := parser.ParseDocument(page.Body)
	if err != nil {
		return nil, ErrUnexpected{Err: err}
	}
	pageURL := page.URL
	if pageURL == "" {
		pageURL = target
	}
	base, err := parser.BaseURL(pageURL)
	if err != nil {
		return nil, ErrUnexpected{Err: err}
	}

	extraction := s.extractor.Extract(doc, base)
	s.metrics.AddItems(len(extraction.Books), extraction.Skipped)
	if len(extraction.Books) == 0 {
		s.logger.Warn("no book data found",
			slog.String("url", target),
			slog.String("shape", extraction.Shape.String()),
			slog.Int("skipped", extraction.Skipped),
		)
		return nil, ErrNoData{URL: target, Domain: s.allowedDomain}
	}
	return extraction.Books, nil
}

// persist hands copies of books to the persister so later post-processing
// never reaches the store, then copies the stamps back.
func (s *Service) persist(ctx context.Context, books []*models.Book, target string) models.Storage {
	copies := make([]*models.Book, len(books))
	for i, book := range books {
		c := *book
		copies[i] = &c
	}

	outcome, err := s.persister.Persist(ctx, copies, target)
	if err != nil {
		s.metrics.IncPersistFailure()
		s.logger.Error("failed to persist books", slog.String("url", target), slog.Any("error", err))
		return models.Storage{}
	}
	for i, c := range copies {
		books[i].ScrapeTimestamp = c.ScrapeTimestamp
		books[i].SourceURL = c.SourceURL
	}
	s.metrics.AddMirrorFailures(outcome.MirrorFailures)
	if !outcome.Saved {
		s.metrics.IncPersistFailure()
		return models.Storage{}
	}

	filename, backup := outcome.Filename, outcome.Backup
	return models.Storage{SavedToCSV: true, Filename: &filename, Backup: &backup}
}
