package parser

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/aluiziolira/books-scrape-api/models"
)

// Shape identifies which page layout the extractor recognised.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeCatalogue
	ShapeProduct
)

func (s Shape) String() string {
	switch s {
	case ShapeCatalogue:
		return "catalogue"
	case ShapeProduct:
		return "product"
	default:
		return "unknown"
	}
}

// Extraction is the outcome of parsing one page. Books is either empty or
// holds only fully populated records.
type Extraction struct {
	Shape   Shape
	Books   []*models.Book
	Skipped int
}

// itemResult is the per-card outcome consumed by the catalogue loop: either
// a book or the reason the card was skipped.
type itemResult struct {
	book *models.Book
	err  error
}

func skip(err error) itemResult {
	return itemResult{err: err}
}

// Extractor turns fetched documents into book records.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor builds an extractor that reports skipped items on logger.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger.With("component", "extractor")}
}

// ParseDocument parses a raw HTML body into a queryable document.
func ParseDocument(body []byte) (*goquery.Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// BaseURL reduces a page URL to its scheme and host, the reference used to
// resolve image paths.
func BaseURL(pageURL string) (*url.URL, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("page url %q must be absolute", pageURL)
	}
	return &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}, nil
}

// Extract dispatches on page shape. A catalogue page yields one record per
// well-formed card; malformed cards are skipped individually. A product page
// yields one record or none. Any other document yields nothing.
func (e *Extractor) Extract(doc *goquery.Document, base *url.URL) Extraction {
	if cards := doc.Find("article.product_pod"); cards.Length() > 0 {
		out := Extraction{Shape: ShapeCatalogue, Books: make([]*models.Book, 0, cards.Length())}
		cards.Each(func(i int, card *goquery.Selection) {
			res := extractCard(card, base)
			if res.err != nil {
				out.Skipped++
				e.logger.Warn("skipping malformed book entry",
					slog.Int("index", i),
					slog.Any("error", res.err),
				)
				return
			}
			out.Books = append(out.Books, res.book)
		})
		return out
	}

	if doc.Find("#product_gallery").Length() > 0 {
		out := Extraction{Shape: ShapeProduct}
		book, err := extractProduct(doc, base)
		if err != nil {
			out.Skipped = 1
			e.logger.Error("error processing single product", slog.Any("error", err))
			return out
		}
		out.Books = []*models.Book{book}
		return out
	}

	return Extraction{Shape: ShapeUnknown}
}

func extractCard(card *goquery.Selection, base *url.URL) itemResult {
	title, ok := card.Find("h3 a").First().Attr("title")
	title = strings.TrimSpace(title)
	if !ok || title == "" {
		return skip(errors.New("card has no titled link"))
	}

	book, err := extractFields(card, card.Find("img").First(), base)
	if err != nil {
		return skip(fmt.Errorf("%s: %w", title, err))
	}
	book.Title = title
	if err := ValidateBook(book); err != nil {
		return skip(err)
	}
	return itemResult{book: book}
}

func extractProduct(doc *goquery.Document, base *url.URL) (*models.Book, error) {
	product := doc.Find(".product_main").First()
	if product.Length() == 0 {
		return nil, errors.New("product page has no .product_main container")
	}
	title := strings.TrimSpace(product.Find("h1").First().Text())
	if title == "" {
		return nil, errors.New("product has no heading")
	}

	book, err := extractFields(product, doc.Find("#product_gallery img").First(), base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", title, err)
	}
	book.Title = title
	if err := ValidateBook(book); err != nil {
		return nil, err
	}
	return book, nil
}

// extractFields reads price, rating, availability and image from scope.
// Title selection differs per page shape and is left to the caller.
func extractFields(scope, img *goquery.Selection, base *url.URL) (*models.Book, error) {
	priceNode := scope.Find("p.price_color").First()
	if priceNode.Length() == 0 {
		return nil, errors.New("missing price")
	}
	price := strings.TrimSpace(priceNode.Text())
	if price == "" {
		return nil, errors.New("empty price")
	}

	class, ok := scope.Find("p.star-rating").First().Attr("class")
	if !ok {
		return nil, errors.New("missing star rating")
	}
	rating, err := RatingFromClass(class)
	if err != nil {
		return nil, err
	}

	availability := OutOfStock
	if stock := scope.Find("p.instock").First(); stock.Length() > 0 {
		availability = NormalizeAvailability(stock.Text())
	}

	src, ok := img.Attr("src")
	if !ok {
		return nil, errors.New("missing image")
	}
	imageURL, err := ResolveImageURL(src, base)
	if err != nil {
		return nil, err
	}

	return &models.Book{
		Price:        price,
		Rating:       rating,
		Availability: availability,
		ImageURL:     imageURL,
	}, nil
}

// ResolveImageURL strips leading parent-directory markers from a
// page-relative image path and resolves the rest against base.
func ResolveImageURL(src string, base *url.URL) (string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", errors.New("empty image src")
	}

	path := src
	for strings.HasPrefix(path, "../") {
		path = strings.TrimPrefix(path, "../")
	}
	if path != src {
		path = "/" + path
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse image src %q: %w", src, err)
	}
	return base.ResolveReference(ref).String(), nil
}
