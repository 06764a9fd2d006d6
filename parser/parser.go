package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/books-scrape-api/models"
)

// OutOfStock is the availability recorded when a card has no stock indicator.
const OutOfStock = "Out of stock"

// ValidateBook ensures the extractor captured every required field.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	if strings.TrimSpace(b.Price) == "" {
		return fmt.Errorf("book missing price for %s", b.Title)
	}
	if strings.TrimSpace(b.Rating) == "" {
		return fmt.Errorf("book missing rating for %s", b.Title)
	}
	if strings.TrimSpace(b.Availability) == "" {
		return fmt.Errorf("book missing availability for %s", b.Title)
	}
	if strings.TrimSpace(b.ImageURL) == "" {
		return fmt.Errorf("book missing image url for %s", b.Title)
	}
	return nil
}

// NormalizeAvailability trims spacing from the availability text and falls
// back to OutOfStock when nothing is left.
func NormalizeAvailability(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return OutOfStock
	}
	return text
}

// RatingToNumeric converts the textual rating word to a numeric scale.
// Words outside the One..Five vocabulary map to 0.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}

// RatingFromClass maps a star-rating class attribute such as
// "star-rating Three" to "Three stars". The second class token must belong
// to the rating vocabulary.
func RatingFromClass(class string) (string, error) {
	tokens := strings.Fields(class)
	if len(tokens) < 2 {
		return "", fmt.Errorf("star-rating class %q has no rating token", class)
	}
	if RatingToNumeric(tokens[1]) == 0 {
		return "", fmt.Errorf("unknown rating token %q", tokens[1])
	}
	return tokens[1] + " stars", nil
}
