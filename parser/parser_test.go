package parser

import (
	"testing"

	"github.com/aluiziolira/books-scrape-api/models"
)

func TestValidateBook(t *testing.T) {
	valid := func() *models.Book {
		return &models.Book{
			Title:        "Test Book",
			Price:        "£10.00",
			Rating:       "Five stars",
			Availability: "In stock",
			ImageURL:     "https://books.toscrape.com/media/cache/a.jpg",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*models.Book)
		wantErr bool
	}{
		{name: "valid book", mutate: func(*models.Book) {}, wantErr: false},
		{name: "missing title", mutate: func(b *models.Book) { b.Title = " " }, wantErr: true},
		{name: "missing price", mutate: func(b *models.Book) { b.Price = "" }, wantErr: true},
		{name: "missing rating", mutate: func(b *models.Book) { b.Rating = "" }, wantErr: true},
		{name: "missing availability", mutate: func(b *models.Book) { b.Availability = "" }, wantErr: true},
		{name: "missing image", mutate: func(b *models.Book) { b.ImageURL = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := valid()
			tt.mutate(book)
			err := ValidateBook(book)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBook() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := ValidateBook(nil); err == nil {
		t.Errorf("ValidateBook(nil) should fail")
	}
}

func TestRatingToNumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{input: "One", expected: 1},
		{input: "Two", expected: 2},
		{input: "Three", expected: 3},
		{input: "Four", expected: 4},
		{input: "Five", expected: 5},
		{input: "Zero", expected: 0},
		{input: "three", expected: 0},
		{input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := RatingToNumeric(tt.input); got != tt.expected {
				t.Errorf("RatingToNumeric(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRatingFromClass(t *testing.T) {
	tests := []struct {
		name    string
		class   string
		want    string
		wantErr bool
	}{
		{name: "three", class: "star-rating Three", want: "Three stars"},
		{name: "extra whitespace", class: "  star-rating   One ", want: "One stars"},
		{name: "no token", class: "star-rating", wantErr: true},
		{name: "unknown word", class: "star-rating Seven", wantErr: true},
		{name: "empty", class: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RatingFromClass(tt.class)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RatingFromClass(%q) error = %v, wantErr %v", tt.class, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("RatingFromClass(%q) = %q, want %q", tt.class, got, tt.want)
			}
		})
	}
}

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "with whitespace", input: "\n   In stock (22 available)  \n", expected: "In stock (22 available)"},
		{name: "no whitespace", input: "In stock", expected: "In stock"},
		{name: "empty string", input: "   ", expected: OutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeAvailability(tt.input); got != tt.expected {
				t.Errorf("NormalizeAvailability(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
