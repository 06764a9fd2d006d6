package pipeline

import (
	"context"

	"github.com/aluiziolira/books-scrape-api/models"
)

// Sink receives a copy of every stamped batch after the CSV write. Sinks
// are best effort: their errors are logged and counted but never flip
// Outcome.Saved.
type Sink interface {
	Name() string
	Write(ctx context.Context, books []*models.Book) error
	Close() error
}
