package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/books-scrape-api/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// steppingClock returns a clock that advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func sampleBooks(titles ...string) []*models.Book {
	books := make([]*models.Book, 0, len(titles))
	for _, title := range titles {
		books = append(books, &models.Book{
			Title:        title,
			Price:        "£10.00",
			Rating:       "Two stars",
			Availability: "In stock",
			ImageURL:     "https://books.toscrape.com/media/cache/x.jpg",
		})
	}
	return books
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return records
}

func TestStoreAppendsAndSnapshots(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "scraped_data.csv")
	backupDir := filepath.Join(dir, "backups")
	start := time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC)

	store, err := NewStore(mainPath, backupDir, quietLogger(), WithClock(steppingClock(start)))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	first := store.Write(context.Background(), sampleBooks("A", "B"), "https://books.toscrape.com/a")
	second := store.Write(context.Background(), sampleBooks("C", "D", "E"), "https://books.toscrape.com/b")

	for _, out := range []Outcome{first, second} {
		if !out.Saved || out.Filename != mainPath || out.Backup == "" {
			t.Fatalf("unexpected outcome: %+v", out)
		}
	}
	if first.Backup != filepath.Join(backupDir, "scraped_data_20251104_130913.csv") {
		t.Fatalf("backup = %q", first.Backup)
	}
	if first.Backup == second.Backup {
		t.Fatalf("snapshots should differ, both %q", first.Backup)
	}

	records := readCSV(t, mainPath)
	if len(records) != 1+5 {
		t.Fatalf("main rows = %d, want header + 5", len(records))
	}
	if records[0][0] != "title" || records[0][6] != "source_url" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	headers := 0
	for _, rec := range records {
		if rec[0] == "title" {
			headers++
		}
	}
	if headers != 1 {
		t.Fatalf("header written %d times", headers)
	}
	if records[1][5] != "2025-11-04T13:09:13.000000Z" {
		t.Fatalf("timestamp = %q", records[1][5])
	}
	if records[5][6] != "https://books.toscrape.com/b" {
		t.Fatalf("source url = %q", records[5][6])
	}

	if snap := readCSV(t, first.Backup); len(snap) != 3 {
		t.Fatalf("first snapshot rows = %d, want 3", len(snap))
	}
	if snap := readCSV(t, second.Backup); len(snap) != 4 {
		t.Fatalf("second snapshot rows = %d, want 4", len(snap))
	}
}

func TestStoreReportsWriteFailure(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "scraped_data.csv")
	store, err := NewStore(mainPath, filepath.Join(dir, "backups"), quietLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	// A directory where the file should be makes the append fail.
	if err := os.Mkdir(mainPath, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out := store.Write(context.Background(), sampleBooks("A"), "https://books.toscrape.com/")
	if out.Saved || out.Filename != "" || out.Backup != "" {
		t.Fatalf("expected failed outcome, got %+v", out)
	}
}

type recordingSink struct {
	books  int
	err    error
	closed bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(_ context.Context, books []*models.Book) error {
	s.books += len(books)
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestStoreMirrorsToSinks(t *testing.T) {
	dir := t.TempDir()
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("boom")}
	store, err := NewStore(filepath.Join(dir, "books.csv"), filepath.Join(dir, "backups"), quietLogger(),
		WithSinks(ok, failing))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	out := store.Write(context.Background(), sampleBooks("A", "B"), "https://books.toscrape.com/")
	if !out.Saved {
		t.Fatalf("mirror failure must not affect Saved: %+v", out)
	}
	if out.MirrorFailures != 1 {
		t.Fatalf("mirror failures = %d, want 1", out.MirrorFailures)
	}
	if ok.books != 2 || failing.books != 2 {
		t.Fatalf("sinks saw %d/%d books", ok.books, failing.books)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !ok.closed || !failing.closed {
		t.Fatalf("sinks not closed")
	}
}

func TestSnapshotPrefix(t *testing.T) {
	if got := SnapshotPrefix("out/scraped_data.csv"); got != "scraped_data_" {
		t.Fatalf("prefix = %q", got)
	}
	if got := SnapshotPrefix("books"); got != "books_" {
		t.Fatalf("prefix = %q", got)
	}
}
