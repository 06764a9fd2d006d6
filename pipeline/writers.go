package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/books-scrape-api/models"
)

const (
	// TimestampLayout is the ISO-8601 form written to scrape_timestamp.
	TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

	snapshotLayout = "20060102_150405"
)

// Outcome reports what a persist call achieved. Saved covers the cumulative
// store and the snapshot; mirror sinks never change it.
type Outcome struct {
	Saved          bool
	Filename       string
	Backup         string
	MirrorFailures int
}

// Store appends batches to a cumulative CSV file and writes one snapshot
// file per batch. A Store is not safe for concurrent use; Pipeline
// serialises access to it.
type Store struct {
	mainPath  string
	backupDir string
	retention *Retention
	sinks     []Sink
	now       func() time.Time
	logger    *slog.Logger
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithRetention prunes old snapshots after every successful write.
func WithRetention(r *Retention) StoreOption {
	return func(s *Store) { s.retention = r }
}

// WithSinks mirrors every stamped batch to the given sinks.
func WithSinks(sinks ...Sink) StoreOption {
	return func(s *Store) { s.sinks = append(s.sinks, sinks...) }
}

// WithClock overrides the time source used for stamps and snapshot names.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore prepares the backup directory and returns a store writing to
// mainPath.
func NewStore(mainPath, backupDir string, logger *slog.Logger, opts ...StoreOption) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ensureDir(mainPath); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory %q: %w", backupDir, err)
	}

	s := &Store{
		mainPath:  mainPath,
		backupDir: backupDir,
		now:       time.Now,
		logger:    logger.With("component", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MainPath returns the cumulative store location.
func (s *Store) MainPath() string {
	return s.mainPath
}

// SnapshotPrefix is the file name prefix shared by every snapshot of mainPath.
func SnapshotPrefix(mainPath string) string {
	base := filepath.Base(mainPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_"
}

// Write stamps books with the current time and sourceURL, appends them to
// the cumulative store and writes a fresh snapshot. Failures are logged
// and reported through Outcome.
func (s *Store) Write(ctx context.Context, books []*models.Book, sourceURL string) Outcome {
	now := s.now()
	stamp := now.Format(TimestampLayout)
	for _, book := range books {
		book.ScrapeTimestamp = stamp
		book.SourceURL = sourceURL
	}

	out := Outcome{}
	if err := appendCSV(s.mainPath, books); err != nil {
		s.logger.Error("failed to save data to csv", slog.String("path", s.mainPath), slog.Any("error", err))
	} else {
		backup := filepath.Join(s.backupDir, SnapshotPrefix(s.mainPath)+now.Format(snapshotLayout)+".csv")
		if err := writeSnapshot(backup, books); err != nil {
			s.logger.Error("failed to write snapshot", slog.String("path", backup), slog.Any("error", err))
		} else {
			out = Outcome{Saved: true, Filename: s.mainPath, Backup: backup}
			if s.retention != nil {
				s.retention.Track(backup)
			}
		}
	}

	for _, sink := range s.sinks {
		if err := sink.Write(ctx, books); err != nil {
			out.MirrorFailures++
			s.logger.Error("mirror write failed", slog.String("sink", sink.Name()), slog.Any("error", err))
		}
	}
	return out
}

// Close releases every mirror sink.
func (s *Store) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// appendCSV adds rows to path, writing the header only when the file is new.
func appendCSV(path string, books []*models.Book) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open csv file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat csv file: %w", err)
	}
	if err := writeRecords(f, info.Size() == 0, books); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeSnapshot always truncates; a second batch in the same second replaces the first.
func writeSnapshot(path string, books []*models.Book) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	if err := writeRecords(f, true, books); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeRecords(w io.Writer, header bool, books []*models.Book) error {
	writer := csv.NewWriter(w)
	if header {
		if err := writer.Write(models.CSVHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	for _, book := range books {
		if err := writer.Write(book.CSVRecord()); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
