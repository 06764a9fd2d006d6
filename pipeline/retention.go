package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Retention keeps the newest snapshots and deletes older ones as new
// snapshots are tracked. Snapshot names embed a sortable timestamp, so
// lexical order is age order.
type Retention struct {
	cache *lru.Cache[string, struct{}]
}

// NewRetention tracks at most keep snapshots under dir that share prefix.
// Existing snapshots are adopted oldest first, so a directory already over
// the limit is trimmed immediately. keep <= 0 disables pruning and
// returns nil.
func NewRetention(dir, prefix string, keep int, logger *slog.Logger) (*Retention, error) {
	if keep <= 0 {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "retention")

	cache, err := lru.NewWithEvict[string, struct{}](keep, func(path string, _ struct{}) {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to remove old snapshot", slog.String("path", path), slog.Any("error", err))
			return
		}
		logger.Debug("removed old snapshot", slog.String("path", path))
	})
	if err != nil {
		return nil, fmt.Errorf("create retention cache: %w", err)
	}

	existing, err := filepath.Glob(filepath.Join(dir, prefix+"*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	sort.Strings(existing)

	r := &Retention{cache: cache}
	for _, path := range existing {
		r.Track(path)
	}
	return r, nil
}

// Track records path as the newest snapshot.
func (r *Retention) Track(path string) {
	if r == nil {
		return
	}
	r.cache.Add(path, struct{}{})
}

// Len reports how many snapshots are retained.
func (r *Retention) Len() int {
	if r == nil {
		return 0
	}
	return r.cache.Len()
}
