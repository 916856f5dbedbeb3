package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pricewatch/price-scraper/internal/models"
)

// Loader replays directories of raw capture files through the
// normalizer and into the store. One bad file never stops the batch.
type Loader struct {
	store      RecordStore
	normalizer *Normalizer
	logger     *slog.Logger
}

func NewLoader(store RecordStore, normalizer *Normalizer, logger *slog.Logger) *Loader {
	return &Loader{
		store:      store,
		normalizer: normalizer,
		logger:     logger.With("component", "loader"),
	}
}

// ProcessDirectory loads every *.json file under dir and returns the
// number of records persisted.
func (l *Loader) ProcessDirectory(ctx context.Context, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("list captures in %s: %w", dir, err)
	}

	l.logger.Info("processing capture directory", "dir", dir, "files", len(paths))

	loaded := 0
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return loaded, ctx.Err()
		default:
		}
		if err := l.processFile(ctx, path); err != nil {
			l.logger.Error("failed to load capture", "file", path, "error", err)
			continue
		}
		loaded++
	}

	l.logger.Info("capture directory processed", "dir", dir, "loaded", loaded, "failed", len(paths)-loaded)
	return loaded, nil
}

func (l *Loader) processFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var raw models.RawAttributes
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	p, err := l.normalizer.Normalize(raw)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}

	return Persist(ctx, l.store, p, l.logger)
}
