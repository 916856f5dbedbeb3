package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/price-scraper/internal/etl"
	"github.com/pricewatch/price-scraper/internal/models"
	"github.com/pricewatch/price-scraper/internal/parser"
)

// ErrUnknownRetailer is returned for URLs no rule set claims.
var ErrUnknownRetailer = errors.New("no rule set for retailer")

// PageFetcher is the slice of the fetcher the service uses.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Service runs the scrape pipeline for single URLs: pick the rule set,
// fetch, extract, archive the raw capture, then normalize and persist.
type Service struct {
	fetcher    PageFetcher
	store      etl.RecordStore
	normalizer *etl.Normalizer
	dataDir    string
	logger     *slog.Logger
}

func New(fetcher PageFetcher, store etl.RecordStore, dataDir string, logger *slog.Logger) *Service {
	return &Service{
		fetcher:    fetcher,
		store:      store,
		normalizer: etl.NewNormalizer(logger),
		dataDir:    dataDir,
		logger:     logger.With("component", "scraper"),
	}
}

// ProcessURL scrapes one product page end to end.
func (s *Service) ProcessURL(ctx context.Context, rawURL string) error {
	rules, ok := parser.ForURL(rawURL)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRetailer, rawURL)
	}

	doc, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	raw := parser.New(rules, s.logger).Extract(doc, rawURL)
	s.archiveCapture(raw)

	p, err := s.normalizer.Normalize(raw)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", rawURL, err)
	}

	if err := etl.Persist(ctx, s.store, p, s.logger); err != nil {
		return err
	}

	s.logger.Info("product scraped",
		"retailer", p.Retailer,
		"product_id", p.ProductID,
		"name", p.Name,
		"has_prices", p.HasPrices())

	return nil
}

// archiveCapture writes the raw attribute map to the capture directory
// so the batch loader can replay it. Best effort: an archive failure
// never fails the scrape.
func (s *Service) archiveCapture(raw models.RawAttributes) {
	if s.dataDir == "" {
		return
	}

	retailer, _ := raw["retailer"].(string)
	productID, _ := raw["product_id"].(string)
	if productID == "" {
		productID = "unknown"
	}

	name := fmt.Sprintf("%s_%s_%s.json", retailer, productID, time.Now().Format("20060102T150405"))
	path := filepath.Join(s.dataDir, name)

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		s.logger.Warn("failed to encode capture", "file", path, "error", err)
		return
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn("failed to archive capture", "file", path, "error", err)
	}
}
