package etl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pricewatch/price-scraper/internal/models"
)

// RecordStore is the slice of the persistence layer the pipeline needs.
type RecordStore interface {
	UpsertProduct(ctx context.Context, p *models.NormalizedProduct) (int64, error)
	AppendPrice(ctx context.Context, productRef int64, p *models.NormalizedProduct) error
	AppendReview(ctx context.Context, productRef int64, p *models.NormalizedProduct) error
}

// Persist writes one normalized record: the product row is upserted,
// then exactly one price fact and one review fact are appended, null
// values included, so history stays continuous over time. The two
// appends are independent; a failure in either is logged and does not
// fail the record or block the other.
func Persist(ctx context.Context, store RecordStore, p *models.NormalizedProduct, logger *slog.Logger) error {
	ref, err := store.UpsertProduct(ctx, p)
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", p.Name, err)
	}

	if err := store.AppendPrice(ctx, ref, p); err != nil {
		logger.Error("failed to append price observation",
			"product_ref", ref, "retailer", p.Retailer, "error", err)
	}

	if err := store.AppendReview(ctx, ref, p); err != nil {
		logger.Error("failed to append review observation",
			"product_ref", ref, "retailer", p.Retailer, "error", err)
	}

	return nil
}
