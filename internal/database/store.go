package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pricewatch/price-scraper/internal/models"
)

// EventPriceRecorded is emitted on every persisted price observation.
const EventPriceRecorded = "PRICE_RECORDED"

// ProductRow is the products table shape.
type ProductRow struct {
	ID        int64     `db:"id" json:"id"`
	ProductID string    `db:"product_id" json:"product_id"`
	Retailer  string    `db:"retailer" json:"retailer"`
	Name      string    `db:"name" json:"name"`
	Brand     *string   `db:"brand" json:"brand,omitempty"`
	Category  *string   `db:"category" json:"category,omitempty"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Store persists products and their price and review observations.
type Store struct {
	db     *DB
	outbox *OutboxRepository
}

func NewStore(db *DB) *Store {
	return &Store{db: db, outbox: NewOutboxRepository(db)}
}

// UpsertProduct inserts or refreshes the identity row for a product and
// returns its surrogate key. A record arriving without a retailer
// identifier gets a generated token so history can still accumulate
// under it.
func (s *Store) UpsertProduct(ctx context.Context, p *models.NormalizedProduct) (int64, error) {
	if p.ProductID == "" {
		p.ProductID = "gen-" + uuid.NewString()
	}

	query := `
		INSERT INTO products (product_id, retailer, name, brand, category, url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id, retailer) DO UPDATE SET
			name = EXCLUDED.name,
			brand = COALESCE(EXCLUDED.brand, products.brand),
			category = COALESCE(EXCLUDED.category, products.category),
			url = EXCLUDED.url,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id`

	var id int64
	err := s.db.pool.QueryRow(ctx, query,
		p.ProductID, p.Retailer, p.Name, p.Brand, p.Category, p.URL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert product: %w", err)
	}

	return id, nil
}

// AppendPrice records one price observation and stages the matching
// outbox event in the same transaction, so downstream consumers never
// see an observation that was not committed.
func (s *Store) AppendPrice(ctx context.Context, productRef int64, p *models.NormalizedProduct) error {
	payload, err := json.Marshal(map[string]any{
		"product_ref":         productRef,
		"product_id":          p.ProductID,
		"retailer":            p.Retailer,
		"current_price":       p.CurrentPrice,
		"original_price":      p.OriginalPrice,
		"discount_percentage": p.DiscountPercentage,
		"in_stock":            p.InStock,
		"observed_at":         p.Timestamp.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal price payload: %w", err)
	}

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO prices (product_ref, current_price, original_price, discount_percentage, in_stock, observed_at)
			VALUES ($1, $2, $3, $4, $5, $6)`

		_, err := tx.Exec(ctx, query,
			productRef, p.CurrentPrice, p.OriginalPrice, p.DiscountPercentage, p.InStock, p.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert price: %w", err)
		}

		event := &OutboxEvent{
			AggregateType: "product",
			AggregateID:   fmt.Sprintf("%d", productRef),
			EventType:     EventPriceRecorded,
			Payload:       payload,
		}
		return s.outbox.InsertWithTx(ctx, tx, event)
	})
}

// AppendReview records one review snapshot.
func (s *Store) AppendReview(ctx context.Context, productRef int64, p *models.NormalizedProduct) error {
	query := `
		INSERT INTO reviews (product_ref, rating, review_count, observed_at)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.pool.Exec(ctx, query, productRef, p.Rating, p.ReviewCount, p.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}

	return nil
}

// GetProduct retrieves one product by surrogate key, nil when absent.
func (s *Store) GetProduct(ctx context.Context, id int64) (*ProductRow, error) {
	query := `
		SELECT id, product_id, retailer, name, brand, category, url, created_at, updated_at
		FROM products
		WHERE id = $1`

	row := &ProductRow{}
	err := s.db.pool.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.ProductID, &row.Retailer, &row.Name,
		&row.Brand, &row.Category, &row.URL, &row.CreatedAt, &row.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return row, nil
}

// ListProducts returns tracked products, optionally narrowed to one
// retailer, most recently updated first.
func (s *Store) ListProducts(ctx context.Context, retailer string, limit int) ([]*ProductRow, error) {
	query := `
		SELECT id, product_id, retailer, name, brand, category, url, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR retailer = $1)
		ORDER BY updated_at DESC
		LIMIT $2`

	rows, err := s.db.pool.Query(ctx, query, retailer, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*ProductRow
	for rows.Next() {
		row := &ProductRow{}
		err := rows.Scan(
			&row.ID, &row.ProductID, &row.Retailer, &row.Name,
			&row.Brand, &row.Category, &row.URL, &row.CreatedAt, &row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

// PriceHistory returns the price observations for a product, newest
// first.
func (s *Store) PriceHistory(ctx context.Context, productRef int64, limit int) ([]*models.PriceRecord, error) {
	query := `
		SELECT product_ref, current_price, original_price, discount_percentage, in_stock, observed_at
		FROM prices
		WHERE product_ref = $1
		ORDER BY observed_at DESC
		LIMIT $2`

	rows, err := s.db.pool.Query(ctx, query, productRef, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var records []*models.PriceRecord
	for rows.Next() {
		r := &models.PriceRecord{}
		err := rows.Scan(
			&r.ProductRef, &r.CurrentPrice, &r.OriginalPrice,
			&r.DiscountPercentage, &r.InStock, &r.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// ReviewHistory returns the review snapshots for a product, newest
// first.
func (s *Store) ReviewHistory(ctx context.Context, productRef int64, limit int) ([]*models.ReviewRecord, error) {
	query := `
		SELECT product_ref, rating, review_count, observed_at
		FROM reviews
		WHERE product_ref = $1
		ORDER BY observed_at DESC
		LIMIT $2`

	rows, err := s.db.pool.Query(ctx, query, productRef, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query review history: %w", err)
	}
	defer rows.Close()

	var records []*models.ReviewRecord
	for rows.Next() {
		r := &models.ReviewRecord{}
		if err := rows.Scan(&r.ProductRef, &r.Rating, &r.ReviewCount, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan review record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}
