package pgmarket

import (
	"context"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

var ErrOutOfStock = errors.New("out of stock")

const productColumns = `
  id, sku, name, description, category, tags,
  price_cents, weight_grams, stock, is_active,
  created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Tags,
		&p.PriceCents, &p.WeightGrams, &p.Stock, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProduct inserts or refreshes a catalog entry keyed by SKU. Used by
// the seeder and by admin imports.
func (s *Storage) UpsertProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	now := time.Now().UTC()

	row := s.db.QueryRow(ctx, `
INSERT INTO products (
  sku, name, description, category, tags,
  price_cents, weight_grams, stock, is_active,
  created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
ON CONFLICT (sku)
DO UPDATE SET
  name = EXCLUDED.name,
  description = EXCLUDED.description,
  category = EXCLUDED.category,
  tags = EXCLUDED.tags,
  price_cents = EXCLUDED.price_cents,
  weight_grams = EXCLUDED.weight_grams,
  is_active = EXCLUDED.is_active,
  updated_at = EXCLUDED.updated_at
RETURNING`+productColumns+`
`, p.SKU, p.Name, p.Description, p.Category, p.Tags,
		p.PriceCents, p.WeightGrams, p.Stock, p.IsActive, now)

	out, err := scanProduct(row)
	if err != nil {
		return nil, errors.Wrap(err, "upsert product")
	}
	return out, nil
}

func (s *Storage) GetProduct(ctx context.Context, productID uint64) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRow(ctx, `SELECT`+productColumns+` FROM products WHERE id = $1`, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select product")
	}
	return p, nil
}

func (s *Storage) GetProductsByIDs(ctx context.Context, ids []uint64) ([]*models.Product, error) {
	if len(ids) == 0 {
		return []*models.Product{}, nil
	}

	rows, err := s.db.Query(ctx, `SELECT`+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	defer rows.Close()

	out := make([]*models.Product, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ListProducts returns active catalog entries, optionally restricted to a
// category and/or a name substring match.
func (s *Storage) ListProducts(ctx context.Context, category, search string, limit, offset int) ([]*models.Product, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT`+productColumns+`
FROM products
WHERE is_active
  AND ($1 = '' OR category = $1)
  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
ORDER BY name
LIMIT $3 OFFSET $4
`, category, search, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// AdjustStock moves stock by delta and fails the whole batch if any line
// would go negative.
func (s *Storage) AdjustStock(ctx context.Context, deltas map[uint64]int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for productID, delta := range deltas {
		var stock int64
		err := tx.QueryRow(ctx, `
UPDATE products
SET stock = stock + $2, updated_at = now()
WHERE id = $1 AND stock + $2 >= 0
RETURNING stock
`, productID, delta).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOutOfStock
		}
		if err != nil {
			return errors.Wrap(err, "adjust stock")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func (s *Storage) ListLowStock(ctx context.Context, threshold int64) ([]*models.Product, error) {
	rows, err := s.db.Query(ctx, `
SELECT`+productColumns+`
FROM products
WHERE is_active AND stock <= $1
ORDER BY stock ASC
`, threshold)
	if err != nil {
		return nil, errors.Wrap(err, "select low stock")
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
