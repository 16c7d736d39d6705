package pgmarket

import (
	"context"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// GetOrCreateCart returns the user's open cart, creating an empty one on
// first touch.
func (s *Storage) GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	now := time.Now().UTC()

	var c models.Cart
	err := s.db.QueryRow(ctx, `
INSERT INTO carts (user_id, created_at, updated_at)
VALUES ($1,$2,$2)
ON CONFLICT (user_id)
DO UPDATE SET updated_at = carts.updated_at
RETURNING id, user_id, created_at, updated_at
`, userID, now).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "upsert cart")
	}

	items, err := s.listCartItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return &c, nil
}

func (s *Storage) listCartItems(ctx context.Context, cartID uint64) ([]*models.CartItem, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  id, cart_id, product_id, quantity, unit_price_cents,
  product_name, product_category, product_tags, weight_grams, created_at
FROM cart_items
WHERE cart_id = $1
ORDER BY id
`, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "select cart items")
	}
	defer rows.Close()

	var out []*models.CartItem
	for rows.Next() {
		var it models.CartItem
		if err := rows.Scan(
			&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.UnitPriceCents,
			&it.ProductName, &it.ProductCategory, &it.ProductTags, &it.WeightGrams, &it.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan cart item")
		}
		out = append(out, &it)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// SetCartItem sets the absolute quantity of a product line. Quantity zero
// removes the line. The price snapshot is taken from the passed item, not
// re-read from the catalog.
func (s *Storage) SetCartItem(ctx context.Context, cartID uint64, it *models.CartItem) error {
	if it.Quantity <= 0 {
		return s.RemoveCartItem(ctx, cartID, it.ProductID)
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO cart_items (
  cart_id, product_id, quantity, unit_price_cents,
  product_name, product_category, product_tags, weight_grams, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (cart_id, product_id)
DO UPDATE SET quantity = EXCLUDED.quantity
`, cartID, it.ProductID, it.Quantity, it.UnitPriceCents,
		it.ProductName, it.ProductCategory, it.ProductTags, it.WeightGrams, now)
	if err != nil {
		return errors.Wrap(err, "upsert cart item")
	}

	_, err = tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	if err != nil {
		return errors.Wrap(err, "touch cart")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func (s *Storage) RemoveCartItem(ctx context.Context, cartID, productID uint64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	return errors.Wrap(err, "delete cart item")
}

func (s *Storage) ClearCart(ctx context.Context, cartID uint64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return errors.Wrap(err, "clear cart")
}
