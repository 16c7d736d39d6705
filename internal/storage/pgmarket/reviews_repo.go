package pgmarket

import (
	"context"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
)

// CreateReview inserts or replaces the user's review for a product. One
// review per user per product.
func (s *Storage) CreateReview(ctx context.Context, r *models.Review) (*models.Review, error) {
	now := time.Now().UTC()

	var out models.Review
	err := s.db.QueryRow(ctx, `
INSERT INTO reviews (product_id, user_id, rating, title, body, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (product_id, user_id)
DO UPDATE SET rating = EXCLUDED.rating, title = EXCLUDED.title, body = EXCLUDED.body, created_at = EXCLUDED.created_at
RETURNING id, product_id, user_id, rating, title, body, created_at
`, r.ProductID, r.UserID, r.Rating, r.Title, r.Body, now).Scan(
		&out.ID, &out.ProductID, &out.UserID, &out.Rating, &out.Title, &out.Body, &out.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "upsert review")
	}
	return &out, nil
}

func (s *Storage) ListReviews(ctx context.Context, productID uint64, limit, offset int) ([]*models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT id, product_id, user_id, rating, title, body, created_at
FROM reviews
WHERE product_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, productID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select reviews")
	}
	defer rows.Close()

	var out []*models.Review
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Title, &r.Body, &r.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan review")
		}
		out = append(out, &r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ReviewSummary returns the review count and average rating for a product.
func (s *Storage) ReviewSummary(ctx context.Context, productID uint64) (count int64, avg float64, err error) {
	err = s.db.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(AVG(rating), 0)
FROM reviews
WHERE product_id = $1
`, productID).Scan(&count, &avg)
	if err != nil {
		return 0, 0, errors.Wrap(err, "review summary")
	}
	return count, avg, nil
}
