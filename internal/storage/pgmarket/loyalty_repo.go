package pgmarket

import (
	"context"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

var ErrInsufficientPoints = errors.New("insufficient points")

// AddLoyaltyEntry appends one ledger entry. Negative deltas (redemptions)
// are balance-checked inside the transaction so concurrent redemptions
// cannot overdraw.
func (s *Storage) AddLoyaltyEntry(ctx context.Context, e *models.LoyaltyEntry) (*models.LoyaltyEntry, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if e.Delta < 0 {
		// Serialize redemptions per user; SUM cannot take a row lock.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, e.UserID); err != nil {
			return nil, errors.Wrap(err, "advisory lock")
		}

		var balance int64
		err := tx.QueryRow(ctx, `
SELECT COALESCE(SUM(delta), 0)
FROM loyalty_entries
WHERE user_id = $1
`, e.UserID).Scan(&balance)
		if err != nil {
			return nil, errors.Wrap(err, "select balance")
		}
		if balance+e.Delta < 0 {
			return nil, ErrInsufficientPoints
		}
	}

	var out models.LoyaltyEntry
	err = tx.QueryRow(ctx, `
INSERT INTO loyalty_entries (user_id, order_id, delta, reason, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, user_id, order_id, delta, reason, created_at
`, e.UserID, e.OrderID, e.Delta, e.Reason, now).Scan(
		&out.ID, &out.UserID, &out.OrderID, &out.Delta, &out.Reason, &out.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert loyalty entry")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return &out, nil
}

func (s *Storage) LoyaltyBalance(ctx context.Context, userID string) (*models.LoyaltyAccount, error) {
	var acc models.LoyaltyAccount
	acc.UserID = userID
	err := s.db.QueryRow(ctx, `
SELECT COALESCE(SUM(delta), 0), COALESCE(MAX(created_at), now())
FROM loyalty_entries
WHERE user_id = $1
`, userID).Scan(&acc.Points, &acc.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "select balance")
	}
	return &acc, nil
}

func (s *Storage) ListLoyaltyEntries(ctx context.Context, userID string, limit, offset int) ([]*models.LoyaltyEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT id, user_id, order_id, delta, reason, created_at
FROM loyalty_entries
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select loyalty entries")
	}
	defer rows.Close()

	var out []*models.LoyaltyEntry
	for rows.Next() {
		var e models.LoyaltyEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.OrderID, &e.Delta, &e.Reason, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan loyalty entry")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
