package loyalty

import (
	"context"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	AddLoyaltyEntry(ctx context.Context, e *models.LoyaltyEntry) (*models.LoyaltyEntry, error)
	LoyaltyBalance(ctx context.Context, userID string) (*models.LoyaltyAccount, error)
	ListLoyaltyEntries(ctx context.Context, userID string, limit, offset int) ([]*models.LoyaltyEntry, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Balance(ctx context.Context, userID string) (*models.LoyaltyAccount, error) {
	if userID == "" {
		return nil, errors.New("userId is required")
	}
	return s.repo.LoyaltyBalance(ctx, userID)
}

func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]*models.LoyaltyEntry, error) {
	if userID == "" {
		return nil, errors.New("userId is required")
	}
	return s.repo.ListLoyaltyEntries(ctx, userID, limit, offset)
}

// Adjust appends a manual ledger entry, e.g. goodwill points from support.
func (s *Service) Adjust(ctx context.Context, userID string, delta int64, reason string) (*models.LoyaltyEntry, error) {
	if userID == "" {
		return nil, errors.New("userId is required")
	}
	if delta == 0 {
		return nil, errors.New("delta must not be zero")
	}
	if reason == "" {
		return nil, errors.New("reason is required")
	}
	return s.repo.AddLoyaltyEntry(ctx, &models.LoyaltyEntry{UserID: userID, Delta: delta, Reason: reason})
}
