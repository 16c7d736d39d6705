package reviews

import (
	"context"
	"unicode/utf8"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

const maxBodyLength = 4000

type Repository interface {
	CreateReview(ctx context.Context, r *models.Review) (*models.Review, error)
	ListReviews(ctx context.Context, productID uint64, limit, offset int) ([]*models.Review, error)
	ReviewSummary(ctx context.Context, productID uint64) (count int64, avg float64, err error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, r *models.Review) (*models.Review, error) {
	if r.ProductID == 0 {
		return nil, errors.New("productId is required")
	}
	if r.UserID == "" {
		return nil, errors.New("userId is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if utf8.RuneCountInString(r.Body) > maxBodyLength {
		return nil, errors.Errorf("body above %d characters", maxBodyLength)
	}
	return s.repo.CreateReview(ctx, r)
}

func (s *Service) List(ctx context.Context, productID uint64, limit, offset int) ([]*models.Review, error) {
	if productID == 0 {
		return nil, errors.New("productId is required")
	}
	return s.repo.ListReviews(ctx, productID, limit, offset)
}

type Summary struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

func (s *Service) Summarize(ctx context.Context, productID uint64) (*Summary, error) {
	count, avg, err := s.repo.ReviewSummary(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &Summary{Count: count, Average: avg}, nil
}
