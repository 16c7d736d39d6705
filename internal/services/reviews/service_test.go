package reviews

import (
	"context"
	"strings"
	"testing"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	created []*models.Review
}

func (f *fakeRepo) CreateReview(ctx context.Context, r *models.Review) (*models.Review, error) {
	f.created = append(f.created, r)
	return r, nil
}
func (f *fakeRepo) ListReviews(ctx context.Context, productID uint64, limit, offset int) ([]*models.Review, error) {
	return f.created, nil
}
func (f *fakeRepo) ReviewSummary(ctx context.Context, productID uint64) (int64, float64, error) {
	return int64(len(f.created)), 4.5, nil
}

func TestCreate_RatingBounds(t *testing.T) {
	s := New(&fakeRepo{})

	for _, rating := range []int{0, -1, 6, 100} {
		_, err := s.Create(context.Background(), &models.Review{ProductID: 1, UserID: "u-1", Rating: rating})
		require.ErrorIs(t, err, ErrInvalidRating)
	}
	for rating := 1; rating <= 5; rating++ {
		_, err := s.Create(context.Background(), &models.Review{ProductID: 1, UserID: "u-1", Rating: rating})
		require.NoError(t, err)
	}
}

func TestCreate_Validation(t *testing.T) {
	s := New(&fakeRepo{})

	_, err := s.Create(context.Background(), &models.Review{UserID: "u-1", Rating: 3})
	require.Error(t, err)

	_, err = s.Create(context.Background(), &models.Review{ProductID: 1, Rating: 3})
	require.Error(t, err)

	_, err = s.Create(context.Background(), &models.Review{
		ProductID: 1, UserID: "u-1", Rating: 3,
		Body: strings.Repeat("x", maxBodyLength+1),
	})
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	r := &fakeRepo{}
	s := New(r)

	_, err := s.Create(context.Background(), &models.Review{ProductID: 1, UserID: "u-1", Rating: 5})
	require.NoError(t, err)

	sum, err := s.Summarize(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, sum.Count)
	require.InDelta(t, 4.5, sum.Average, 0.001)
}
