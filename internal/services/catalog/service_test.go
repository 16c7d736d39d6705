package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	products  map[uint64]*models.Product
	listCalls int
}

func newFakeRepo(ps ...*models.Product) *fakeRepo {
	r := &fakeRepo{products: map[uint64]*models.Product{}}
	for _, p := range ps {
		r.products[p.ID] = p
	}
	return r
}

func (f *fakeRepo) ListProducts(ctx context.Context, category, search string, limit, offset int) ([]*models.Product, error) {
	f.listCalls++
	var out []*models.Product
	for _, p := range f.products {
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRepo) GetProduct(ctx context.Context, productID uint64) (*models.Product, error) {
	return f.products[productID], nil
}

func (f *fakeRepo) GetProductsByIDs(ctx context.Context, ids []uint64) ([]*models.Product, error) {
	var out []*models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpsertProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.ID == 0 {
		p.ID = uint64(len(f.products) + 1)
	}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeRepo) ListLowStock(ctx context.Context, threshold int64) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range f.products {
		if p.Stock < threshold {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ReviewSummary(ctx context.Context, productID uint64) (int64, float64, error) {
	return 3, 4.0, nil
}

type fakeCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{m: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func milk() *models.Product {
	return &models.Product{
		ID: 1, SKU: "MILK-1L", Name: "Whole Milk 1L",
		Category: models.CategoryDairy, PriceCents: 349, Stock: 20, IsActive: true,
	}
}

func TestListProducts_CachesFirstUnfilteredPage(t *testing.T) {
	repo := newFakeRepo(milk())
	s := New(repo, newFakeCache(), time.Minute)

	out, err := s.ListProducts(context.Background(), "", "", 20, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)

	out, err = s.ListProducts(context.Background(), "", "", 20, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 1, repo.listCalls)

	// searches and later pages always hit the repo
	_, err = s.ListProducts(context.Background(), "", "milk", 20, 0)
	require.NoError(t, err)
	_, err = s.ListProducts(context.Background(), "", "", 20, 20)
	require.NoError(t, err)
	require.Equal(t, 3, repo.listCalls)
}

func TestListProducts_UnknownCategory(t *testing.T) {
	s := New(newFakeRepo(), nil, 0)

	_, err := s.ListProducts(context.Background(), "electronics", "", 20, 0)
	require.Error(t, err)
}

func TestGetProduct_JoinsReviewSummary(t *testing.T) {
	s := New(newFakeRepo(milk()), nil, 0)

	v, err := s.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "MILK-1L", v.SKU)
	require.EqualValues(t, 3, v.ReviewCount)
	require.InDelta(t, 4.0, v.AverageRating, 0.001)

	_, err = s.GetProduct(context.Background(), 0)
	require.Error(t, err)
}

func TestUpsertProduct_Validation(t *testing.T) {
	s := New(newFakeRepo(), nil, 0)

	for _, p := range []*models.Product{
		{Name: "n", Category: models.CategoryDairy, PriceCents: 100},
		{SKU: "s", Category: models.CategoryDairy, PriceCents: 100},
		{SKU: "s", Name: "n", PriceCents: 100},
		{SKU: "s", Name: "n", Category: "electronics", PriceCents: 100},
		{SKU: "s", Name: "n", Category: models.CategoryDairy},
		{SKU: "s", Name: "n", Category: models.CategoryDairy, PriceCents: -5},
	} {
		_, err := s.UpsertProduct(context.Background(), p)
		require.Error(t, err)
	}

	got, err := s.UpsertProduct(context.Background(), &models.Product{
		SKU: "RICE-1KG", Name: "Basmati Rice 1kg",
		Category: models.CategoryPantry, PriceCents: 1299,
	})
	require.NoError(t, err)
	require.NotZero(t, got.ID)
}

func TestListLowStock_DefaultThreshold(t *testing.T) {
	low := milk()
	low.Stock = 2
	s := New(newFakeRepo(low), nil, 0)

	out, err := s.ListLowStock(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
}
