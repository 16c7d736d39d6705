package cart

import (
	"context"
	"testing"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	cart    *models.Cart
	items   map[uint64]*models.CartItem
	cleared bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		cart:  &models.Cart{ID: 1, UserID: "u-1"},
		items: map[uint64]*models.CartItem{},
	}
}

func (f *fakeRepo) GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	c := *f.cart
	c.Items = nil
	for _, it := range f.items {
		c.Items = append(c.Items, it)
	}
	return &c, nil
}
func (f *fakeRepo) SetCartItem(ctx context.Context, cartID uint64, it *models.CartItem) error {
	f.items[it.ProductID] = it
	return nil
}
func (f *fakeRepo) RemoveCartItem(ctx context.Context, cartID, productID uint64) error {
	delete(f.items, productID)
	return nil
}
func (f *fakeRepo) ClearCart(ctx context.Context, cartID uint64) error {
	f.items = map[uint64]*models.CartItem{}
	f.cleared = true
	return nil
}

type fakeProducts struct {
	byID map[uint64]*models.Product
}

func (f *fakeProducts) GetProduct(ctx context.Context, productID uint64) (*models.Product, error) {
	if p, ok := f.byID[productID]; ok {
		return p, nil
	}
	return nil, errors.Errorf("no product %d", productID)
}

func testProducts() *fakeProducts {
	return &fakeProducts{byID: map[uint64]*models.Product{
		10: {ID: 10, Name: "Whole Milk 1L", Category: models.CategoryDairy, PriceCents: 349, Stock: 5, IsActive: true},
		11: {ID: 11, Name: "Retired Soda", Category: models.CategoryBeverages, PriceCents: 199, Stock: 5, IsActive: false},
	}}
}

func TestSetItem_SnapshotsPrice(t *testing.T) {
	r := newFakeRepo()
	p := testProducts()
	s := New(r, p)

	c, err := s.SetItem(context.Background(), "u-1", 10, 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	require.EqualValues(t, 349, c.Items[0].UnitPriceCents)
	require.Equal(t, models.CategoryDairy, c.Items[0].ProductCategory)

	// catalog price moves, the open cart keeps its snapshot
	p.byID[10].PriceCents = 429
	c, err = s.GetCart(context.Background(), "u-1")
	require.NoError(t, err)
	require.EqualValues(t, 349, c.Items[0].UnitPriceCents)
}

func TestSetItem_Validation(t *testing.T) {
	s := New(newFakeRepo(), testProducts())

	_, err := s.SetItem(context.Background(), "", 10, 1)
	require.Error(t, err)

	_, err = s.SetItem(context.Background(), "u-1", 0, 1)
	require.Error(t, err)

	_, err = s.SetItem(context.Background(), "u-1", 10, -1)
	require.Error(t, err)

	_, err = s.SetItem(context.Background(), "u-1", 10, maxQuantityPerLine+1)
	require.Error(t, err)

	_, err = s.SetItem(context.Background(), "u-1", 11, 1)
	require.ErrorIs(t, err, ErrInactiveProduct)

	_, err = s.SetItem(context.Background(), "u-1", 10, 6)
	require.ErrorIs(t, err, ErrNotEnoughStock)
}

func TestSetItem_ZeroRemoves(t *testing.T) {
	r := newFakeRepo()
	s := New(r, testProducts())

	_, err := s.SetItem(context.Background(), "u-1", 10, 2)
	require.NoError(t, err)

	c, err := s.SetItem(context.Background(), "u-1", 10, 0)
	require.NoError(t, err)
	require.Empty(t, c.Items)
}

func TestClear(t *testing.T) {
	r := newFakeRepo()
	s := New(r, testProducts())

	_, err := s.SetItem(context.Background(), "u-1", 10, 2)
	require.NoError(t, err)
	require.NoError(t, s.Clear(context.Background(), "u-1"))
	require.True(t, r.cleared)
}
