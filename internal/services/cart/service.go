package cart

import (
	"context"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
)

var (
	ErrInactiveProduct = errors.New("product is not available")
	ErrNotEnoughStock  = errors.New("not enough stock")
)

const maxQuantityPerLine = 50

type Repository interface {
	GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error)
	SetCartItem(ctx context.Context, cartID uint64, it *models.CartItem) error
	RemoveCartItem(ctx context.Context, cartID, productID uint64) error
	ClearCart(ctx context.Context, cartID uint64) error
}

// ProductSource is the catalog read side the cart needs for snapshots.
type ProductSource interface {
	GetProduct(ctx context.Context, productID uint64) (*models.Product, error)
}

type Service struct {
	repo     Repository
	products ProductSource
}

func New(repo Repository, products ProductSource) *Service {
	return &Service{repo: repo, products: products}
}

func (s *Service) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	if userID == "" {
		return nil, errors.New("userId is required")
	}
	return s.repo.GetOrCreateCart(ctx, userID)
}

// SetItem sets the absolute quantity of a product, snapshotting the price
// at the time of the call. Quantity zero removes the line.
func (s *Service) SetItem(ctx context.Context, userID string, productID uint64, quantity int64) (*models.Cart, error) {
	if userID == "" {
		return nil, errors.New("userId is required")
	}
	if productID == 0 {
		return nil, errors.New("productId is required")
	}
	if quantity < 0 {
		return nil, errors.New("quantity must not be negative")
	}
	if quantity > maxQuantityPerLine {
		return nil, errors.Errorf("quantity above %d per line", maxQuantityPerLine)
	}

	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity == 0 {
		if err := s.repo.RemoveCartItem(ctx, c.ID, productID); err != nil {
			return nil, err
		}
		return s.repo.GetOrCreateCart(ctx, userID)
	}

	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrInactiveProduct
	}
	if p.Stock < quantity {
		return nil, ErrNotEnoughStock
	}

	err = s.repo.SetCartItem(ctx, c.ID, &models.CartItem{
		ProductID:       p.ID,
		Quantity:        quantity,
		UnitPriceCents:  p.PriceCents,
		ProductName:     p.Name,
		ProductCategory: p.Category,
		ProductTags:     p.Tags,
		WeightGrams:     p.WeightGrams,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetOrCreateCart(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID string, productID uint64) (*models.Cart, error) {
	return s.SetItem(ctx, userID, productID, 0)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.ClearCart(ctx, c.ID)
}
