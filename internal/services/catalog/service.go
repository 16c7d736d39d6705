package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FreshOps/MarketBox/internal/cache"
	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	ListProducts(ctx context.Context, category, search string, limit, offset int) ([]*models.Product, error)
	GetProduct(ctx context.Context, productID uint64) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uint64) ([]*models.Product, error)
	UpsertProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	ListLowStock(ctx context.Context, threshold int64) ([]*models.Product, error)
	ReviewSummary(ctx context.Context, productID uint64) (count int64, avg float64, err error)
}

type Service struct {
	repo    Repository
	cache   cache.BytesCache
	listTTL time.Duration
}

func New(repo Repository, c cache.BytesCache, listTTL time.Duration) *Service {
	return &Service{repo: repo, cache: c, listTTL: listTTL}
}

var validCategories = map[string]struct{}{
	"":                           {},
	models.CategoryFreshProduce: {},
	models.CategoryDairy:        {},
	models.CategoryFrozen:       {},
	models.CategoryBeverages:    {},
	models.CategoryPantry:       {},
	models.CategoryHousehold:    {},
}

func (s *Service) ListProducts(ctx context.Context, category, search string, limit, offset int) ([]*models.Product, error) {
	if _, ok := validCategories[category]; !ok {
		return nil, errors.Errorf("unknown category %q", category)
	}

	// only the unfiltered first page is worth caching
	cacheable := s.cache != nil && s.listTTL > 0 && search == "" && offset == 0
	key := fmt.Sprintf("catalog:%s:first", category)
	if cacheable {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var out []*models.Product
			if json.Unmarshal(b, &out) == nil {
				return out, nil
			}
		}
	}

	out, err := s.repo.ListProducts(ctx, category, search, limit, offset)
	if err != nil {
		return nil, err
	}
	if cacheable {
		b, _ := json.Marshal(out)
		_ = s.cache.Set(ctx, key, b, s.listTTL)
	}
	return out, nil
}

// ProductView is a catalog entry joined with its review summary.
type ProductView struct {
	*models.Product
	ReviewCount   int64   `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
}

func (s *Service) GetProduct(ctx context.Context, productID uint64) (*ProductView, error) {
	if productID == 0 {
		return nil, errors.New("productId is required")
	}
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	count, avg, err := s.repo.ReviewSummary(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &ProductView{Product: p, ReviewCount: count, AverageRating: avg}, nil
}

func (s *Service) GetProductsByIDs(ctx context.Context, ids []uint64) ([]*models.Product, error) {
	return s.repo.GetProductsByIDs(ctx, ids)
}

func (s *Service) UpsertProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.SKU == "" {
		return nil, errors.New("sku is required")
	}
	if p.Name == "" {
		return nil, errors.New("name is required")
	}
	if _, ok := validCategories[p.Category]; !ok || p.Category == "" {
		return nil, errors.Errorf("unknown category %q", p.Category)
	}
	if p.PriceCents <= 0 {
		return nil, errors.New("price must be positive")
	}
	return s.repo.UpsertProduct(ctx, p)
}

func (s *Service) ListLowStock(ctx context.Context, threshold int64) ([]*models.Product, error) {
	if threshold <= 0 {
		threshold = 5
	}
	return s.repo.ListLowStock(ctx, threshold)
}
