package models

import "time"

// Product categories that require refrigerated handling.
const (
	CategoryFreshProduce = "fresh_produce"
	CategoryDairy        = "dairy"
	CategoryFrozen       = "frozen"
	CategoryBeverages    = "beverages"
	CategoryPantry       = "pantry"
	CategoryHousehold    = "household"
)

type Product struct {
	ID          uint64    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	WeightGrams int64     `json:"weight_grams"`
	Stock       int64     `json:"stock"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Perishable reports whether the product needs cold-chain handling.
func (p *Product) Perishable() bool {
	switch p.Category {
	case CategoryFreshProduce, CategoryDairy, CategoryFrozen:
		return true
	}
	return false
}

func (p *Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type Cart struct {
	ID        uint64      `json:"id"`
	UserID    string      `json:"user_id"`
	Items     []*CartItem `json:"items,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CartItem keeps a price snapshot taken when the item was added, so a later
// catalog price change does not silently reprice an open cart.
type CartItem struct {
	ID              uint64    `json:"id"`
	CartID          uint64    `json:"cart_id"`
	ProductID       uint64    `json:"product_id"`
	Quantity        int64     `json:"quantity"`
	UnitPriceCents  int64     `json:"unit_price_cents"`
	ProductName     string    `json:"product_name"`
	ProductCategory string    `json:"product_category"`
	ProductTags     []string  `json:"product_tags,omitempty"`
	WeightGrams     int64     `json:"weight_grams"`
	CreatedAt       time.Time `json:"created_at"`
}

func (it *CartItem) Perishable() bool {
	switch it.ProductCategory {
	case CategoryFreshProduce, CategoryDairy, CategoryFrozen:
		return true
	}
	return false
}

func (it *CartItem) HasTag(tag string) bool {
	for _, t := range it.ProductTags {
		if t == tag {
			return true
		}
	}
	return false
}

// CartSubtotalCents sums quantity * snapshot price across items.
func CartSubtotalCents(items []*CartItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.UnitPriceCents * it.Quantity
	}
	return sum
}
