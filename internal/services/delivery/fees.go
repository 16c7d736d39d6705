package delivery

import (
	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
)

// Surcharges are flat and applied at most once per order.
const (
	PerishableSurchargeCents = 299
	RushSurchargeCents       = 499
)

// ErrUnavailable is the "delivery not available" outcome: no active zone
// covers the postal code, or the shipping option does not exist.
var ErrUnavailable = errors.New("delivery not available")

// FeeQuote is the delivery fee breakdown shown at checkout. Total is
// Base + Distance + Perishable + Rush; FreeDelivery means the base portion
// was waived by the zone threshold (surcharges are still owed).
type FeeQuote struct {
	ZoneID          string `json:"zone_id"`
	OptionID        string `json:"option_id"`
	BaseCents       int64  `json:"base_cents"`
	DistanceCents   int64  `json:"distance_cents"`
	PerishableCents int64  `json:"perishable_cents"`
	RushCents       int64  `json:"rush_cents"`
	TotalCents      int64  `json:"total_cents"`
	FreeDelivery    bool   `json:"free_delivery"`
}

// CalculateFee prices delivery for a cart. The free-delivery threshold
// waives only the base portion; perishable and rush surcharges survive a
// free-shipping order.
func CalculateFee(items []*models.CartItem, postalCode, optionID string, rush bool) (*FeeQuote, error) {
	zone, ok := ZoneForPostalCode(postalCode)
	if !ok {
		return nil, ErrUnavailable
	}
	option, ok := OptionByID(optionID)
	if !ok {
		return nil, ErrUnavailable
	}
	if option.RushTier && !zone.RushDelivery {
		return nil, ErrUnavailable
	}

	q := &FeeQuote{
		ZoneID:    zone.ID,
		OptionID:  option.ID,
		BaseCents: zone.BaseRateCents + option.PriceCents,
	}

	if zone.PerishableHandling && hasPerishables(items) {
		q.PerishableCents = PerishableSurchargeCents
	}
	if rush && zone.RushDelivery {
		q.RushCents = RushSurchargeCents
	}

	if models.CartSubtotalCents(items) >= zone.FreeDeliveryCents {
		q.BaseCents = 0
		q.FreeDelivery = true
	}

	q.TotalCents = q.BaseCents + q.DistanceCents + q.PerishableCents + q.RushCents
	return q, nil
}

func hasPerishables(items []*models.CartItem) bool {
	for _, it := range items {
		if it.Perishable() {
			return true
		}
	}
	return false
}
