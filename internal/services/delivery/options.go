package delivery

import "github.com/FreshOps/MarketBox/internal/models"

var shippingOptions = []*models.ShippingOption{
	{
		ID:            "standard",
		Name:          "Standard Delivery",
		Description:   "Delivered within the zone's regular window",
		PriceCents:    0,
		EstimatedTime: "2-3 hours",
		IsDefault:     true,
	},
	{
		ID:            "express",
		Name:          "Express Delivery",
		Description:   "Bumped to the front of the dispatch queue",
		PriceCents:    999,
		EstimatedTime: "under 1 hour",
		RushTier:      true,
	},
	{
		ID:                 "scheduled",
		Name:               "Scheduled Delivery",
		Description:        "Pick a 2-hour window up to a week ahead",
		PriceCents:         499,
		EstimatedTime:      "chosen window",
		RequiresScheduling: true,
	},
	{
		ID:            "next_day",
		Name:          "Next-Day Delivery",
		Description:   "Tomorrow before noon",
		PriceCents:    1499,
		EstimatedTime: "next morning",
		RushTier:      true,
	},
}

// OptionsForZone filters the shipping tiers by zone capability: rush tiers
// are not offered where the zone disallows rush delivery.
func OptionsForZone(zone *models.DeliveryZone) []*models.ShippingOption {
	out := make([]*models.ShippingOption, 0, len(shippingOptions))
	for _, o := range shippingOptions {
		if o.RushTier && !zone.RushDelivery {
			continue
		}
		out = append(out, o)
	}
	return out
}

func OptionByID(id string) (*models.ShippingOption, bool) {
	for _, o := range shippingOptions {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

func DefaultOption() *models.ShippingOption {
	for _, o := range shippingOptions {
		if o.IsDefault {
			return o
		}
	}
	return shippingOptions[0]
}
