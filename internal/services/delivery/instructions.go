package delivery

import "github.com/FreshOps/MarketBox/internal/models"

const heavyItemThresholdGrams = 5000

const tagFragile = "fragile"

// DeriveInstructions inspects cart contents and returns handling advisories
// for the courier, in a fixed order. Pure rule evaluation, no state.
func DeriveInstructions(items []*models.CartItem) []string {
	var (
		perishable bool
		frozen     bool
		fragile    bool
		heavy      bool
	)
	for _, it := range items {
		if it.Perishable() {
			perishable = true
		}
		if it.ProductCategory == models.CategoryFrozen {
			frozen = true
		}
		if it.HasTag(tagFragile) || it.ProductCategory == models.CategoryBeverages {
			fragile = true
		}
		if it.WeightGrams > heavyItemThresholdGrams {
			heavy = true
		}
	}

	var out []string
	if perishable {
		out = append(out,
			"Keep refrigerated items in cooler bag",
			"Load frozen items last, deliver first",
		)
		if frozen {
			out = append(out, "Use insulated bag for frozen goods")
		}
	}
	if fragile {
		out = append(out,
			"Handle with care - fragile items",
			"Keep bottles upright",
		)
	}
	if heavy {
		out = append(out, "Heavy order - use trolley")
	}
	return out
}
