package delivery

import (
	"testing"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDeriveInstructions_Empty(t *testing.T) {
	require.Empty(t, DeriveInstructions(nil))
	require.Empty(t, DeriveInstructions([]*models.CartItem{
		{ProductCategory: models.CategoryPantry, WeightGrams: 100, Quantity: 1},
	}))
}

func TestDeriveInstructions_Perishable(t *testing.T) {
	out := DeriveInstructions([]*models.CartItem{
		{ProductCategory: models.CategoryDairy, Quantity: 1},
	})
	require.Equal(t, []string{
		"Keep refrigerated items in cooler bag",
		"Load frozen items last, deliver first",
	}, out)
}

func TestDeriveInstructions_FrozenAddsInsulatedBag(t *testing.T) {
	out := DeriveInstructions([]*models.CartItem{
		{ProductCategory: models.CategoryFrozen, Quantity: 1},
	})
	require.Contains(t, out, "Use insulated bag for frozen goods")
}

func TestDeriveInstructions_FragileTagAndBeverages(t *testing.T) {
	tagged := DeriveInstructions([]*models.CartItem{
		{ProductCategory: models.CategoryPantry, ProductTags: []string{"fragile"}, Quantity: 1},
	})
	require.Contains(t, tagged, "Handle with care - fragile items")
	require.Contains(t, tagged, "Keep bottles upright")

	beverages := DeriveInstructions([]*models.CartItem{
		{ProductCategory: models.CategoryBeverages, Quantity: 1},
	})
	require.Contains(t, beverages, "Handle with care - fragile items")
}

func TestDeriveInstructions_HeavyItem(t *testing.T) {
	out := DeriveInstructions([]*models.CartItem{
		{ProductCategory: models.CategoryPantry, WeightGrams: 5500, Quantity: 1},
	})
	require.Contains(t, out, "Heavy order - use trolley")

	// the trigger is a single heavy unit, not line or cart weight
	light := DeriveInstructions([]*models.CartItem{
		{ProductCategory: models.CategoryPantry, WeightGrams: 2000, Quantity: 3},
		{ProductCategory: models.CategoryPantry, WeightGrams: 5000, Quantity: 1},
	})
	require.NotContains(t, light, "Heavy order - use trolley")
}

func TestDeriveInstructions_StableOrder(t *testing.T) {
	items := []*models.CartItem{
		{ProductCategory: models.CategoryFrozen, WeightGrams: 6000, Quantity: 1, ProductTags: []string{"fragile"}},
	}
	require.Equal(t, []string{
		"Keep refrigerated items in cooler bag",
		"Load frozen items last, deliver first",
		"Use insulated bag for frozen goods",
		"Handle with care - fragile items",
		"Keep bottles upright",
		"Heavy order - use trolley",
	}, DeriveInstructions(items))
}
