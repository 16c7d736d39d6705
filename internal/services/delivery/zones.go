package delivery

import "github.com/FreshOps/MarketBox/internal/models"

// Zone reference data. A real deployment would load this from an ops-owned
// table; the set below mirrors the launch coverage area.
var zones = []*models.DeliveryZone{
	{
		ID:                 "downtown",
		Name:               "Downtown",
		PostalCodes:        []string{"10001", "10002", "10003", "10004", "10005"},
		BaseRateCents:      499,
		FreeDeliveryCents:  3500,
		MaxDeliveryMinutes: 90,
		IsActive:           true,
		PerishableHandling: true,
		RushDelivery:       true,
	},
	{
		ID:                 "midtown",
		Name:               "Midtown",
		PostalCodes:        []string{"10016", "10017", "10018", "10019", "10022"},
		BaseRateCents:      599,
		FreeDeliveryCents:  4000,
		MaxDeliveryMinutes: 120,
		IsActive:           true,
		PerishableHandling: true,
		RushDelivery:       true,
	},
	{
		ID:                 "suburbs",
		Name:               "Suburbs",
		PostalCodes:        []string{"11101", "11102", "11103", "11201", "11215"},
		BaseRateCents:      699,
		FreeDeliveryCents:  5000,
		MaxDeliveryMinutes: 180,
		IsActive:           true,
		PerishableHandling: true,
		RushDelivery:       false,
	},
	{
		ID:                 "outskirts",
		Name:               "Outskirts",
		PostalCodes:        []string{"10701", "10702", "10703"},
		BaseRateCents:      999,
		FreeDeliveryCents:  7500,
		MaxDeliveryMinutes: 240,
		IsActive:           true,
		PerishableHandling: false,
		RushDelivery:       false,
	},
	{
		ID:          "retired-pilot",
		Name:        "Pilot Area (closed)",
		PostalCodes: []string{"07030"},
		IsActive:    false,
	},
}

func Zones() []*models.DeliveryZone {
	out := make([]*models.DeliveryZone, 0, len(zones))
	for _, z := range zones {
		if z.IsActive {
			out = append(out, z)
		}
	}
	return out
}

// ZoneForPostalCode returns the first active zone whose postal code set
// contains the code. An unmatched code is not an error: callers get
// ok=false and treat the address as "delivery unavailable".
func ZoneForPostalCode(postalCode string) (*models.DeliveryZone, bool) {
	for _, z := range zones {
		if !z.IsActive {
			continue
		}
		if z.ContainsPostalCode(postalCode) {
			return z, true
		}
	}
	return nil, false
}

func ZoneByID(id string) (*models.DeliveryZone, bool) {
	for _, z := range zones {
		if z.ID == id && z.IsActive {
			return z, true
		}
	}
	return nil, false
}

func IsDeliveryAvailable(postalCode string) bool {
	_, ok := ZoneForPostalCode(postalCode)
	return ok
}
