package geocoder

import (
	"context"

	"github.com/FreshOps/MarketBox/internal/models"
)

type Suggestion struct {
	PlaceID     string
	Description string
}

type LatLng struct {
	Lat float64
	Lng float64
}

// Client is the address autocomplete / geocoding boundary.
type Client interface {
	// Suggest returns ranked completions for a partial address. bias is
	// optional and nudges ranking toward a location.
	Suggest(ctx context.Context, input, countryCode string, bias *LatLng) ([]Suggestion, error)
	PlaceDetails(ctx context.Context, placeID string) (*models.Address, error)
	ReverseGeocode(ctx context.Context, at LatLng) (*models.Address, error)
}
