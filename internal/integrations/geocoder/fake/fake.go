package fake

import (
	"context"
	"fmt"
	"strings"

	"github.com/FreshOps/MarketBox/internal/integrations/geocoder"
	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
)

// FakeClient serves canned addresses for dev and tests. Suggestions are a
// simple prefix match over a small fixture set.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

var fixtures = []models.Address{
	{Line1: "1 Main St", City: "New York", State: "NY", PostalCode: "10001", Country: "US"},
	{Line1: "25 Madison Ave", City: "New York", State: "NY", PostalCode: "10016", Country: "US"},
	{Line1: "9 Court Sq", City: "Long Island City", State: "NY", PostalCode: "11101", Country: "US"},
	{Line1: "140 Warburton Ave", City: "Yonkers", State: "NY", PostalCode: "10701", Country: "US"},
}

func placeID(i int) string { return fmt.Sprintf("place_fake_%d", i) }

func (f *FakeClient) Suggest(ctx context.Context, input, countryCode string, bias *geocoder.LatLng) ([]geocoder.Suggestion, error) {
	if input == "" {
		return nil, nil
	}
	q := strings.ToLower(input)
	var out []geocoder.Suggestion
	for i, a := range fixtures {
		if countryCode != "" && !strings.EqualFold(a.Country, countryCode) {
			continue
		}
		desc := fmt.Sprintf("%s, %s, %s %s", a.Line1, a.City, a.State, a.PostalCode)
		if strings.Contains(strings.ToLower(desc), q) {
			out = append(out, geocoder.Suggestion{PlaceID: placeID(i), Description: desc})
		}
	}
	return out, nil
}

func (f *FakeClient) PlaceDetails(ctx context.Context, id string) (*models.Address, error) {
	for i := range fixtures {
		if placeID(i) == id {
			a := fixtures[i]
			return &a, nil
		}
	}
	return nil, errors.Errorf("unknown place %s", id)
}

func (f *FakeClient) ReverseGeocode(ctx context.Context, at geocoder.LatLng) (*models.Address, error) {
	// Always resolves to the first fixture; enough for dev flows.
	a := fixtures[0]
	return &a, nil
}
