package placeshttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/FreshOps/MarketBox/internal/integrations/geocoder"
	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
)

// Client talks to the places/geocoding service over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9200"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type suggestionBody struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

type addressBody struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (c *Client) Suggest(ctx context.Context, input, countryCode string, bias *geocoder.LatLng) ([]geocoder.Suggestion, error) {
	q := url.Values{}
	q.Set("input", input)
	if countryCode != "" {
		q.Set("country", countryCode)
	}
	if bias != nil {
		q.Set("bias", fmt.Sprintf("%f,%f", bias.Lat, bias.Lng))
	}

	var body struct {
		Suggestions []suggestionBody `json:"suggestions"`
	}
	if err := c.get(ctx, "/v1/autocomplete", q, &body); err != nil {
		return nil, err
	}
	out := make([]geocoder.Suggestion, 0, len(body.Suggestions))
	for _, s := range body.Suggestions {
		out = append(out, geocoder.Suggestion{PlaceID: s.PlaceID, Description: s.Description})
	}
	return out, nil
}

func (c *Client) PlaceDetails(ctx context.Context, placeID string) (*models.Address, error) {
	var body addressBody
	path := fmt.Sprintf("/v1/places/%s", url.PathEscape(placeID))
	if err := c.get(ctx, path, url.Values{}, &body); err != nil {
		return nil, err
	}
	return toAddress(body), nil
}

func (c *Client) ReverseGeocode(ctx context.Context, at geocoder.LatLng) (*models.Address, error) {
	q := url.Values{}
	q.Set("latlng", fmt.Sprintf("%f,%f", at.Lat, at.Lng))

	var body addressBody
	if err := c.get(ctx, "/v1/reverse", q, &body); err != nil {
		return nil, err
	}
	return toAddress(body), nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = path
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "geocoder request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("geocoder returned %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode geocoder response")
	}
	return nil
}

func toAddress(b addressBody) *models.Address {
	return &models.Address{
		Line1:      b.Line1,
		Line2:      b.Line2,
		City:       b.City,
		State:      b.State,
		PostalCode: b.PostalCode,
		Country:    b.Country,
	}
}
