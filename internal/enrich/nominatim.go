package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
)

// UnknownArea is the label used when no area name can be found.
const UnknownArea = "Unknown"

type reverseResponse struct {
	Address struct {
		Suburb       string `json:"suburb"`
		CityDistrict string `json:"city_district"`
		City         string `json:"city"`
	} `json:"address"`
}

// ReverseGeocode returns the most specific area name Nominatim knows for p:
// suburb, then city district, then city. It returns UnknownArea alongside any
// error so callers can use the label either way.
func (c *Client) ReverseGeocode(ctx context.Context, p polygons.Point) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.nominatimURL+"?"+q.Encode(), nil)
	if err != nil {
		return UnknownArea, fmt.Errorf("creating request: %w", err)
	}
	body, err := c.do(ctx, "nominatim", req)
	if err != nil {
		return UnknownArea, err
	}
	var resp reverseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return UnknownArea, fmt.Errorf("decoding nominatim response: %w", err)
	}

	for _, name := range []string{resp.Address.Suburb, resp.Address.CityDistrict, resp.Address.City} {
		if name != "" {
			return name, nil
		}
	}
	return UnknownArea, nil
}
