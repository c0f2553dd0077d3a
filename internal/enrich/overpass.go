package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
)

// placeTags mark an element as a named place rather than a street.
var placeTags = []string{"amenity", "shop", "tourism", "leisure", "building"}

// Features are the names found inside a ring.
type Features struct {
	Streets []string `json:"streets"`
	Places  []string `json:"places"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Tags map[string]string `json:"tags"`
}

// PolyFilter renders a ring as Overpass expects it: "lat lon lat lon ...".
func PolyFilter(ring polygons.Ring) string {
	parts := make([]string, 0, len(ring))
	for _, p := range ring {
		parts = append(parts,
			strconv.FormatFloat(p.Lat, 'f', -1, 64)+" "+strconv.FormatFloat(p.Lon, 'f', -1, 64))
	}
	return strings.Join(parts, " ")
}

// BuildQuery returns the Overpass QL selecting named highways and points of
// interest inside ring.
func BuildQuery(ring polygons.Ring) string {
	poly := fmt.Sprintf(`(poly:"%s")`, PolyFilter(ring))
	selectors := []string{
		`way["highway"]`,
		`node["amenity"]`,
		`node["shop"]`,
		`node["tourism"]`,
		`node["leisure"]`,
		`node["building"]`,
		`way["building"]`,
	}
	var b strings.Builder
	b.WriteString("[out:json];\n(\n")
	for _, s := range selectors {
		b.WriteString("  " + s + poly + ";\n")
	}
	b.WriteString(");\nout tags;\n")
	return b.String()
}

// FindFeatures asks Overpass for street and place names inside ring.
func (c *Client) FindFeatures(ctx context.Context, ring polygons.Ring) (Features, error) {
	form := url.Values{"data": {BuildQuery(ring)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.overpassURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Features{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(ctx, "overpass", req)
	if err != nil {
		return Features{}, err
	}
	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Features{}, fmt.Errorf("decoding overpass response: %w", err)
	}
	return extractFeatures(resp.Elements), nil
}

func extractFeatures(elements []overpassElement) Features {
	var streets, places []string
	for _, el := range elements {
		name, ok := el.Tags["name"]
		if !ok {
			continue
		}
		if _, ok := el.Tags["highway"]; ok {
			streets = append(streets, name)
		}
		for _, t := range placeTags {
			if _, ok := el.Tags[t]; ok {
				places = append(places, name)
				break
			}
		}
	}
	return Features{Streets: polygons.NameSet(streets), Places: polygons.NameSet(places)}
}
