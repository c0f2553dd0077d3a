package mapform

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
)

const maxBody = 1 << 20

var ErrBadGeometry = errors.New("drawing is not a polygon")

// ringFromGeoJSON accepts a Feature, a FeatureCollection or a bare geometry
// and returns the outer ring of its polygon. For collections the last
// feature is used, matching "last drawn wins".
func ringFromGeoJSON(data []byte) (polygons.Ring, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadGeometry, err)
	}

	var g orb.Geometry
	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadGeometry, err)
		}
		g = f.Geometry
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadGeometry, err)
		}
		if len(fc.Features) == 0 {
			return nil, nil
		}
		g = fc.Features[len(fc.Features)-1].Geometry
	default:
		geo, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadGeometry, err)
		}
		g = geo.Geometry()
	}

	poly, ok := g.(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrBadGeometry, g)
	}
	if len(poly) == 0 {
		return nil, nil
	}
	ring := make(polygons.Ring, 0, len(poly[0]))
	for _, p := range poly[0] {
		ring = append(ring, polygons.Point{Lon: p.Lon(), Lat: p.Lat()})
	}
	return ring, nil
}

// ringFromRequest reads a drawing from a JSON GeoJSON body, or from the
// "geojson" or "ring" form fields. ok is false when the request has none.
func ringFromRequest(r *http.Request) (ring polygons.Ring, ok bool, err error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" || ct == "application/geo+json" {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			return nil, false, fmt.Errorf("reading body: %w", err)
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			return nil, false, nil
		}
		ring, err := ringFromGeoJSON(body)
		return ring, true, err
	}

	if err := r.ParseForm(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrBadGeometry, err)
	}
	if v := strings.TrimSpace(r.PostForm.Get("geojson")); v != "" {
		ring, err := ringFromGeoJSON([]byte(v))
		return ring, true, err
	}
	if v := strings.TrimSpace(r.PostForm.Get("ring")); v != "" {
		ring, err := polygons.ParseRing(v)
		if err != nil {
			return nil, true, fmt.Errorf("%w: %v", ErrBadGeometry, err)
		}
		return ring, true, nil
	}
	return nil, false, nil
}
