package polygons

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MetersPerDegree scales degree-based planar area to square meters. It is a
// flat approximation, kept as-is so stored sizes stay comparable.
const MetersPerDegree = 111139

var ErrInvalidRing = errors.New("polygon needs at least 3 points")

// Point is a vertex in drawing order. It travels as [lon, lat].
type Point struct {
	Lon float64
	Lat float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lon, p.Lat})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) < 2 {
		return fmt.Errorf("point needs [lon, lat], got %d values", len(pair))
	}
	p.Lon, p.Lat = pair[0], pair[1]
	return nil
}

// Ring is the polygon boundary as drawn; it may or may not repeat the first point.
type Ring []Point

func (r Ring) Validate() error {
	if len(r) < 3 {
		return fmt.Errorf("%w (got %d)", ErrInvalidRing, len(r))
	}
	for i, p := range r {
		if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
			return fmt.Errorf("%w: point %d is not a finite coordinate", ErrInvalidRing, i)
		}
	}
	return nil
}

// ParseRing decodes a JSON list of [lon, lat] pairs.
func ParseRing(s string) (Ring, error) {
	var r Ring
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("decoding ring: %w", err)
	}
	return r, nil
}

func (r Ring) String() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// AreaSqMeters treats lon/lat as planar coordinates, takes the shoelace area
// and multiplies by MetersPerDegree squared. No geodesic correction.
func AreaSqMeters(r Ring) float64 {
	if len(r) < 3 {
		return 0
	}
	ring := make(orb.Ring, 0, len(r)+1)
	for _, p := range r {
		ring = append(ring, orb.Point{p.Lon, p.Lat})
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return math.Abs(planar.Area(ring)) * MetersPerDegree * MetersPerDegree
}

func FormatAreaSize(sqm float64) string {
	return fmt.Sprintf("%.2f sqm", sqm)
}

func ParseAreaSize(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "sqm"))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// Record is one saved polygon. It is never edited after it is stored.
type Record struct {
	Identity     Identity `json:"identity"`
	AreaName     string   `json:"area_name"`
	AreaSqMeters float64  `json:"area_sq_meters"`
	Streets      []string `json:"streets,omitempty"`
	Places       []string `json:"places,omitempty"`
	Color        string   `json:"color"`
	Ring         Ring     `json:"ring"`
}

func (r Record) AreaSize() string     { return FormatAreaSize(r.AreaSqMeters) }
// IdentityKey normalises first so rows written with stray spaces or
// decomposed accents still match what users type.
func (r Record) IdentityKey() string  { return r.Identity.Normalize().Key() }
func (r Record) DisplayColor() string { return r.Color }

// NameSet deduplicates names by exact match and sorts them.
func NameSet(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func joinNames(names []string) string {
	return strings.Join(NameSet(names), ", ")
}

func splitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return NameSet(strings.Split(s, ", "))
}
