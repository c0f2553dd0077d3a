package recordsimport

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
)

var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ParseCSV reads a table file and checks every row is something the map
// could have produced itself.
func ParseCSV(path string) ([]polygons.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	records, err := polygons.DecodeTable(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("csv has no data rows")
	}

	for i, r := range records {
		row := i + 2 // header is row 1
		if !r.Identity.Normalize().Complete() {
			return nil, fmt.Errorf("row %d: Nome, Cognome and Nome Impresa are required", row)
		}
		if err := r.Ring.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if !colorRe.MatchString(r.Color) {
			return nil, fmt.Errorf("row %d: color %q is not #RRGGBB", row, r.Color)
		}
	}
	return records, nil
}
