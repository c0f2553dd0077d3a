package polygons

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Column names of the stored table, in order.
const (
	ColGivenName   = "Nome"
	ColFamilyName  = "Cognome"
	ColCompanyName = "Nome Impresa"
	ColAreaName    = "Area Name"
	ColAreaSize    = "Area Size"
	ColStreets     = "Streets"
	ColPlaces      = "Places"
	ColColor       = "Color"
	ColCoordinates = "Coordinates"
)

var Columns = []string{
	ColGivenName, ColFamilyName, ColCompanyName, ColAreaName, ColAreaSize,
	ColStreets, ColPlaces, ColColor, ColCoordinates,
}

var ErrMalformedTable = errors.New("malformed polygon table")

// EmptyTable is a header-only table.
func EmptyTable() []byte {
	b, _ := EncodeTable(nil)
	return b
}

func EncodeTable(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, err
	}
	for i, r := range records {
		coords, err := json.Marshal(r.Ring)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		row := []string{
			r.Identity.GivenName,
			r.Identity.FamilyName,
			r.Identity.CompanyName,
			r.AreaName,
			r.AreaSize(),
			joinNames(r.Streets),
			joinNames(r.Places),
			r.Color,
			string(coords),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTable parses a stored table. Empty input and a header-only table both
// yield no records.
func DecodeTable(data []byte) ([]Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, k := range Columns {
		if _, ok := col[k]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedTable, k)
		}
	}

	out := make([]Record, 0, len(rows)-1)
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		get := func(name string) string {
			i := col[name]
			if i >= len(row) {
				return ""
			}
			return row[i]
		}

		ring, err := ParseRing(get(ColCoordinates))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedTable, rowIdx+1, err)
		}
		area, err := ParseAreaSize(get(ColAreaSize))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: area size %q", ErrMalformedTable, rowIdx+1, get(ColAreaSize))
		}

		out = append(out, Record{
			Identity: Identity{
				GivenName:   get(ColGivenName),
				FamilyName:  get(ColFamilyName),
				CompanyName: get(ColCompanyName),
			},
			AreaName:     get(ColAreaName),
			AreaSqMeters: area,
			Streets:      splitNames(get(ColStreets)),
			Places:       splitNames(get(ColPlaces)),
			Color:        strings.TrimSpace(get(ColColor)),
			Ring:         ring,
		})
	}
	return out, nil
}
