// Package recordsimport is the operator side of the record table: export,
// bulk import and wipe.
package recordsimport

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
)

type Mode string

const (
	ModeExport Mode = "export"
	ModeImport Mode = "import"
	ModeReset  Mode = "reset"
)

type Config struct {
	Mode Mode
	// Path is the CSV written by export or read by import.
	Path string
	// Wipe must be set for anything that replaces stored data.
	Wipe bool
}

// TableStore is what Run needs from store.Store.
type TableStore interface {
	Export(ctx context.Context) ([]byte, error)
	Replace(ctx context.Context, records []polygons.Record) error
	ResetAll(ctx context.Context) error
}

// Run performs cfg.Mode against st and returns the number of records handled.
func Run(ctx context.Context, cfg Config, st TableStore) (int, error) {
	switch cfg.Mode {
	case ModeExport:
		if cfg.Path == "" {
			return 0, errors.New("export needs a path")
		}
		data, err := st.Export(ctx)
		if err != nil {
			return 0, err
		}
		records, err := polygons.DecodeTable(data)
		if err != nil {
			return 0, err
		}
		if err := os.WriteFile(cfg.Path, data, 0o644); err != nil {
			return 0, fmt.Errorf("writing %s: %w", cfg.Path, err)
		}
		return len(records), nil

	case ModeImport:
		if !cfg.Wipe {
			return 0, errors.New("refusing to run: set Wipe=true (import replaces the stored table)")
		}
		records, err := ParseCSV(cfg.Path)
		if err != nil {
			return 0, err
		}
		if err := st.Replace(ctx, records); err != nil {
			return 0, err
		}
		return len(records), nil

	case ModeReset:
		if !cfg.Wipe {
			return 0, errors.New("refusing to run: set Wipe=true (reset deletes every record)")
		}
		return 0, st.ResetAll(ctx)

	default:
		return 0, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}
