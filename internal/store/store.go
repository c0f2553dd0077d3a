// Package store keeps every polygon record in one table object. The whole
// table is read and written at once; there is no row-level access.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/metrics"
	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
)

var (
	// ErrNotFound is returned by a Backend when the object does not exist yet.
	ErrNotFound = errors.New("object not found")
	// ErrCredentials means the backend refused or could not find credentials.
	// The operation fails and is not retried.
	ErrCredentials = errors.New("store credentials unavailable")
	// ErrTransient covers every other backend failure. Users may retry.
	ErrTransient = errors.New("store unreachable")
	// ErrCorrupt means the stored table could not be decoded.
	ErrCorrupt = errors.New("stored table is corrupt")
)

// Backend reads and writes a single opaque object.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
}

type Store struct {
	backend Backend
	key     string
	log     *logger.Logger
}

func New(backend Backend, key string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{backend: backend, key: key, log: log.With("store_key", key)}
}

// LoadAll returns every stored record. A missing object is created empty on
// the spot and reported as an empty store.
func (s *Store) LoadAll(ctx context.Context) ([]polygons.Record, error) {
	data, err := s.read(ctx)
	if err != nil {
		observe("load", err)
		return nil, err
	}
	records, err := polygons.DecodeTable(data)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrCorrupt, err)
		observe("load", err)
		return nil, err
	}
	if records == nil {
		records = []polygons.Record{}
	}
	observe("load", nil)
	return records, nil
}

// AppendAndSave loads the table, appends rec and writes the whole table back.
// Two writers racing between load and put lose one of the two appends; the
// last put wins.
func (s *Store) AppendAndSave(ctx context.Context, rec polygons.Record) error {
	records, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}
	records = append(records, rec)
	body, err := polygons.EncodeTable(records)
	if err != nil {
		return fmt.Errorf("encoding table: %w", err)
	}
	err = s.backend.Put(ctx, s.key, body)
	observe("save", err)
	if err != nil {
		s.log.Error("save_failed", "err", err)
		return err
	}
	s.log.Info("record_saved", "identity", rec.IdentityKey(), "records", len(records))
	return nil
}

// ResetAll replaces the table with an empty one, discarding all history.
func (s *Store) ResetAll(ctx context.Context) error {
	err := s.backend.Put(ctx, s.key, polygons.EmptyTable())
	observe("reset", err)
	if err != nil {
		s.log.Error("reset_failed", "err", err)
		return err
	}
	s.log.Warn("table_reset")
	return nil
}

// Export returns the stored object byte for byte.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	data, err := s.read(ctx)
	observe("export", err)
	return data, err
}

func (s *Store) read(ctx context.Context) ([]byte, error) {
	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		s.log.Info("table_missing_creating")
		empty := polygons.EmptyTable()
		if err := s.backend.Put(ctx, s.key, empty); err != nil {
			s.log.Error("table_create_failed", "err", err)
			return nil, err
		}
		return empty, nil
	}
	if err != nil {
		s.log.Error("table_read_failed", "err", err)
		return nil, err
	}
	return data, nil
}

// Replace overwrites the table with records. Operator tooling only.
func (s *Store) Replace(ctx context.Context, records []polygons.Record) error {
	body, err := polygons.EncodeTable(records)
	if err != nil {
		return fmt.Errorf("encoding table: %w", err)
	}
	err = s.backend.Put(ctx, s.key, body)
	observe("replace", err)
	return err
}

func observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrCredentials):
		result = "credentials"
	case errors.Is(err, ErrCorrupt):
		result = "corrupt"
	default:
		result = "transient"
	}
	metrics.StoreOpsTotal.WithLabelValues(op, result).Inc()
}
