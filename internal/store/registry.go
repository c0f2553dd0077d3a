package store

import (
	"context"
	"fmt"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
)

var ErrUnknownBackend = config.ErrUnknownBackend

// Constructor builds a Backend from configuration.
type Constructor func(ctx context.Context, cfg config.Store, log *logger.Logger) (Backend, error)

// backendRegistry lets backend packages register themselves from init(),
// so main only needs a blank import to make one available.
var backendRegistry = make(map[config.BackendType]Constructor)

func RegisterBackend(t config.BackendType, c Constructor) {
	backendRegistry[t] = c
}

// NewBackend builds the configured backend.
func NewBackend(ctx context.Context, cfg config.Store, log *logger.Logger) (Backend, error) {
	c, ok := backendRegistry[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
	return c(ctx, cfg, log)
}

func init() {
	RegisterBackend(config.BackendMemory, func(context.Context, config.Store, *logger.Logger) (Backend, error) {
		return NewMemoryBackend(), nil
	})
}

// Open builds the configured backend and wraps it in a Store keyed by
// cfg.ObjectKey.
func Open(ctx context.Context, cfg config.Store, log *logger.Logger) (*Store, error) {
	b, err := NewBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return New(b, cfg.ObjectKey, log), nil
}
