// Package session keeps each browser's workflow state between requests.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/workflow"
)

const DefaultTTL = 24 * time.Hour

// Store holds one workflow.State per session ID. Load of an unknown or
// expired ID returns a fresh state, not an error.
type Store interface {
	Load(ctx context.Context, id string) (workflow.State, error)
	Save(ctx context.Context, id string, st workflow.State) error
	Delete(ctx context.Context, id string) error
}

// NewID returns a random session ID.
func NewID() string {
	return uuid.NewString()
}

// Open builds the store named by cfg.
func Open(ctx context.Context, cfg config.Session, log *logger.Logger) (Store, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	switch cfg.Store {
	case config.SessionMemory, "":
		return NewMemoryStore(ttl), nil
	case config.SessionRedis:
		return NewRedisStore(ctx, cfg.RedisURL, ttl, log)
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownSession, cfg.Store)
	}
}

func encode(st workflow.State) ([]byte, error) {
	b, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return b, nil
}

func decode(b []byte) (workflow.State, error) {
	var st workflow.State
	if err := json.Unmarshal(b, &st); err != nil {
		return workflow.NewState(), fmt.Errorf("decoding session: %w", err)
	}
	return st, nil
}
