package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
	"github.com/AlviRownok/NAPOLI-GIS/internal/session"
	"github.com/AlviRownok/NAPOLI-GIS/internal/workflow"
)

func sampleState() workflow.State {
	st := workflow.NewState()
	st.Phase = workflow.AwaitingPolygon
	st.Identity = polygons.Identity{GivenName: "Mario", FamilyName: "Rossi", CompanyName: "Pizzeria Rossi"}
	st.Color = st.Colors.Resolve(st.Identity.Key(), nil)
	st.Ring = polygons.Ring{{Lon: 14.25, Lat: 40.85}, {Lon: 14.26, Lat: 40.85}, {Lon: 14.255, Lat: 40.86}}
	st.Submissions = 1
	return st
}

func exerciseStore(t *testing.T, s session.Store) {
	t.Helper()
	ctx := context.Background()
	id := session.NewID()

	st, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, workflow.AwaitingIdentity, st.Phase)

	want := sampleState()
	require.NoError(t, s.Save(ctx, id, want))
	got, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Mutating the loaded copy must not reach the store.
	got.Colors.ByIdentity["someone"] = "#000000"
	again, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.NotContains(t, again.Colors.ByIdentity, "someone")

	require.NoError(t, s.Delete(ctx, id))
	st, err = s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, workflow.NewState(), st)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, session.NewMemoryStore(time.Hour))
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := session.NewMemoryStore(time.Hour)
	s.SetClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "a", sampleState()))
	assert.Equal(t, 1, s.Len())

	now = now.Add(59 * time.Minute)
	st, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, workflow.AwaitingPolygon, st.Phase)

	now = now.Add(2 * time.Minute)
	st, err = s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, workflow.AwaitingIdentity, st.Phase)
	assert.Zero(t, s.Len())
}

func TestNewID(t *testing.T) {
	a, b := session.NewID(), session.NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestOpen(t *testing.T) {
	s, err := session.Open(context.Background(), config.Session{Store: config.SessionMemory}, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStore{}, s)

	_, err = session.Open(context.Background(), config.Session{Store: "etcd"}, logger.Nop())
	assert.ErrorIs(t, err, config.ErrUnknownSession)

	_, err = session.Open(context.Background(), config.Session{Store: config.SessionRedis, RedisURL: "not a url"}, logger.Nop())
	assert.Error(t, err)
}

// TestRedisStore runs against a real server when TEST_REDIS_URL is set.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	s, err := session.NewRedisStore(context.Background(), url, time.Minute, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}
