package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
	"github.com/AlviRownok/NAPOLI-GIS/internal/store"
)

const key = "napoli_polygon_data.csv"

// countingBackend wraps the memory backend and counts puts.
type countingBackend struct {
	*store.MemoryBackend
	mu   sync.Mutex
	puts int
}

func (c *countingBackend) Put(ctx context.Context, k string, body []byte) error {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	return c.MemoryBackend.Put(ctx, k, body)
}

// failingBackend returns err from every call.
type failingBackend struct{ err error }

func (f failingBackend) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingBackend) Put(context.Context, string, []byte) error   { return f.err }

func record(given string, color string) polygons.Record {
	ring := polygons.Ring{{Lon: 14.25, Lat: 40.85}, {Lon: 14.26, Lat: 40.85}, {Lon: 14.255, Lat: 40.86}}
	return polygons.Record{
		Identity:     polygons.Identity{GivenName: given, FamilyName: "Rossi", CompanyName: "RossiSrl"},
		AreaName:     "Unknown",
		AreaSqMeters: polygons.AreaSqMeters(ring),
		Color:        color,
		Ring:         ring,
	}
}

func TestLoadAll_CreatesMissingTable(t *testing.T) {
	ctx := context.Background()
	b := &countingBackend{MemoryBackend: store.NewMemoryBackend()}
	s := store.New(b, key, logger.Nop())

	records, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Equal(t, 1, b.puts)

	body, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, polygons.EmptyTable(), body)
}

func TestLoadAll_IdempotentOnEmptyTable(t *testing.T) {
	ctx := context.Background()
	b := &countingBackend{MemoryBackend: store.NewMemoryBackend()}
	s := store.New(b, key, logger.Nop())

	_, err := s.LoadAll(ctx)
	require.NoError(t, err)
	before, _ := b.Get(ctx, key)

	for i := 0; i < 3; i++ {
		records, err := s.LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	}
	after, _ := b.Get(ctx, key)

	assert.Equal(t, 1, b.puts, "only the first load may write")
	assert.Equal(t, before, after)
}

func TestAppendAndSave_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := store.New(store.NewMemoryBackend(), key, logger.Nop())

	first := record("Mario", "#FF0000")
	second := record("Luigi", "#0000FF")
	require.NoError(t, s.AppendAndSave(ctx, first))
	require.NoError(t, s.AppendAndSave(ctx, second))

	records, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.Ring, records[0].Ring)
	assert.Equal(t, first.AreaSize(), records[0].AreaSize())
	assert.Equal(t, "Luigi", records[1].Identity.GivenName)
}

func TestResetAll_ThenLoadAllIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := store.New(store.NewMemoryBackend(), key, logger.Nop())
	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendAndSave(ctx, record(fmt.Sprintf("user%d", i), "#FF0000")))
	}

	require.NoError(t, s.ResetAll(ctx))

	records, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExport_IsVerbatim(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryBackend()
	raw := []byte("\ufeffNome,Cognome,Nome Impresa,Area Name,Area Size,Streets,Places,Color,Coordinates\n")
	require.NoError(t, b.Put(ctx, key, raw))

	got, err := store.New(b, key, logger.Nop()).Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	for _, want := range []error{store.ErrCredentials, store.ErrTransient} {
		s := store.New(failingBackend{err: fmt.Errorf("%w: boom", want)}, key, logger.Nop())

		_, err := s.LoadAll(ctx)
		assert.ErrorIs(t, err, want)
		assert.ErrorIs(t, s.AppendAndSave(ctx, record("Mario", "#FF0000")), want)
		assert.ErrorIs(t, s.ResetAll(ctx), want)
	}
}

func TestLoadAll_CorruptTable(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryBackend()
	require.NoError(t, b.Put(ctx, key, []byte("just,some\nrandom,csv\n")))

	_, err := store.New(b, key, logger.Nop()).LoadAll(ctx)
	assert.True(t, errors.Is(err, store.ErrCorrupt))
}

// racingBackend parks the first writer's put until a second writer has
// loaded and saved, reproducing two sessions interleaving load and save.
type racingBackend struct {
	*store.MemoryBackend
	once      sync.Once
	firstPut  chan struct{}
	secondPut chan struct{}
}

func (r *racingBackend) Put(ctx context.Context, k string, body []byte) error {
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.firstPut)
		<-r.secondPut
	}
	return r.MemoryBackend.Put(ctx, k, body)
}

func TestAppendAndSave_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryBackend()
	require.NoError(t, mem.Put(ctx, key, polygons.EmptyTable()))

	b := &racingBackend{MemoryBackend: mem, firstPut: make(chan struct{}), secondPut: make(chan struct{})}
	s := store.New(b, key, logger.Nop())

	done := make(chan error)
	go func() { done <- s.AppendAndSave(ctx, record("Slow", "#FF0000")) }()

	<-b.firstPut // slow writer has loaded the empty table and is about to put
	require.NoError(t, s.AppendAndSave(ctx, record("Fast", "#0000FF")))
	close(b.secondPut)
	require.NoError(t, <-done)

	records, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1, "one append is lost")
	assert.Equal(t, "Slow", records[0].Identity.GivenName)
}
