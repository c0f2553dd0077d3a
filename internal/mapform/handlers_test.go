package mapform_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/enrich"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/mapform"
	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
	"github.com/AlviRownok/NAPOLI-GIS/internal/session"
	"github.com/AlviRownok/NAPOLI-GIS/internal/store"
	"github.com/AlviRownok/NAPOLI-GIS/internal/workflow"
)

type stubGateway struct{}

func (stubGateway) FindFeatures(context.Context, polygons.Ring) (enrich.Features, error) {
	return enrich.Features{Streets: []string{"Via Chiaia"}, Places: []string{"Teatro San Carlo"}}, nil
}

func (stubGateway) ReverseGeocode(context.Context, polygons.Point) (string, error) {
	return "San Ferdinando", nil
}

// brokenBackend reads fine but never accepts a write.
type brokenBackend struct{ *store.MemoryBackend }

func (brokenBackend) Put(context.Context, string, []byte) error { return store.ErrTransient }

const ringJSON = `[[14.25,40.85],[14.26,40.85],[14.26,40.86],[14.25,40.86]]`

type harness struct {
	srv    *httptest.Server
	client *http.Client
	store  *store.Store
}

func newHarness(t *testing.T, backend store.Backend, opts mapform.Options) *harness {
	t.Helper()
	log := logger.Nop()
	st := store.New(backend, config.DefaultObjectKey, log)
	wf := workflow.New(st, stubGateway{}, log)
	h := mapform.New(wf, session.NewMemoryStore(time.Hour), st, opts, log)

	r := chi.NewRouter()
	r.Mount("/map", h.SetupRoutes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{srv: srv, client: &http.Client{Jar: jar}, store: st}
}

func (h *harness) postForm(t *testing.T, path string, form url.Values) (int, string) {
	t.Helper()
	resp, err := h.client.PostForm(h.srv.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// postJSON sends body (if any) and decodes the JSON view returned.
func (h *harness) postJSON(t *testing.T, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func identityForm() url.Values {
	return url.Values{"nome": {"Mario"}, "cognome": {"Rossi"}, "nome_impresa": {"Pizzeria Rossi"}}
}

func TestBrowserFlow(t *testing.T) {
	h := newHarness(t, store.NewMemoryBackend(), mapform.Options{Map: config.Default().Map})

	code, page := h.postForm(t, "/map/identity", identityForm())
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, page, "Draw the area for Mario Rossi - Pizzeria Rossi")
	assert.Contains(t, page, "L.Control.Draw")
	assert.Contains(t, page, "40.8518")

	code, page = h.postForm(t, "/map/confirm", url.Values{"ring": {ringJSON}})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, page, "Polygon data saved successfully.")
	assert.Contains(t, page, "San Ferdinando")
	assert.Contains(t, page, "Teatro San Carlo")

	// Notices are shown once.
	_, page = h.get(t, "/map/")
	assert.NotContains(t, page, "Polygon data saved successfully.")

	resp, csv := h.get(t, "/map/records.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "napoli_polygon_data.csv")
	records, err := polygons.DecodeTable([]byte(csv))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "#FF0000", records[0].Color)
	assert.Equal(t, []string{"Via Chiaia"}, records[0].Streets)
}

func TestDownloadRecords_Empty(t *testing.T) {
	h := newHarness(t, store.NewMemoryBackend(), mapform.Options{})

	resp, body := h.get(t, "/map/records.csv")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "No data available.")
}

func TestJSONFlow(t *testing.T) {
	h := newHarness(t, store.NewMemoryBackend(), mapform.Options{})

	code, _ := h.postJSON(t, "/map/confirm", "")
	assert.Equal(t, http.StatusConflict, code)

	code, view := h.postJSON(t, "/map/identity", `{"nome":"Mario","cognome":"","nome_impresa":"Pizzeria Rossi"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "awaiting_identity", view["phase"])
	assert.NotEmpty(t, view["notices"])

	code, view = h.postJSON(t, "/map/identity", `{"nome":"Mario","cognome":"Rossi","nome_impresa":"Pizzeria Rossi"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "awaiting_polygon", view["phase"])
	assert.Equal(t, "#FF0000", view["color"])

	feature := `{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[` + ringJSON + `]}}`
	code, view = h.postJSON(t, "/map/polygon", feature)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, view["ring"], 4)

	code, view = h.postJSON(t, "/map/confirm", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "awaiting_identity", view["phase"])
	saved, ok := view["last_saved"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "San Ferdinando", saved["area_name"])
	assert.Equal(t, "Mario Rossi - Pizzeria Rossi", saved["label"])
}

func TestJSONFlow_BadGeometry(t *testing.T) {
	h := newHarness(t, store.NewMemoryBackend(), mapform.Options{})
	code, _ := h.postJSON(t, "/map/identity", `{"nome":"Mario","cognome":"Rossi","nome_impresa":"Pizzeria Rossi"}`)
	require.Equal(t, http.StatusOK, code)

	code, _ = h.postJSON(t, "/map/polygon", `{"type":"Point","coordinates":[14.25,40.85]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.postJSON(t, "/map/confirm", `{"type":"Polygon","coordinates":[[[14.25,40.85],[14.26,40.85]]]}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStoreFailureThenRetry(t *testing.T) {
	mem := store.NewMemoryBackend()
	h := newHarness(t, brokenBackend{mem}, mapform.Options{})

	code, _ := h.postJSON(t, "/map/identity", `{"nome":"Mario","cognome":"Rossi","nome_impresa":"Pizzeria Rossi"}`)
	require.Equal(t, http.StatusOK, code)

	code, view := h.postJSON(t, "/map/confirm", `{"type":"Polygon","coordinates":[`+ringJSON+`]}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "persisting", view["phase"])
	assert.NotNil(t, view["pending"])

	code, _ = h.postJSON(t, "/map/retry", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestGetState(t *testing.T) {
	h := newHarness(t, store.NewMemoryBackend(), mapform.Options{})

	resp, body := h.get(t, "/map/state")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	assert.Equal(t, "awaiting_identity", view["phase"])
	assert.Equal(t, []any{}, view["records"])
}

func TestDevReset(t *testing.T) {
	t.Run("hidden outside dev mode", func(t *testing.T) {
		h := newHarness(t, store.NewMemoryBackend(), mapform.Options{})
		code, _ := h.postForm(t, "/map/dev/reset", nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("refused without a configured token", func(t *testing.T) {
		h := newHarness(t, store.NewMemoryBackend(), mapform.Options{DevMode: true})
		h.postForm(t, "/map/identity", identityForm())
		h.postForm(t, "/map/confirm", url.Values{"ring": {ringJSON}})

		code, _ := h.postForm(t, "/map/dev/reset", url.Values{"token": {"s3cret"}})
		assert.Equal(t, http.StatusForbidden, code)

		records, err := h.store.LoadAll(context.Background())
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("clears records in dev mode", func(t *testing.T) {
		h := newHarness(t, store.NewMemoryBackend(), mapform.Options{DevMode: true, DevResetTokenHash: string(hash)})
		h.postForm(t, "/map/identity", identityForm())
		h.postForm(t, "/map/confirm", url.Values{"ring": {ringJSON}})

		records, err := h.store.LoadAll(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 1)

		code, page := h.postForm(t, "/map/dev/reset", url.Values{"token": {"s3cret"}})
		require.Equal(t, http.StatusOK, code)
		assert.Contains(t, page, "All entries have been reset.")

		records, err = h.store.LoadAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestServerTiming(t *testing.T) {
	h := newHarness(t, store.NewMemoryBackend(), mapform.Options{})

	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/map/back", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Server-Timing"), "workflow;dur=")
}
