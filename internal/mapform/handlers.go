package mapform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
	"github.com/AlviRownok/NAPOLI-GIS/internal/store"
	"github.com/AlviRownok/NAPOLI-GIS/internal/utils"
	"github.com/AlviRownok/NAPOLI-GIS/internal/workflow"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func isJSONBody(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

func sessionID(r *http.Request) string {
	id, _ := utils.GetSessionIDFromContext(r.Context())
	return id
}

// statusFor maps a workflow error to the response code for JSON clients.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case workflow.IsValidation(err), errors.Is(err, ErrBadGeometry):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrUnexpectedEvent):
		return http.StatusConflict
	case errors.Is(err, store.ErrCredentials),
		errors.Is(err, store.ErrTransient),
		errors.Is(err, store.ErrCorrupt):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GET /
func (h *Handler) ShowMap(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	data := pageData{
		View:    v,
		Map:     h.opts.Map,
		Base:    h.opts.BasePath,
		DevMode: h.opts.DevMode,
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		h.log.Error("page_render_failed", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// GET /state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// POST /identity
func (h *Handler) SubmitIdentity(w http.ResponseWriter, r *http.Request) {
	id, err := identityFromRequest(r)
	if err != nil {
		h.reject(w, r, err)
		return
	}
	h.apply(w, r, workflow.SubmitIdentity{Identity: id})
}

// POST /polygon
func (h *Handler) DrawPolygon(w http.ResponseWriter, r *http.Request) {
	ring, _, err := ringFromRequest(r)
	if err != nil {
		h.reject(w, r, err)
		return
	}
	h.apply(w, r, workflow.DrawPolygon{Ring: ring})
}

// POST /confirm. A drawing sent along is applied first.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	ring, ok, err := ringFromRequest(r)
	if err != nil {
		h.reject(w, r, err)
		return
	}
	if ok {
		h.apply(w, r, workflow.DrawPolygon{Ring: ring}, workflow.Confirm{})
		return
	}
	h.apply(w, r, workflow.Confirm{})
}

// POST /retry
func (h *Handler) RetrySave(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, workflow.RetrySave{})
}

// POST /back
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, workflow.Back{})
}

// POST /dev/reset
func (h *Handler) ResetAll(w http.ResponseWriter, r *http.Request) {
	h.log.Warn("dev_reset_requested", "session", sessionID(r), "ip", r.RemoteAddr)
	h.apply(w, r, workflow.ResetAll{})
}

// GET /records.csv
func (h *Handler) DownloadRecords(w http.ResponseWriter, r *http.Request) {
	data, err := h.exporter.Export(r.Context())
	if err != nil {
		h.log.Error("export_failed", "error", err)
		http.Error(w, "Stored data is unavailable", statusFor(err))
		return
	}
	records, err := polygons.DecodeTable(data)
	if err != nil {
		h.log.Error("export_failed", "error", err)
		http.Error(w, "Stored data is unreadable", http.StatusServiceUnavailable)
		return
	}
	if len(records) == 0 {
		http.Error(w, "No data available.", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="napoli_polygon_data.csv"`)
	_, _ = w.Write(data)
}

// view loads the session, prepares it for display and saves the result.
func (h *Handler) view(w http.ResponseWriter, r *http.Request) (viewOut, bool) {
	ctx := r.Context()
	id := sessionID(r)
	st, err := h.sessions.Load(ctx, id)
	if err != nil {
		h.sessionError(w, err)
		return viewOut{}, false
	}
	st, v := h.wf.View(ctx, st)
	if err := h.sessions.Save(ctx, id, st); err != nil {
		h.sessionError(w, err)
		return viewOut{}, false
	}
	return toViewOut(v), true
}

// apply runs events in order, stopping at the first error, and saves the
// session. Browsers are redirected back to the page; JSON clients get the
// resulting view.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request, events ...workflow.Event) {
	ctx := r.Context()
	id := sessionID(r)
	st, err := h.sessions.Load(ctx, id)
	if err != nil {
		h.sessionError(w, err)
		return
	}

	var evErr error
	started := time.Now()
	for _, ev := range events {
		st, evErr = h.wf.Handle(ctx, st, ev)
		if evErr != nil {
			h.log.Debug("event_rejected", "event", ev.Name(), "session", id, "error", evErr)
			break
		}
	}
	addServerTiming(w, timing{name: "workflow", d: time.Since(started)})

	if !wantsJSON(r) {
		if err := h.sessions.Save(ctx, id, st); err != nil {
			h.sessionError(w, err)
			return
		}
		http.Redirect(w, r, h.opts.BasePath, http.StatusSeeOther)
		return
	}

	st, v := h.wf.View(ctx, st)
	if err := h.sessions.Save(ctx, id, st); err != nil {
		h.sessionError(w, err)
		return
	}
	writeJSON(w, statusFor(evErr), toViewOut(v))
}

// reject answers a request whose body could not be understood.
func (h *Handler) reject(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		status = http.StatusBadRequest
	}
	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	http.Error(w, err.Error(), status)
}

func (h *Handler) sessionError(w http.ResponseWriter, err error) {
	h.log.Error("session_store_failed", "error", err)
	http.Error(w, "Session store unavailable", http.StatusServiceUnavailable)
}

func identityFromRequest(r *http.Request) (polygons.Identity, error) {
	var id polygons.Identity
	if isJSONBody(r) {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&id); err != nil {
			return id, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return id, nil
	}
	if err := r.ParseForm(); err != nil {
		return id, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	id.GivenName = r.PostForm.Get("nome")
	id.FamilyName = r.PostForm.Get("cognome")
	id.CompanyName = r.PostForm.Get("nome_impresa")
	return id, nil
}

var errBadRequest = errors.New("malformed request")
