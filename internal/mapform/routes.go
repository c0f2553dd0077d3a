package mapform

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AlviRownok/NAPOLI-GIS/internal/middleware"
)

func (h *Handler) SetupRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.SessionMiddleware(h.opts.SessionTTL, h.opts.SecureCookies))

	r.Get("/", h.ShowMap)
	r.Get("/state", h.GetState)
	r.Get("/records.csv", h.DownloadRecords)

	r.Post("/identity", h.SubmitIdentity)
	r.Post("/polygon", h.DrawPolygon)
	r.Post("/confirm", h.Confirm)
	r.Post("/retry", h.RetrySave)
	r.Post("/back", h.Back)

	// Developer routes - hidden unless dev mode is on
	r.Group(func(r chi.Router) {
		r.Use(middleware.DevMiddleware(h.opts.DevMode, h.opts.DevResetTokenHash))
		r.Post("/dev/reset", h.ResetAll)
	})

	return r
}
