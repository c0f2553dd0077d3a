// Package mapform serves the polygon entry form and map.
package mapform

import (
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/session"
	"github.com/AlviRownok/NAPOLI-GIS/internal/workflow"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/map.html"))

// Exporter returns the stored table exactly as persisted.
type Exporter interface {
	Export(ctx context.Context) ([]byte, error)
}

type Options struct {
	Map config.Map
	// BasePath is where the router is mounted, with a trailing slash.
	BasePath          string
	DevMode           bool
	DevResetTokenHash string
	SessionTTL        time.Duration
	SecureCookies     bool
}

type Handler struct {
	wf       *workflow.Workflow
	sessions session.Store
	exporter Exporter
	opts     Options
	log      *logger.Logger
}

func New(wf *workflow.Workflow, sessions session.Store, exporter Exporter, opts Options, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	if opts.BasePath == "" {
		opts.BasePath = "/map/"
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	return &Handler{
		wf:       wf,
		sessions: sessions,
		exporter: exporter,
		opts:     opts,
		log:      log.With("module", "mapform"),
	}
}
