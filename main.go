package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/enrich"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/mapform"
	"github.com/AlviRownok/NAPOLI-GIS/internal/metrics"
	"github.com/AlviRownok/NAPOLI-GIS/internal/middleware"
	"github.com/AlviRownok/NAPOLI-GIS/internal/session"
	"github.com/AlviRownok/NAPOLI-GIS/internal/store"
	"github.com/AlviRownok/NAPOLI-GIS/internal/workflow"

	// Import backends to register them via init()
	_ "github.com/AlviRownok/NAPOLI-GIS/internal/store/gcs"
	_ "github.com/AlviRownok/NAPOLI-GIS/internal/store/sqlstore"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	path := os.Getenv("NAPOLI_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("config_invalid", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		log.Fatal("store_open_failed", "backend", cfg.Store.Backend, "error", err)
	}
	sessions, err := session.Open(ctx, cfg.Session, log)
	if err != nil {
		log.Fatal("session_open_failed", "store", cfg.Session.Store, "error", err)
	}

	wf := workflow.New(records, enrich.NewClient(cfg.Gateway, log), log)
	form := mapform.New(wf, sessions, records, mapform.Options{
		Map:               cfg.Map,
		BasePath:          "/map/",
		DevMode:           cfg.DevMode,
		DevResetTokenHash: cfg.DevResetTokenHash,
		SessionTTL:        cfg.Session.TTL,
		SecureCookies:     cfg.Session.SecureCookie,
	}, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logger.AccessMiddleware(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Get("/", RootHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/map", form.SetupRoutes())

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("server_listening", "port", cfg.Port, "backend", cfg.Store.Backend, "session", cfg.Session.Store, "dev_mode", cfg.DevMode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server_failed", "error", err)
	}
}
