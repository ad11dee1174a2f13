package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ms-csevents/internal/app"
	"ms-csevents/internal/config"
	"ms-csevents/internal/csevents/csevents_api"
	"ms-csevents/internal/logger"
	"ms-csevents/internal/scheduler"
	"ms-csevents/internal/utils"
)

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", ww.Status()), time.Since(start).String())
		})
	}
}

func newRouter(cfg *config.Config, a *app.App, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", csevents_api.APIKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	handler := csevents_api.NewHandler(a.Store, a.Pipeline, cfg.Security.ScrapeAPIKey, log)
	r.Route("/api/cs-events", handler.RegisterRoutes)

	return r
}

func startScheduler(cfg *config.Config, a *app.App, log *logger.Logger) *scheduler.Scheduler {
	if !cfg.Scheduler.Enabled {
		log.Info("SCHEDULER", "Scheduler disabled, scrapes run only on demand")
		return nil
	}

	loc := time.Local
	if cfg.Scheduler.Timezone != "" {
		l, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			log.Fatal("SCHEDULER", fmt.Sprintf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err))
		}
		loc = l
	}

	s, err := scheduler.New(a.Pipeline, scheduler.Options{Spec: cfg.Scheduler.Spec, Location: loc}, log)
	if err != nil {
		log.Fatal("SCHEDULER", fmt.Sprintf("Failed to create scheduler: %v", err))
	}
	if err := s.Start(); err != nil {
		log.Fatal("SCHEDULER", fmt.Sprintf("Failed to start scheduler: %v", err))
	}
	return s
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, ".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{
		Service:  "cs-events",
		Dir:      cfg.Log.Dir,
		MinLevel: logger.ParseLevel(cfg.Log.Level),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", "Starting CS events service initialization")

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Startup failed: %v", err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("APP", fmt.Sprintf("Error closing connections: %v", err))
		}
	}()

	sched := startScheduler(cfg, a, log)

	log.Info("HTTP", "Setting up router and middleware")
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      newRouter(cfg, a, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("CS events service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("Server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")

	if sched != nil {
		ctxSched, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := sched.Stop(ctxSched); err != nil {
			log.Warn("SCHEDULER", fmt.Sprintf("Scheduler stop: %v", err))
		}
		cancel()
	}

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Server exited properly")
	}
}
