package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashwinpo/email-review-workshop/internal/auth"
	"github.com/ashwinpo/email-review-workshop/internal/cache"
	"github.com/ashwinpo/email-review-workshop/internal/classify"
	"github.com/ashwinpo/email-review-workshop/internal/config"
	"github.com/ashwinpo/email-review-workshop/internal/db"
	"github.com/ashwinpo/email-review-workshop/internal/export"
	"github.com/ashwinpo/email-review-workshop/internal/extraction"
	"github.com/ashwinpo/email-review-workshop/internal/followup"
	"github.com/ashwinpo/email-review-workshop/internal/ingestion"
	"github.com/ashwinpo/email-review-workshop/internal/middleware"
	"github.com/ashwinpo/email-review-workshop/internal/repository"
	"github.com/ashwinpo/email-review-workshop/internal/review"

	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	queueRepo := repository.NewQueueRepository(conn)
	actionRepo := repository.NewActionRepository(conn)
	approvedRepo := repository.NewApprovedRepository(conn)
	outgoingRepo := repository.NewOutgoingRepository(conn)
	contactRepo := repository.NewContactRepository(conn)

	reviewOpts := []review.Option{review.WithQueueLimit(cfg.QueueLimit)}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, running without read cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			reviewOpts = append(reviewOpts, review.WithCache(cache.New(rdb, cfg.CacheTTL)))
		}
	}

	extractor := extraction.NewClient(extraction.Config{
		URL:          cfg.ExtractionURL,
		Token:        cfg.ExtractionToken,
		ClientID:     cfg.ExtractionClientID,
		ClientSecret: cfg.ExtractionClientSecret,
		TokenURL:     cfg.ExtractionTokenURL,
		Timeout:      cfg.ExtractionTimeout,
	})

	reviewService := review.NewService(
		queueRepo,
		actionRepo,
		approvedRepo,
		outgoingRepo,
		classify.New(contactRepo),
		followup.New(cfg.FallbackAddress),
		reviewOpts...,
	)
	ingestionService := ingestion.NewService(queueRepo, extractor)
	exportService := export.NewService(actionRepo, approvedRepo, outgoingRepo)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})
	wrap := func(h http.Handler) http.Handler {
		return corsHandler.Handler(middleware.Logging(auth.Middleware(cfg.DefaultActor)(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("/api/ingest", wrap(ingestion.NewHTTPHandler(ingestionService)))
	mux.Handle("/api/export/", wrap(export.NewHTTPHandler(exportService)))
	mux.Handle("/api/", wrap(review.NewHTTPHandler(reviewService)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.Pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("starting review server", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server exited")
}
