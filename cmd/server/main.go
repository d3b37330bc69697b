package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tiagofoks/photo-app-challenge/internal/photo"
	"github.com/tiagofoks/photo-app-challenge/internal/platform/config"
	"github.com/tiagofoks/photo-app-challenge/internal/platform/logger"
	"github.com/tiagofoks/photo-app-challenge/internal/platform/metrics"
)

func main() {
	_ = config.Load()
	cfg := config.LoadServer()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	store, closeStore, err := openStore(context.Background(), cfg, log)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	up, err := photo.NewCloudinaryUploader(cfg.CloudinaryURL)
	if err != nil {
		log.Error("cloudinary init failed", "error", err)
		closeStore()
		os.Exit(1)
	}

	repo := photo.NewStoreRepository(store, cfg.PhotosCollection)
	svc := photo.NewService(up, repo, photo.UploadOptions{
		Folder:       cfg.CloudinaryFolder,
		UploadPreset: cfg.CloudinaryUploadPreset,
	})
	met := metrics.New()
	h := photo.NewHandler(svc, log, met)

	r := newRouter(cfg, h, met, log)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"store_driver", cfg.StoreDriver,
		"collection", cfg.PhotosCollection,
		"cors_origin", cfg.CORSOrigin,
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		closeStore()
		os.Exit(1)
	}

	log.Info("server stopped")
}

// newRouter wires the middleware chain and the photo routes. CORS admits only
// cfg.CORSOrigin, GET/POST and the Content-Type header.
func newRouter(cfg config.Server, h *photo.Handler, met *metrics.Metrics, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met, "/metrics"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.CORSOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(middleware.RequestSize(cfg.MaxBodyBytes))

	r.Get("/", h.Liveness)
	r.Method(http.MethodGet, "/metrics", met.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Get("/photos", h.ListPhotos)
	})
	return r
}

// openStore builds the document store selected by STORE_DRIVER. The returned
// func releases it.
func openStore(ctx context.Context, cfg config.Server, log *slog.Logger) (photo.Store, func(), error) {
	switch cfg.StoreDriver {
	case "firestore":
		fs, err := photo.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirebaseCredentials)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() { fs.Close() }, nil
	case "sqlite":
		db, err := photo.OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	case "memory":
		log.Warn("using in-memory store, photos are lost on restart")
		return photo.NewInMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
