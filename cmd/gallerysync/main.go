package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/photosync/gallerysync/internal/config"
	"github.com/photosync/gallerysync/internal/handlers"
	"github.com/photosync/gallerysync/internal/observability"
	"github.com/photosync/gallerysync/internal/remote"
	"github.com/photosync/gallerysync/internal/services"
)

const version = "1.0.0"

func main() {
	serve := flag.Bool("serve", false, "serve the synced gallery for local preview instead of syncing")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	telemetry, err := observability.Initialize(ctx, observability.NewConfig("gallerysync", version))
	if err != nil {
		log.Printf("Warning: Failed to initialize telemetry: %v", err)
	}

	if *serve {
		runPreview(cfg)
		return
	}

	if err := runSync(ctx, cfg); err != nil {
		if telemetry != nil {
			telemetry.Shutdown(ctx)
		}
		log.Fatalf("Sync failed: %v", err)
	}

	if telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: telemetry shutdown: %v", err)
		}
	}
}

// runSync performs one reconciliation pass against the remote store.
func runSync(ctx context.Context, cfg *config.Config) error {
	client := remote.NewClient(cfg.API.BaseURL, cfg.API.Token, cfg.API.RecordType, cfg.API.PageSize)
	exifService := services.NewEXIFService()
	materializer := services.NewMaterializerService(cfg.Gallery.BasePath, exifService)
	manifest := services.NewManifestService(cfg.ManifestPath())

	reconciler := services.NewReconcilerService(
		client,
		materializer,
		exifService,
		manifest,
		cfg.Gallery.ThumbnailQuality,
		cfg.Gallery.ThumbnailMaxDim,
		cfg.Gallery.ImageQuality,
	)

	log.Printf("Syncing gallery at %s", cfg.Gallery.BasePath)

	result, err := reconciler.Sync(ctx)
	if err != nil {
		return err
	}

	log.Printf("Sync complete: %d added, %d removed, %d kept, %d failed",
		result.Added, result.Removed, result.Kept, result.Failed)
	return nil
}

// runPreview serves the synced gallery over HTTP until interrupted.
func runPreview(cfg *config.Config) {
	galleryHandler := handlers.NewGalleryHandler(cfg.Gallery.BasePath, cfg.ManifestPath())

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", galleryHandler.HealthCheck)
	r.Get("/manifest.json", galleryHandler.Manifest)
	r.Get("/photos/*", galleryHandler.Photo)

	srv := &http.Server{
		Addr:         cfg.Preview.Address,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Gallery preview serving %s on %s", cfg.Gallery.BasePath, cfg.Preview.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down preview server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
}
