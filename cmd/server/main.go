package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/transit-display/octranspo/internal/api"
	"github.com/transit-display/octranspo/internal/colours"
	"github.com/transit-display/octranspo/internal/config"
	"github.com/transit-display/octranspo/internal/db"
	"github.com/transit-display/octranspo/internal/display"
	"github.com/transit-display/octranspo/internal/gtfs"
	"github.com/transit-display/octranspo/internal/icon"
	"github.com/transit-display/octranspo/internal/live"
	"github.com/transit-display/octranspo/internal/search"
	"github.com/transit-display/octranspo/internal/worker"
)

func main() {
	log.Println("Starting transit core service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}
	log.Println("Database initialized")

	// Route colours: warm the cache from the previous snapshot so badges are
	// correct before the first ingest completes.
	colourCache := colours.New()
	if rows, err := store.AllRouteColours(ctx); err != nil {
		log.Printf("Warning: failed to warm colour cache: %v", err)
	} else {
		pairs := make(map[string]colours.Pair, len(rows))
		for _, rc := range rows {
			pairs[rc.ShortName] = colours.Pair{Background: rc.Colour, Text: rc.TextColour}
		}
		colourCache.ReplaceAll(pairs)
		log.Printf("Colour cache warmed with %d routes", colourCache.Len())
	}

	pool := worker.New(0)

	// GTFS ingest loop: run at startup, then daily at local midnight
	ingestor := gtfs.NewIngestor(store, colourCache, pool, cfg.GTFSArchiveURL)
	ingestor.Schedule(ctx, gtfs.DefaultTables())

	// Live trips
	liveClient := live.NewClient(cfg.LiveTripsURL, &live.StaticCredentials{
		AppID:  cfg.AppID,
		APIKey: cfg.APIKey,
	})

	// Services
	searchSvc := search.New(store, liveClient, cfg.SearchLimit, cfg.AutocompleteLimit)
	registry := display.NewRegistry(cfg.MaxDisplays, cfg.DisplayTTL)
	renderer, err := icon.NewRenderer(colourCache)
	if err != nil {
		log.Fatalf("Failed to initialize icon renderer: %v", err)
	}

	displayOpts := display.Options{
		ChunkSize:     cfg.SelectChunkSize,
		BoardPageSize: cfg.BoardPageSize,
	}

	router := api.NewRouter(api.Handlers{
		Health:  api.NewHealthHandler(store),
		Search:  api.NewSearchHandler(searchSvc),
		Display: api.NewDisplayHandler(api.NewStoreResolver(store), liveClient, registry, displayOpts),
		Icon:    api.NewIconHandler(renderer, pool),
	}, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("API server starting on :%s", cfg.Port)
		log.Println("Endpoints:")
		log.Println("  GET  /health")
		log.Println("  GET  /api/stops/search?q=")
		log.Println("  GET  /api/stops/autocomplete?q=")
		log.Println("  POST /api/stops/{code}/display")
		log.Println("  POST /api/display/{id}/action")
		log.Println("  GET  /api/routes/{routeNo}/icon.png")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Goodbye!")
}
