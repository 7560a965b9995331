package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats"
	"github.com/YuTeChang/VibeBadminton-sub000/config"
	"github.com/YuTeChang/VibeBadminton-sub000/db/bundb"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/eventbus"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/livefeed"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	obs := observability.New(config.ToObsConfig(cfg))
	logger := obs.Logger
	logger.Info("Starting stats service")

	db, err := bundb.NewBunDBService(ctx, cfg.Postgres, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	bus, err := eventbus.NewEventBus(ctx, eventbus.Config{
		URL:           cfg.NATS.URL,
		StreamName:    cfg.NATS.StreamName,
		DurablePrefix: cfg.NATS.DurablePrefix,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create event bus: %v", err)
	}
	defer bus.Close()

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, watermill.NewSlogLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create message router: %v", err)
	}

	module, err := stats.NewStatsModule(ctx, cfg, obs, db.GetDB(), db.StatsDB, bus, router)
	if err != nil {
		log.Fatalf("Failed to create stats module: %v", err)
	}

	hub := livefeed.NewHub(logger)
	go hub.Run(ctx)
	if err := hub.Forward(ctx, bus); err != nil {
		log.Fatalf("Failed to start live feed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go module.Run(ctx, &wg)

	go func() {
		if err := router.Run(ctx); err != nil {
			logger.Error("Message router stopped", "error", err)
			cancel()
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           newOpsRouter(obs, hub, module, bus),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Ops server listening", "address", cfg.HTTP.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ops server failed", "error", err)
			cancel()
		}
	}()

	logger.Info("Stats service started successfully")

	<-ctx.Done()
	logger.Info("Shutting down stats service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping ops server", "error", err)
	}
	if err := router.Close(); err != nil {
		logger.Error("Error closing message router", "error", err)
	}
	if err := module.Close(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}
	wg.Wait()

	logger.Info("Stats service stopped")
}
