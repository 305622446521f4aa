package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"parking-backend/config"
	"parking-backend/internal/api"
	"parking-backend/internal/db"
	"parking-backend/internal/engine"
	"parking-backend/internal/export"
	"parking-backend/internal/mw"
	"parking-backend/internal/notification"
	"parking-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "parking-backend ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	viewCache := mw.NewViewCache(cfg.Cache.AdminTTL)
	allocEngine := engine.New(gormDB, viewCache)

	exportPool := export.NewWorkerPool(cfg.Export.WorkerPoolSize, appStore, cfg.Export.Dir)
	exportPool.Start(ctx)

	notifyPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	notifyPool.Start(ctx)

	scheduler := notification.NewScheduler(&cfg.Scheduler, appStore, notifyPool)
	go scheduler.Run(ctx)

	handler := api.NewHandler(appStore, allocEngine, exportPool, &webpushOptions)
	router := api.NewRouter(handler, viewCache, cfg)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
