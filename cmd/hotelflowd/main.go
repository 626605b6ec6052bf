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

	"hotelflow-core/config"
	"hotelflow-core/internal/api"
	"hotelflow-core/internal/assign"
	"hotelflow-core/internal/db"
	"hotelflow-core/internal/forecast"
	"hotelflow-core/internal/localstate"
	"hotelflow-core/internal/notify"
	"hotelflow-core/internal/queue"
	"hotelflow-core/internal/remote"
	"hotelflow-core/internal/session"
	"hotelflow-core/internal/store"
	syncengine "hotelflow-core/internal/sync"
)

func main() {
	logger := log.New(os.Stdout, "hotelflow ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded from %s", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state := localstate.New(gormDB)
	entityStore := store.New()
	mutationQueue := queue.NewGormQueue(gormDB)
	client := remote.NewClient(&cfg.Remote)

	// Resume the previous login, if any. An expired token surfaces as
	// rejected syncs and the UI asks for a fresh login.
	if token, err := state.Get(ctx, localstate.KeyAuthToken); err == nil {
		client.SetToken(string(token))
		logger.Println("restored persisted auth token")
	} else if !errors.Is(err, localstate.ErrNotFound) {
		logger.Fatalf("failed to restore auth token: %v", err)
	}

	engine := syncengine.NewEngine(&cfg.Sync, entityStore, mutationQueue, client)

	pool := notify.NewWorkerPool(cfg, gormDB)
	pool.Start(ctx)
	engine.OnAnnouncement(pool.Dispatch)

	go engine.Run(ctx)
	go func() {
		if err := engine.Refresh(ctx); err != nil {
			logger.Printf("initial refresh failed (starting offline): %v", err)
		}
	}()

	sessions, err := session.NewManager(ctx, state, session.SystemClock{})
	if err != nil {
		logger.Fatalf("failed to restore work session: %v", err)
	}

	forecaster := forecast.NewEngine(&cfg.Forecast)
	roster := forecast.NewGenerator(gormDB, forecaster)
	assigner := assign.NewEngine(engine)

	handler := api.NewHandler(entityStore, engine, assigner, forecaster, roster, sessions, client, state, gormDB)
	router := api.NewRouter(handler, &cfg.Server)
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
	logger.Println("shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server shutdown: %v", err)
	}
	cancel()
	logger.Println("server gracefully stopped")
}
