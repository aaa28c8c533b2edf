package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"grid-buy-planner/internal/api"
	"grid-buy-planner/internal/config"
	"grid-buy-planner/internal/database"
	"grid-buy-planner/internal/logger"
	"grid-buy-planner/internal/metrics"
	"grid-buy-planner/internal/planner"
	"grid-buy-planner/internal/quote"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	quotes, err := quote.NewManager(&cfg.Quote, log)
	if err != nil {
		log.Fatal("Failed to set up price providers", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	svc := planner.NewService(cfg.Planner, quotes, database.NewStore(db), recorder, log)
	server := api.NewServer(cfg.Server, api.Options{
		Service:   svc,
		Providers: quotes,
		Recorder:  recorder,
		Gatherer:  reg,
		Logger:    log,
	})

	go func() {
		if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
