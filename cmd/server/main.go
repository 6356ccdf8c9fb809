package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rishis123/backend-dev3/internal/config"
	apphttp "github.com/rishis123/backend-dev3/internal/http"
	"github.com/rishis123/backend-dev3/internal/ledger"
	"github.com/rishis123/backend-dev3/internal/middleware"
	"github.com/rishis123/backend-dev3/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logr := logger.New(cfg.LogLevel)

	store, err := ledger.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	service := ledger.NewService(store, logr)
	api := apphttp.NewAPI(service, logr)

	mux := http.NewServeMux()
	api.Register(mux)
	mux.Handle("GET /health", apphttp.NewHealthHandler(store))

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: middleware.RequestID(mux),
	}

	go func() {
		logr.Info("server running", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logr.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logr.Error("shutdown failed", "error", err)
	}

	logr.Info("server stopped gracefully")
}
