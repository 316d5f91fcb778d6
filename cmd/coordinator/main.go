package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/printbridge/printbridge/internal/api"
	"github.com/printbridge/printbridge/internal/api/handlers"
	"github.com/printbridge/printbridge/internal/api/middleware"
	"github.com/printbridge/printbridge/internal/config"
	"github.com/printbridge/printbridge/internal/core"
	"github.com/printbridge/printbridge/internal/db"
	"github.com/printbridge/printbridge/internal/dispatch"
	"github.com/printbridge/printbridge/internal/payment"
	"github.com/printbridge/printbridge/internal/pdf"
	"github.com/printbridge/printbridge/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	database, err := db.Open(db.Config{Path: cfg.Database.Path})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	artifacts, err := storage.NewDiskStore(cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}

	jobs := db.NewJobStore(database)
	printers := db.NewPrinterStore(database)
	settings := db.NewSettingsStore(database)

	registry := dispatch.NewRegistry()
	broadcaster := dispatch.NewBroadcaster(registry)

	manager := core.NewManager(jobs, printers, broadcaster, core.ManagerConfig{
		PerPageRate:   cfg.Payment.PerPageRate,
		PaymentSecret: cfg.Payment.Secret,
	})

	var orders payment.OrderCreator
	if cfg.Payment.ProviderURL != "" {
		orders = payment.NewHTTPProvider(payment.ProviderConfig{
			BaseURL:   cfg.Payment.ProviderURL,
			KeyID:     cfg.Payment.ProviderKeyID,
			KeySecret: cfg.Payment.ProviderKeySecret,
			Timeout:   cfg.Payment.ProviderTimeout,
		})
	} else {
		log.Printf("[main] no payment provider configured, minting local order ids")
		orders = payment.LocalProvider{}
	}

	auth, err := middleware.NewAuthMiddleware(settings)
	if err != nil {
		log.Fatalf("failed to init auth: %v", err)
	}

	router := api.NewRouter(api.RouterDeps{
		Jobs:     handlers.NewJobHandler(manager, artifacts, pdf.NewCounter(), orders, cfg.Payment.Currency),
		Payments: handlers.NewPaymentHandler(manager),
		Printers: handlers.NewPrinterHandler(printers),
		Auth:     auth,
		Dispatch: dispatch.NewServer(registry, manager, printers),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("[main] coordinator listening on :%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[main] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] shutdown error: %v", err)
	}
}
