package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/printbridge/printbridge/internal/agent"
	"github.com/printbridge/printbridge/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateAgent(); err != nil {
		log.Fatalf("invalid agent config: %v", err)
	}

	a := agent.New(agent.Config{
		PrinterName:    cfg.Agent.PrinterName,
		CoordinatorURL: cfg.Agent.CoordinatorURL,
		SpoolDir:       cfg.Agent.SpoolDir,
		FetchTimeout:   cfg.Agent.FetchTimeout,
		PrintTimeout:   cfg.Agent.PrintTimeout,
		ReconnectMin:   cfg.Agent.ReconnectMin,
		ReconnectMax:   cfg.Agent.ReconnectMax,
	}, &agent.LPPrinter{Destination: cfg.Agent.LPDestination})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("[main] agent %q connecting to %s", cfg.Agent.PrinterName, cfg.Agent.CoordinatorURL)
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("agent error: %v", err)
	}
}
