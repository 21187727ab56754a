package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"Go2NetScope/internal/api"
	"Go2NetScope/internal/app"
	"Go2NetScope/internal/config"
	"Go2NetScope/internal/engine/streamaggregator"
	"Go2NetScope/internal/export"
	"Go2NetScope/internal/factory"
	"Go2NetScope/internal/probe"
	"Go2NetScope/internal/storage/redisstore"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logr, err := app.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	logr.Info("Starting ns-engine...")

	// 2. Subscribe to the probes and build the local writers. Records are
	// consumed from NATS here, so they are never published back.
	sub, err := probe.NewSubscriber(cfg.NATS, logr)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}

	s := app.NewSession(cfg, logr)
	writerCfg := *cfg
	writerCfg.NATS.Enabled = false
	group, err := factory.Create(&writerCfg, s.ID, logr)
	if err != nil {
		log.Fatalf("Failed to create writers: %v", err)
	}
	defer group.Close()

	var store redisstore.Store
	if cfg.Redis.Enabled {
		rs := redisstore.NewRedisStore(cfg.Redis)
		defer rs.Close()
		store = rs
	}

	// 3. Start the aggregator and the API on the live session
	streamAgg := streamaggregator.NewStreamAggregator(sub, s, group.Writers, logr)
	if err := streamAgg.Start(); err != nil {
		log.Fatalf("Failed to start stream aggregator: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := &api.APIHandler{
		Source:    s,
		Exporter:  export.NewExporter(cfg.Export.OutputDir, logr),
		Summaries: store,
		Log:       logr,
	}
	if err := api.Serve(ctx, cfg.API.ListenAddr, api.NewRouter(h), logr); err != nil {
		logr.Error(err)
	}

	// 4. Shutdown
	logr.Info("Shutdown signal received, stopping aggregator...")
	streamAgg.Stop()
	if _, err := app.Finalize(context.Background(), cfg, s, s.Elapsed(), store, os.Stdout, logr); err != nil {
		logr.Errorf("Failed to finalize session: %v", err)
	}
	logr.Info("Shutdown complete.")
}
