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
	"Go2NetScope/internal/export"
	"Go2NetScope/internal/report"
	"Go2NetScope/internal/snapshot"
	"Go2NetScope/internal/storage/clickhouse"
	"Go2NetScope/internal/storage/redisstore"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	sessionDir := flag.String("snapshot", "", "Session snapshot directory to serve records from.")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logr, err := app.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Records come from a stored session, if one is given
	source := api.StaticSource{}
	if *sessionDir != "" {
		records, err := snapshot.Load(*sessionDir)
		if err != nil {
			log.Fatalf("Failed to load snapshots: %v", err)
		}
		source = api.StaticSource{Items: records, Duration: report.Span(records)}
		logr.Infof("Loaded %d records from %s", len(records), *sessionDir)
	}

	h := &api.APIHandler{
		Source:   source,
		Exporter: export.NewExporter(cfg.Export.OutputDir, logr),
		Log:      logr,
	}

	if cfg.Redis.Enabled {
		rs := redisstore.NewRedisStore(cfg.Redis)
		defer rs.Close()
		h.Summaries = rs
	}

	if cfg.ClickHouse.Enabled {
		querier, err := clickhouse.NewQuerier(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to create querier: %v", err)
		}
		defer querier.Close()
		h.Querier = querier
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.Serve(ctx, cfg.API.ListenAddr, api.NewRouter(h), logr); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
}
