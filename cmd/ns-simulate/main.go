package main

import (
	"context"
	"flag"
	"log"
	"os"

	"Go2NetScope/internal/app"
	"Go2NetScope/internal/config"
	"Go2NetScope/internal/storage/redisstore"
	"Go2NetScope/internal/synthetic"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file (defaults are used when empty).")
	seed := flag.Uint64("seed", 0, "Seed for reproducible traffic, 0 for a random run.")
	pcapOut := flag.String("pcap", "", "Also write the simulated packets to this pcap file.")
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
	logr.Info("=== Localhost Packet Capture Simulation ===")

	// 2. Generate the traffic
	gen := synthetic.NewGenerator(nil)
	if *seed != 0 {
		gen = synthetic.NewSeededGenerator(*seed)
	}
	records := gen.LocalhostTraffic()

	s := app.NewSession(cfg, logr)
	for _, rec := range records {
		s.Add(rec)
	}
	logr.Infof("Simulated %d packets", s.Len())

	if *pcapOut != "" {
		file, err := os.Create(*pcapOut)
		if err != nil {
			log.Fatalf("Failed to create pcap file: %v", err)
		}
		n, err := gen.WritePcap(file, records)
		file.Close()
		if err != nil {
			log.Fatalf("Failed to write pcap file: %v", err)
		}
		logr.Infof("Wrote %d packets to %s", n, *pcapOut)
	}

	// 3. Export and summarize
	var store redisstore.Store
	if cfg.Redis.Enabled {
		rs := redisstore.NewRedisStore(cfg.Redis)
		defer rs.Close()
		store = rs
	}
	if _, err := app.Finalize(context.Background(), cfg, s, synthetic.Window, store, os.Stdout, logr); err != nil {
		logr.Errorf("Failed to finalize session: %v", err)
	}
}
